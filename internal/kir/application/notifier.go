package application

import (
	"context"

	"kir/internal/common/logging"
	"kir/internal/kir/domain"
)

// Notifier is told when a record has been submitted, e.g. to refresh a dashboard.
// Errors are logged by the wizard; they never fail a submit.
type Notifier interface {
	RecordSubmitted(ctx context.Context, id domain.RecordID) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, id domain.RecordID) error

func (f NotifierFunc) RecordSubmitted(ctx context.Context, id domain.RecordID) error {
	return f(ctx, id)
}

type noopNotifier struct{}

func (noopNotifier) RecordSubmitted(context.Context, domain.RecordID) error { return nil }

// LogNotifier writes an info line per submitted record.
type LogNotifier struct{}

func (LogNotifier) RecordSubmitted(ctx context.Context, id domain.RecordID) error {
	logging.InfoContext(ctx, "KIR record submitted", "record_id", id.String())
	return nil
}
