package application

import (
	"context"
	"errors"
	"fmt"

	"kir/internal/common/logging"
	"kir/internal/kir/domain"
)

// classify translates a repository or storage error into one of the four kinds the
// wizard exposes. Validation and conflict errors pass through untouched; permission
// failures keep their own kind; anything else becomes ErrUnavailable and the raw
// cause is only logged.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		return cerr
	}
	if errors.Is(err, domain.ErrPermissionDenied) {
		logging.WarnContext(ctx, "repository denied access", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, domain.ErrPermissionDenied)
	}
	if errors.Is(err, domain.ErrUnavailable) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logging.WarnContext(ctx, "repository call timed out", "op", op, "error", err)
	case errors.Is(err, domain.ErrRecordNotFound):
		logging.ErrorContext(ctx, "record vanished from repository", "op", op, "error", err)
	default:
		logging.ErrorContext(ctx, "repository call failed", "op", op, "error", err)
	}
	return fmt.Errorf("%s: %w", op, domain.ErrUnavailable)
}

// Kind returns a short label for the error kind, used in metrics and HTTP problem bodies.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "permission"
	case errors.Is(err, domain.ErrRecordNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}
