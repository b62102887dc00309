package domain

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// RecordRepository is what the wizard needs from record storage.
type RecordRepository interface {
	// FindIDByNaturalKey returns the record owning key, with found=false when none does.
	FindIDByNaturalKey(ctx context.Context, key NaturalKey) (RecordID, bool, error)
	// Create registers a new draft record for key.
	// Returns *ConflictError when another record already owns the key.
	Create(ctx context.Context, key NaturalKey, fields Fields) (RecordID, error)
	// Update replaces the stored fields and status of an existing record.
	Update(ctx context.Context, id RecordID, status RecordStatus, fields Fields) error
	// ExpandIntoRelatedRecords writes the sub-records derived from the flat field set.
	ExpandIntoRelatedRecords(ctx context.Context, id RecordID, fields Fields) error
	// Get loads a record. Returns ErrRecordNotFound when no record exists.
	Get(ctx context.Context, id RecordID) (*Record, error)
}

// DraftStorage is a byte key-value store holding draft snapshots.
type DraftStorage interface {
	// Get returns found=false when the key is absent.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	// Set overwrites the value under key.
	Set(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
