package application

import (
	"context"
	"encoding/json"

	"kir/internal/common/logging"
	"kir/internal/common/metrics"
	vo "kir/internal/common/value_objects"
	"kir/internal/kir/domain"
)

const draftKeyPrefix = "kir:draft:"

// DraftKey is the fixed storage key of a client's draft.
func DraftKey(clientID vo.ClientID) string {
	return draftKeyPrefix + clientID.String()
}

// DraftStore is a best-effort cache of one wizard snapshot per client.
// It never returns storage errors: failures are logged and counted, and a
// corrupt or missing snapshot loads as empty.
type DraftStore struct {
	storage domain.DraftStorage
	key     string
}

// NewDraftStore binds a store to one client's key.
func NewDraftStore(storage domain.DraftStorage, clientID vo.ClientID) *DraftStore {
	return &DraftStore{storage: storage, key: DraftKey(clientID)}
}

// Save overwrites the stored snapshot.
func (d *DraftStore) Save(ctx context.Context, snap domain.DraftSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		metrics.RecordDraftWriteFailure("encode")
		logging.WarnContext(ctx, "draft snapshot not encodable", "key", d.key, "error", err)
		return
	}
	if err := d.storage.Set(ctx, d.key, data); err != nil {
		metrics.RecordDraftWriteFailure("storage")
		logging.WarnContext(ctx, "draft snapshot not saved", "key", d.key, "error", err)
	}
}

// Load returns the stored snapshot, or found=false when there is none or it is unreadable.
func (d *DraftStore) Load(ctx context.Context) (domain.DraftSnapshot, bool) {
	data, found, err := d.storage.Get(ctx, d.key)
	if err != nil {
		logging.WarnContext(ctx, "draft snapshot not loaded", "key", d.key, "error", err)
		return domain.DraftSnapshot{}, false
	}
	if !found || len(data) == 0 {
		return domain.DraftSnapshot{}, false
	}
	var snap domain.DraftSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logging.WarnContext(ctx, "draft snapshot corrupt, ignoring", "key", d.key, "error", err)
		return domain.DraftSnapshot{}, false
	}
	return snap, true
}

// Clear removes the snapshot. Clearing an empty store is fine.
func (d *DraftStore) Clear(ctx context.Context) {
	if err := d.storage.Delete(ctx, d.key); err != nil {
		logging.WarnContext(ctx, "draft snapshot not cleared", "key", d.key, "error", err)
	}
}
