package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kir/internal/common/metrics"
	"kir/internal/kir/domain"
)

type DataStore struct {
	pool        *pgxpool.Pool
	recordRepo  *RecordRepository
	naturalKeys *NaturalKeyIndex
	memberRepo  *MemberRepository
	outboxRepo  *OutboxRepository
}

// NewDataStore creates a new DataStore with the given connection pool.
func NewDataStore(pool *pgxpool.Pool) *DataStore {
	return &DataStore{
		pool:        pool,
		recordRepo:  NewRecordRepository(pool),
		naturalKeys: NewNaturalKeyIndex(pool),
		memberRepo:  NewMemberRepository(pool),
		outboxRepo:  NewOutboxRepository(pool),
	}
}

// Records returns the record repository.
func (ds *DataStore) Records() domain.RecordStore {
	return ds.recordRepo
}

// NaturalKeys returns the uniqueness index.
func (ds *DataStore) NaturalKeys() domain.NaturalKeyIndex {
	return ds.naturalKeys
}

// Members returns the household member repository.
func (ds *DataStore) Members() domain.MemberStore {
	return ds.memberRepo
}

// Outbox returns the outbox repository.
func (ds *DataStore) Outbox() domain.OutboxRepository {
	return ds.outboxRepo
}

// withTx creates a new DataStore whose repositories share tx.
func (ds *DataStore) withTx(tx pgx.Tx) *DataStore {
	return &DataStore{
		pool:        ds.pool,
		recordRepo:  NewRecordRepository(tx),
		naturalKeys: NewNaturalKeyIndex(tx),
		memberRepo:  NewMemberRepository(tx),
		outboxRepo:  NewOutboxRepository(tx),
	}
}

// Atomic executes the callback within a database transaction.
// If the callback returns nil, the transaction is committed.
// If the callback returns an error or panics, the transaction is rolled back.
// A failed commit is translated too, since the deferred natural key foreign key
// is only checked there.
func (ds *DataStore) Atomic(ctx context.Context, fn domain.AtomicCallback) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordTransactionDuration("atomic", time.Since(start))
	}()

	tx, err := ds.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("commit transaction: %w", translate(cErr))
		}
	}()

	err = fn(ds.withTx(tx))
	return
}

// PoolStats reports connection usage to the metrics registry.
func (ds *DataStore) PoolStats() {
	stat := ds.pool.Stat()
	metrics.RecordPoolStats(stat.AcquiredConns(), stat.IdleConns())
}

// Ping checks database connectivity for the readiness endpoint.
func (ds *DataStore) Ping(ctx context.Context) error {
	return ds.pool.Ping(ctx)
}

// Verify interface implementations.
var (
	_ domain.AtomicExecutor = (*DataStore)(nil)
	_ domain.Repositories   = (*DataStore)(nil)
)
