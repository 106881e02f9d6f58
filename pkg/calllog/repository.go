package calllog

import (
	"context"

	"gorm.io/gorm"

	"github.com/pitabwire/frame/datastore/pool"
)

// Repository persists call records.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a call record repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Save persists a finished call record. A nil repository is a no-op so
// the session manager can run without persistence wired in.
func (r *Repository) Save(ctx context.Context, rec *CallRecord) error {
	if r == nil {
		return nil
	}
	return r.db(ctx, false).Create(rec).Error
}

// GetBySession returns the record for one call session.
func (r *Repository) GetBySession(ctx context.Context, sessionID string) (*CallRecord, error) {
	var rec CallRecord
	err := r.db(ctx, true).Where("session_id = ?", sessionID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByOutcome returns recent records with the given outcome, newest
// first.
func (r *Repository) ListByOutcome(ctx context.Context, outcome string, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []CallRecord
	err := r.db(ctx, true).
		Where("outcome = ?", outcome).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
