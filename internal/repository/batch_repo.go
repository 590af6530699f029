package repository

import (
	"context"
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
	"gorm.io/gorm"
)

// BatchRepository persists ingestion batch run records.
type BatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *BatchRepository: repository instance bound to db.
func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: batch run to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *BatchRepository) Create(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish records the final state and counters of a batch run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: batch run with final counters and status set.
// Returns:
//   - error: non-nil if the update fails.
func (r *BatchRepository) Finish(ctx context.Context, run *domain.BatchRun) error {
	now := time.Now()
	run.CompletedAt = &now
	run.UpdatedAt = now
	return r.db.WithContext(ctx).Save(run).Error
}

// ListRecent retrieves the most recent batch runs, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of runs to return.
// Returns:
//   - []domain.BatchRun: recent runs.
//   - error: non-nil if the query fails.
func (r *BatchRepository) ListRecent(ctx context.Context, limit int) ([]domain.BatchRun, error) {
	var runs []domain.BatchRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
