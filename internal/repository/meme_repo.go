package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
	"gorm.io/gorm"
)

// ErrStatusConflict is returned when a compare-and-swap status update loses
// to a concurrent writer or the record is not in the expected status.
var ErrStatusConflict = errors.New("status changed concurrently")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// MemeRepository handles meme record persistence.
type MemeRepository struct {
	db *gorm.DB
}

// NewMemeRepository creates a new MemeRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *MemeRepository: repository instance bound to db.
func NewMemeRepository(db *gorm.DB) *MemeRepository {
	return &MemeRepository{db: db}
}

// Create inserts a new meme record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - meme: meme record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *MemeRepository) Create(ctx context.Context, meme *domain.Meme) error {
	return r.db.WithContext(ctx).Create(meme).Error
}

// GetByID retrieves a meme by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
// Returns:
//   - *domain.Meme: meme record if found.
//   - error: ErrNotFound if missing, other non-nil on query failure.
func (r *MemeRepository) GetByID(ctx context.Context, id string) (*domain.Meme, error) {
	var meme domain.Meme
	if err := r.db.WithContext(ctx).First(&meme, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &meme, nil
}

// ListFingerprints loads the (id, md5, phash, created_at) projection of every
// record, across all statuses. Rejected records are included on purpose: they
// are retained as dedup reference material. Loaded once per batch run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []FingerprintEntry: projection of all persisted records.
//   - error: non-nil if the query fails.
func (r *MemeRepository) ListFingerprints(ctx context.Context) ([]domain.FingerprintEntry, error) {
	var entries []domain.FingerprintEntry
	if err := r.db.WithContext(ctx).
		Model(&domain.Meme{}).
		Select("id", "md5", "phash", "created_at").
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list fingerprints: %w", err)
	}
	return entries, nil
}

// ListFeed retrieves the public feed page: approved records whose
// published_at has passed, newest publication first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - now: reference time for the publication cutoff.
//   - limit: page size.
//   - offset: records to skip.
// Returns:
//   - []domain.Meme: feed page.
//   - error: non-nil if the query fails.
func (r *MemeRepository) ListFeed(ctx context.Context, now time.Time, limit, offset int) ([]domain.Meme, error) {
	var memes []domain.Meme
	if err := r.db.WithContext(ctx).
		Where("status = ? AND published_at IS NOT NULL AND published_at <= ?", domain.MemeStatusApproved, now).
		Order("published_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&memes).Error; err != nil {
		return nil, err
	}
	return memes, nil
}

// CountFeed counts records visible in the public feed at now.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - now: reference time for the publication cutoff.
// Returns:
//   - int64: number of published records.
//   - error: non-nil if the query fails.
func (r *MemeRepository) CountFeed(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Meme{}).
		Where("status = ? AND published_at IS NOT NULL AND published_at <= ?", domain.MemeStatusApproved, now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByStatus retrieves memes by status with pagination, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: meme status to filter by.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Meme: matching meme records.
//   - error: non-nil if the query fails.
func (r *MemeRepository) ListByStatus(ctx context.Context, status domain.MemeStatus, limit, offset int) ([]domain.Meme, error) {
	var memes []domain.Meme
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&memes).Error; err != nil {
		return nil, err
	}
	return memes, nil
}

// CountByStatus counts memes by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: meme status to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *MemeRepository) CountByStatus(ctx context.Context, status domain.MemeStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Meme{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatusCAS transitions a record's status with compare-and-swap
// semantics: the update applies only if the record is still in the expected
// status. A concurrent moderation action on the same record loses the race
// and gets ErrStatusConflict instead of silently overwriting.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
//   - from: expected current status.
//   - to: new status.
//   - publishedAt: new published_at value; nil clears it.
// Returns:
//   - error: ErrNotFound, ErrStatusConflict, or other non-nil on failure.
func (r *MemeRepository) UpdateStatusCAS(ctx context.Context, id string, from, to domain.MemeStatus, publishedAt *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Meme{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":       to,
			"published_at": publishedAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing record from a lost race
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Meme{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// UpdateTitle edits the descriptive title of a record in any status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
//   - title: new title.
// Returns:
//   - error: ErrNotFound or other non-nil on failure.
func (r *MemeRepository) UpdateTitle(ctx context.Context, id, title string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Meme{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":      title,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
