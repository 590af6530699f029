package service

import (
	"context"
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
	"github.com/plentyofmemes/memepipe/internal/logger"
)

// ModerationCorpus is the persisted-corpus surface moderation needs. Status
// updates are compare-and-swap on the current status: a lost race returns a
// conflict instead of silently overwriting.
type ModerationCorpus interface {
	GetByID(ctx context.Context, id string) (*domain.Meme, error)
	ListByStatus(ctx context.Context, status domain.MemeStatus, limit, offset int) ([]domain.Meme, error)
	CountByStatus(ctx context.Context, status domain.MemeStatus) (int64, error)
	UpdateStatusCAS(ctx context.Context, id string, from, to domain.MemeStatus, publishedAt *time.Time) error
	UpdateTitle(ctx context.Context, id, title string) error
}

// ModerationService applies administrator decisions to staged records.
// Transitions are independent per record; no cross-record locking exists.
type ModerationService struct {
	corpus ModerationCorpus
	logger *logger.Logger
}

// NewModerationService creates a new moderation service.
// Parameters:
//   - corpus: persisted corpus handle.
//   - log: logger instance.
// Returns:
//   - *ModerationService: initialized service.
func NewModerationService(corpus ModerationCorpus, log *logger.Logger) *ModerationService {
	return &ModerationService{corpus: corpus, logger: log}
}

func (s *ModerationService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Approve transitions a pending record to approved and sets published_at.
// A future publishAt schedules publication; the record stays out of the feed
// until then.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
//   - publishAt: publication time; zero means now.
// Returns:
//   - *domain.Meme: record after the transition.
//   - error: domain.ErrInvalidTransition, repository.ErrStatusConflict,
//     repository.ErrNotFound, or other non-nil on failure.
func (s *ModerationService) Approve(ctx context.Context, id string, publishAt time.Time) (*domain.Meme, error) {
	meme, err := s.corpus.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(meme.Status, domain.MemeStatusApproved) {
		return nil, domain.ErrInvalidTransition
	}

	if publishAt.IsZero() {
		publishAt = time.Now()
	}
	if err := s.corpus.UpdateStatusCAS(ctx, id, meme.Status, domain.MemeStatusApproved, &publishAt); err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		"meme_id":      id,
		"published_at": publishAt,
	}).Info("Approved meme")

	return s.corpus.GetByID(ctx, id)
}

// Reject transitions a pending record to rejected. Rejected records are
// retained indefinitely as dedup reference material; the transition is
// terminal.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
// Returns:
//   - *domain.Meme: record after the transition.
//   - error: domain.ErrInvalidTransition or CAS/lookup failures.
func (s *ModerationService) Reject(ctx context.Context, id string) (*domain.Meme, error) {
	meme, err := s.corpus.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(meme.Status, domain.MemeStatusRejected) {
		return nil, domain.ErrInvalidTransition
	}

	if err := s.corpus.UpdateStatusCAS(ctx, id, meme.Status, domain.MemeStatusRejected, nil); err != nil {
		return nil, err
	}

	s.log(ctx).WithField("meme_id", id).Info("Rejected meme")

	return s.corpus.GetByID(ctx, id)
}

// Unpublish returns an approved record to the moderation queue: status goes
// back to pending and published_at is cleared, removing it from the public
// feed without discarding it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
// Returns:
//   - *domain.Meme: record after the transition.
//   - error: domain.ErrInvalidTransition or CAS/lookup failures.
func (s *ModerationService) Unpublish(ctx context.Context, id string) (*domain.Meme, error) {
	meme, err := s.corpus.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(meme.Status, domain.MemeStatusPending) {
		return nil, domain.ErrInvalidTransition
	}

	if err := s.corpus.UpdateStatusCAS(ctx, id, meme.Status, domain.MemeStatusPending, nil); err != nil {
		return nil, err
	}

	s.log(ctx).WithField("meme_id", id).Info("Unpublished meme")

	return s.corpus.GetByID(ctx, id)
}

// EditTitle updates the descriptive title. Permitted in any status and never
// changes status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: meme ID.
//   - title: new title.
// Returns:
//   - *domain.Meme: record after the edit.
//   - error: repository.ErrNotFound or other non-nil on failure.
func (s *ModerationService) EditTitle(ctx context.Context, id, title string) (*domain.Meme, error) {
	if err := s.corpus.UpdateTitle(ctx, id, title); err != nil {
		return nil, err
	}
	return s.corpus.GetByID(ctx, id)
}

// QueuePage is one page of the moderation queue.
type QueuePage struct {
	Memes []domain.Meme `json:"memes"`
	Total int64         `json:"total"`
}

// ListQueue retrieves a page of records in the given status for review.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: moderation status to list.
//   - limit: page size.
//   - offset: records to skip.
// Returns:
//   - *QueuePage: page of records plus the total count.
//   - error: non-nil if the query fails.
func (s *ModerationService) ListQueue(ctx context.Context, status domain.MemeStatus, limit, offset int) (*QueuePage, error) {
	memes, err := s.corpus.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.corpus.CountByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return &QueuePage{Memes: memes, Total: total}, nil
}
