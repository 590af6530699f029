package service

import (
	"context"
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
	"github.com/plentyofmemes/memepipe/internal/repository"
)

// FeedCorpus is the read surface the public feed needs.
type FeedCorpus interface {
	GetByID(ctx context.Context, id string) (*domain.Meme, error)
	ListFeed(ctx context.Context, now time.Time, limit, offset int) ([]domain.Meme, error)
	CountFeed(ctx context.Context, now time.Time) (int64, error)
}

// FeedService serves the public read surface: approved records whose
// published_at has passed, paginated, newest publication first. All reads go
// through the actor capability check rather than a database policy feature.
type FeedService struct {
	corpus   FeedCorpus
	pageSize int
}

// NewFeedService creates a new feed service.
// Parameters:
//   - corpus: persisted corpus handle.
//   - pageSize: records per page; <=0 defaults to 20.
// Returns:
//   - *FeedService: initialized service.
func NewFeedService(corpus FeedCorpus, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &FeedService{corpus: corpus, pageSize: pageSize}
}

// FeedPage is one page of the public feed.
type FeedPage struct {
	Memes    []domain.Meme `json:"memes"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// Page retrieves one page of the public feed for the given actor.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - actor: caller capability.
//   - page: 1-based page number.
// Returns:
//   - *FeedPage: page of published records.
//   - error: non-nil if the query fails.
func (s *FeedService) Page(ctx context.Context, actor domain.Actor, page int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	now := time.Now()

	memes, err := s.corpus.ListFeed(ctx, now, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.corpus.CountFeed(ctx, now)
	if err != nil {
		return nil, err
	}

	// The query already restricts to published records; the capability check
	// is the explicit authorization backstop.
	visible := make([]domain.Meme, 0, len(memes))
	for _, m := range memes {
		if actor.CanView(&m, now) {
			visible = append(visible, m)
		}
	}

	return &FeedPage{
		Memes:    visible,
		Total:    total,
		Page:     page,
		PageSize: s.pageSize,
	}, nil
}

// Get retrieves a single record if the actor may view it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - actor: caller capability.
//   - id: meme ID.
// Returns:
//   - *domain.Meme: record if visible to the actor.
//   - error: repository.ErrNotFound when missing or not visible, other
//     non-nil on query failure.
func (s *FeedService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Meme, error) {
	meme, err := s.corpus.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanView(meme, time.Now()) {
		// Do not reveal existence of unpublished records to the public.
		return nil, repository.ErrNotFound
	}
	return meme, nil
}
