package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
	"github.com/plentyofmemes/memepipe/internal/repository"
)

// fakeFeedCorpus implements FeedCorpus over a fixed slice, applying the same
// publication filter and ordering as the real repository.
type fakeFeedCorpus struct {
	memes []domain.Meme
}

func (f *fakeFeedCorpus) published(now time.Time) []domain.Meme {
	var out []domain.Meme
	for _, m := range f.memes {
		if m.IsPublished(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(*out[j].PublishedAt)
	})
	return out
}

func (f *fakeFeedCorpus) GetByID(_ context.Context, id string) (*domain.Meme, error) {
	for i := range f.memes {
		if f.memes[i].ID == id {
			cp := f.memes[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFeedCorpus) ListFeed(_ context.Context, now time.Time, limit, offset int) ([]domain.Meme, error) {
	pub := f.published(now)
	if offset >= len(pub) {
		return nil, nil
	}
	end := offset + limit
	if end > len(pub) {
		end = len(pub)
	}
	return pub[offset:end], nil
}

func (f *fakeFeedCorpus) CountFeed(_ context.Context, now time.Time) (int64, error) {
	return int64(len(f.published(now))), nil
}

func publishedMeme(id string, publishedAt time.Time) domain.Meme {
	return domain.Meme{
		ID:          id,
		Status:      domain.MemeStatusApproved,
		PublishedAt: &publishedAt,
	}
}

func TestFeedExcludesUnpublished(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	corpus := &fakeFeedCorpus{memes: []domain.Meme{
		publishedMeme("live", now.Add(-time.Hour)),
		publishedMeme("scheduled", future),
		{ID: "pending", Status: domain.MemeStatusPending},
		{ID: "rejected", Status: domain.MemeStatusRejected},
	}}
	svc := NewFeedService(corpus, 20)

	page, err := svc.Page(context.Background(), domain.Actor{Role: domain.RolePublic}, 1)
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if len(page.Memes) != 1 || page.Memes[0].ID != "live" {
		t.Errorf("feed = %+v, want only the live record", page.Memes)
	}
	if page.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Total)
	}
}

// TestFeedOrderAndPagination verifies newest publication first and fixed page
// size
func TestFeedOrderAndPagination(t *testing.T) {
	base := time.Now().Add(-48 * time.Hour)
	corpus := &fakeFeedCorpus{}
	for i := 0; i < 25; i++ {
		corpus.memes = append(corpus.memes,
			publishedMeme(fmt.Sprintf("m%02d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	svc := NewFeedService(corpus, 20)
	actor := domain.Actor{Role: domain.RolePublic}

	page1, err := svc.Page(context.Background(), actor, 1)
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if len(page1.Memes) != 20 {
		t.Errorf("page 1 size = %d, want 20", len(page1.Memes))
	}
	if page1.Total != 25 {
		t.Errorf("Total = %d, want 25", page1.Total)
	}
	for i := 1; i < len(page1.Memes); i++ {
		if page1.Memes[i].PublishedAt.After(*page1.Memes[i-1].PublishedAt) {
			t.Fatal("feed not ordered newest publication first")
		}
	}

	page2, err := svc.Page(context.Background(), actor, 2)
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if len(page2.Memes) != 5 {
		t.Errorf("page 2 size = %d, want 5", len(page2.Memes))
	}

	page3, err := svc.Page(context.Background(), actor, 3)
	if err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if len(page3.Memes) != 0 {
		t.Errorf("page 3 size = %d, want 0", len(page3.Memes))
	}
}

// TestGetHidesUnpublishedFromPublic verifies an unpublished record is
// indistinguishable from a missing one for public callers
func TestGetHidesUnpublishedFromPublic(t *testing.T) {
	corpus := &fakeFeedCorpus{memes: []domain.Meme{
		{ID: "pending", Status: domain.MemeStatusPending},
	}}
	svc := NewFeedService(corpus, 20)

	_, err := svc.Get(context.Background(), domain.Actor{Role: domain.RolePublic}, "pending")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("public Get of pending record: err = %v, want ErrNotFound", err)
	}

	_, err = svc.Get(context.Background(), domain.Actor{Role: domain.RolePublic}, "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("public Get of missing record: err = %v, want ErrNotFound", err)
	}

	meme, err := svc.Get(context.Background(), domain.Actor{Role: domain.RoleAdmin}, "pending")
	if err != nil {
		t.Fatalf("admin Get returned error: %v", err)
	}
	if meme.ID != "pending" {
		t.Errorf("admin Get returned %s, want pending", meme.ID)
	}
}
