package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/plentyofmemes/memepipe/internal/domain"
)

const defaultBaseURL = "https://www.reddit.com"

// imageExtensions are the file extensions accepted as static images. Video
// containers (.gifv, .mp4, .webm) are skipped up front.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// Adapter pulls top posts from a list of subreddits and exposes them as
// ingestion candidates. Posts marked over_18 by the source, stickied posts,
// and non-image links are filtered out before the pipeline sees them.
type Adapter struct {
	client     *resty.Client
	baseURL    string
	subreddits []string
	postsPer   int
}

// Config holds configuration for the Reddit source adapter.
type Config struct {
	Subreddits []string
	UserAgent  string
	PostsPer   int    // posts requested per subreddit
	BaseURL    string // override for tests; empty uses reddit.com
}

// NewAdapter creates a new Reddit source adapter.
// Parameters:
//   - cfg: adapter configuration.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	postsPer := cfg.PostsPer
	if postsPer <= 0 {
		postsPer = 25
	}

	return &Adapter{
		client:     client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		subreddits: cfg.Subreddits,
		postsPer:   postsPer,
	}
}

// GetSourceID returns the unique identifier for this source.
// Parameters: none.
// Returns:
//   - string: source identifier.
func (a *Adapter) GetSourceID() string {
	return "reddit"
}

// GetDisplayName returns a human-readable name for this source.
// Parameters: none.
// Returns:
//   - string: display name listing the configured subreddits.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Reddit (%s)", strings.Join(a.subreddits, ", "))
}

// listing mirrors the subset of the Reddit listing JSON the adapter reads.
type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title               string `json:"title"`
	URL                 string `json:"url"`
	URLOverriddenByDest string `json:"url_overridden_by_dest"`
	Author              string `json:"author"`
	Permalink           string `json:"permalink"`
	Ups                 int    `json:"ups"`
	Over18              bool   `json:"over_18"`
	Stickied            bool   `json:"stickied"`
	Pinned              bool   `json:"pinned"`
}

// FetchBatch fetches candidates from one subreddit per call; the cursor is
// the index into the configured subreddit list.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cursor: subreddit index as a string; empty starts at the first.
//   - limit: maximum number of candidates to return.
// Returns:
//   - []domain.Candidate: filtered image candidates.
//   - string: next subreddit index or empty when exhausted.
//   - error: non-nil if the request or decoding fails.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]domain.Candidate, string, error) {
	idx := 0
	if cursor != "" {
		var err error
		idx, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}
	if idx >= len(a.subreddits) {
		return nil, "", nil
	}

	sub := a.subreddits[idx]
	cands, err := a.fetchSubreddit(ctx, sub)
	if err != nil {
		return nil, "", err
	}
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}

	nextCursor := ""
	if idx+1 < len(a.subreddits) {
		nextCursor = strconv.Itoa(idx + 1)
	}
	return cands, nextCursor, nil
}

func (a *Adapter) fetchSubreddit(ctx context.Context, subreddit string) ([]domain.Candidate, error) {
	url := fmt.Sprintf("%s/r/%s/top.json?t=day&limit=%d", a.baseURL, subreddit, a.postsPer)

	var result listing
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", subreddit, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch r/%s: http status %d", subreddit, resp.StatusCode())
	}

	var cands []domain.Candidate
	for _, child := range result.Data.Children {
		p := child.Data
		if p.Stickied || p.Pinned || p.Over18 {
			continue
		}

		imageURL := p.URLOverriddenByDest
		if imageURL == "" {
			imageURL = p.URL
		}
		if !isImageURL(imageURL) {
			continue
		}

		sourceURL := ""
		if p.Permalink != "" {
			sourceURL = defaultBaseURL + p.Permalink
		}

		cands = append(cands, domain.Candidate{
			Source:    "reddit:" + subreddit,
			Title:     strings.TrimSpace(p.Title),
			ImageURL:  imageURL,
			SourceURL: sourceURL,
			Author:    p.Author,
			Score:     p.Ups,
		})
	}
	return cands, nil
}

// isImageURL reports whether the URL points at an accepted static image.
func isImageURL(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	for _, ext := range []string{".gifv", ".mp4", ".webm"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
