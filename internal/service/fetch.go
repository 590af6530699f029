package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ImageFetcher retrieves raw image bytes for a candidate URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchService downloads candidate images with a size cap, a per-request
// timeout, and a bounded retry policy with backoff. Failures come back as
// *FetchError values; the fetcher never panics on a bad response.
type FetchService struct {
	client   *resty.Client
	maxBytes int64
	retries  int
	backoff  time.Duration
}

// FetchConfig holds configuration for the fetch service.
type FetchConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	Retries   int
	Backoff   time.Duration
	UserAgent string
}

// NewFetchService creates a new fetch service.
// Parameters:
//   - cfg: fetch configuration; zero values get defaults.
// Returns:
//   - *FetchService: initialized fetcher.
func NewFetchService(cfg *FetchConfig) *FetchService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetDoNotParseResponse(true)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &FetchService{
		client:   client,
		maxBytes: cfg.MaxBytes,
		retries:  cfg.Retries,
		backoff:  cfg.Backoff,
	}
}

// Fetch downloads the image at url. Timeouts and 5xx responses are retried
// up to the configured attempt count with linear backoff; 4xx responses and
// oversize bodies are not retried.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - url: image URL.
// Returns:
//   - []byte: raw image bytes.
//   - error: *FetchError on failure.
func (s *FetchService) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &FetchError{Kind: FetchTimeout, URL: url, Err: ctx.Err()}
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}

		data, err := s.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var fe *FetchError
		if errors.As(err, &fe) && !retryable(fe) {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryable reports whether a fetch failure is worth another attempt.
// Client errors and oversize bodies are deterministic, so only timeouts and
// server errors retry.
func retryable(fe *FetchError) bool {
	switch fe.Kind {
	case FetchTimeout:
		return true
	case FetchHTTPError:
		return fe.StatusCode >= 500
	}
	return false
}

func (s *FetchService) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &FetchError{Kind: FetchTimeout, URL: url, Err: err}
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
		return nil, &FetchError{Kind: FetchHTTPError, URL: url, StatusCode: resp.StatusCode()}
	}

	// Reject early when the server declares an oversize body
	if cl := resp.Header().Get("Content-Length"); cl != "" {
		if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil && n > s.maxBytes {
			return nil, &FetchError{Kind: OversizeContent, URL: url}
		}
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: FetchTimeout, URL: url, Err: err}
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &FetchError{Kind: OversizeContent, URL: url}
	}

	return data, nil
}
