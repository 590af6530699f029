package service

import (
	"errors"
	"fmt"
)

// DropReason explains why the decision pipeline dropped a candidate without
// staging it. Drops are counted and logged, never surfaced to end users.
type DropReason string

const (
	// DropFetchFailed: the image could not be fetched within the retry policy.
	DropFetchFailed DropReason = "fetch_failed"
	// DropClassificationUnavailable: the safety classifier failed; the pipeline
	// fails closed and never stages a candidate whose safety is unknown.
	DropClassificationUnavailable DropReason = "classification_unavailable"
	// DropUnsafe: nsfw_score exceeded the threshold. The candidate leaves no
	// trace in the corpus.
	DropUnsafe DropReason = "unsafe"
	// DropUndecodable: image bytes could not be decoded for fingerprinting.
	DropUndecodable DropReason = "undecodable"
)

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	FetchTimeout    FetchErrorKind = "timeout"
	FetchHTTPError  FetchErrorKind = "http_error"
	OversizeContent FetchErrorKind = "oversize"
)

// FetchError is a typed fetch failure. Non-2xx responses and oversize bodies
// are returned as values of this type so the pipeline can skip the candidate
// without aborting the batch.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int // set for FetchHTTPError
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPError {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrClassifierUnavailable wraps safety classifier failures. The pipeline must
// never interpret it as a probability.
var ErrClassifierUnavailable = errors.New("safety classifier unavailable")

// ErrStorageUnavailable marks a corpus write/read failure. It is systemic:
// the current batch aborts instead of partially committing records.
var ErrStorageUnavailable = errors.New("persisted corpus unavailable")
