package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	payload := []byte("image-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 5 * time.Second, MaxBytes: 1024})
	data, err := svc.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Fetch returned %q, want %q", data, payload)
	}
}

// TestFetchNotFoundNoRetry verifies 4xx responses fail immediately without
// burning retry attempts
func TestFetchNotFoundNoRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 5 * time.Second, Retries: 3, Backoff: time.Millisecond})
	_, err := svc.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Kind != FetchHTTPError || fe.StatusCode != 404 {
		t.Errorf("FetchError = %+v, want http_error 404", fe)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, 4xx must not retry", n)
	}
}

// TestFetchServerErrorRetries verifies 5xx responses retry up to the limit
// and a later success wins
func TestFetchServerErrorRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 5 * time.Second, Retries: 3, Backoff: time.Millisecond})
	data, err := svc.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(data) != "recovered" {
		t.Errorf("Fetch returned %q, want recovered", data)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("server hit %d times, want 3", n)
	}
}

func TestFetchRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 5 * time.Second, Retries: 2, Backoff: time.Millisecond})
	_, err := svc.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Kind != FetchHTTPError || fe.StatusCode != 500 {
		t.Errorf("FetchError = %+v, want http_error 500", fe)
	}
}

// TestFetchOversizeBody verifies the read cap rejects bodies above the limit
// even without a Content-Length header
func TestFetchOversizeBody(t *testing.T) {
	big := make([]byte, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 5 * time.Second, MaxBytes: 1024, Retries: 2, Backoff: time.Millisecond})
	_, err := svc.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Kind != OversizeContent {
		t.Errorf("Kind = %s, want oversize", fe.Kind)
	}
}

func TestFetchOversizeContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "9999999")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 9999999))
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 5 * time.Second, MaxBytes: 1024})
	_, err := svc.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Kind != OversizeContent {
		t.Errorf("Kind = %s, want oversize", fe.Kind)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	svc := NewFetchService(&FetchConfig{Timeout: 20 * time.Millisecond, Retries: 1, Backoff: time.Millisecond})
	_, err := svc.Fetch(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Kind != FetchTimeout {
		t.Errorf("Kind = %s, want timeout", fe.Kind)
	}
}
