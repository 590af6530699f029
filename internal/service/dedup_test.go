package service

import (
	"testing"
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
)

func snapshotEntry(id, md5 string, phash uint64, createdAt time.Time) domain.FingerprintEntry {
	return domain.FingerprintEntry{
		ID:        id,
		MD5:       md5,
		PHash:     domain.Fingerprint{PHash: phash}.PHashString(),
		CreatedAt: createdAt,
	}
}

// TestResolveExactMatch verifies that a digest match short-circuits the
// perceptual scan, even when a perceptually closer record exists
func TestResolveExactMatch(t *testing.T) {
	base := time.Now()
	r := NewDedupResolver([]domain.FingerprintEntry{
		snapshotEntry("a", "digest-a", 0xffffffffffffffff, base),
		snapshotEntry("b", "digest-b", 0x0, base.Add(time.Minute)),
	}, 5)

	// Candidate has b's exact digest but a hash identical to a.
	v := r.Resolve(domain.Fingerprint{MD5: "digest-b", PHash: 0xffffffffffffffff})
	if v.IsOriginal() {
		t.Fatal("exact match should not resolve as original")
	}
	if v.DuplicateOf != "b" {
		t.Errorf("DuplicateOf = %s, want b (exact match wins over perceptual)", v.DuplicateOf)
	}
}

// TestResolveThresholdBoundary verifies the strict inequality: distance 5 is
// original, distance 4 is a duplicate
func TestResolveThresholdBoundary(t *testing.T) {
	base := time.Now()

	testCases := []struct {
		name         string
		candidate    uint64
		wantOriginal bool
	}{
		{name: "identical hash", candidate: 0x0, wantOriginal: false},
		{name: "distance 4", candidate: 0b1111, wantOriginal: false},
		{name: "distance 5 at boundary", candidate: 0b11111, wantOriginal: true},
		{name: "distance 6", candidate: 0b111111, wantOriginal: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewDedupResolver([]domain.FingerprintEntry{
				snapshotEntry("a", "digest-a", 0x0, base),
			}, 5)
			v := r.Resolve(domain.Fingerprint{MD5: "other-digest", PHash: tc.candidate})
			if v.IsOriginal() != tc.wantOriginal {
				t.Errorf("IsOriginal() = %v, want %v", v.IsOriginal(), tc.wantOriginal)
			}
			if !tc.wantOriginal && v.DuplicateOf != "a" {
				t.Errorf("DuplicateOf = %s, want a", v.DuplicateOf)
			}
		})
	}
}

// TestResolveNearestWins verifies the nearest record wins when several fall
// under the threshold
func TestResolveNearestWins(t *testing.T) {
	base := time.Now()
	r := NewDedupResolver([]domain.FingerprintEntry{
		snapshotEntry("far", "d1", 0b1111, base),                // distance 4
		snapshotEntry("near", "d2", 0b1, base.Add(time.Minute)), // distance 1
	}, 5)

	v := r.Resolve(domain.Fingerprint{MD5: "other", PHash: 0x0})
	if v.DuplicateOf != "near" {
		t.Errorf("DuplicateOf = %s, want near", v.DuplicateOf)
	}
}

// TestResolveTieBreakEarliest verifies equidistant matches resolve to the
// record created first
func TestResolveTieBreakEarliest(t *testing.T) {
	base := time.Now()
	r := NewDedupResolver([]domain.FingerprintEntry{
		snapshotEntry("younger", "d1", 0b0011, base.Add(time.Hour)), // distance 2
		snapshotEntry("older", "d2", 0b1100, base),                  // distance 2
	}, 5)

	v := r.Resolve(domain.Fingerprint{MD5: "other", PHash: 0x0})
	if v.DuplicateOf != "older" {
		t.Errorf("DuplicateOf = %s, want older (earliest created_at wins ties)", v.DuplicateOf)
	}
}

// TestResolveEmptySnapshot verifies everything is original against an empty
// corpus
func TestResolveEmptySnapshot(t *testing.T) {
	r := NewDedupResolver(nil, 5)
	v := r.Resolve(domain.Fingerprint{MD5: "any", PHash: 0xabcdef})
	if !v.IsOriginal() {
		t.Errorf("empty snapshot should resolve original, got DuplicateOf=%s", v.DuplicateOf)
	}
}

// TestAddFeedsBack verifies records staged mid-batch participate in later
// verdicts of the same run
func TestAddFeedsBack(t *testing.T) {
	r := NewDedupResolver(nil, 5)

	fp := domain.Fingerprint{MD5: "digest-a", PHash: 0xff00ff00ff00ff00}
	if v := r.Resolve(fp); !v.IsOriginal() {
		t.Fatalf("first candidate should be original, got DuplicateOf=%s", v.DuplicateOf)
	}
	r.Add("a", fp, time.Now())

	// Byte-identical follow-up in the same run.
	if v := r.Resolve(fp); v.DuplicateOf != "a" {
		t.Errorf("exact follow-up DuplicateOf = %s, want a", v.DuplicateOf)
	}

	// Near variant, distance 2.
	near := domain.Fingerprint{MD5: "digest-b", PHash: fp.PHash ^ 0b11}
	if v := r.Resolve(near); v.DuplicateOf != "a" {
		t.Errorf("near follow-up DuplicateOf = %s, want a", v.DuplicateOf)
	}

	if r.Size() != 1 {
		t.Errorf("Size() = %d, want 1", r.Size())
	}
}

// TestUndecodablePHashStillExactChecks verifies entries with a corrupt phash
// remain visible to the exact check
func TestUndecodablePHashStillExactChecks(t *testing.T) {
	r := NewDedupResolver([]domain.FingerprintEntry{
		{ID: "a", MD5: "digest-a", PHash: "not-hex", CreatedAt: time.Now()},
	}, 5)

	if v := r.Resolve(domain.Fingerprint{MD5: "digest-a", PHash: 0x0}); v.DuplicateOf != "a" {
		t.Errorf("DuplicateOf = %s, want a", v.DuplicateOf)
	}
	if r.Size() != 0 {
		t.Errorf("Size() = %d, want 0 (corrupt phash excluded from scan)", r.Size())
	}
}
