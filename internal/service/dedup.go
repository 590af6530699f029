package service

import (
	"time"

	"github.com/plentyofmemes/memepipe/internal/domain"
)

// DuplicateVerdict is the result of resolving a fingerprint against the
// corpus: either the candidate is original, or it duplicates an existing
// record.
type DuplicateVerdict struct {
	DuplicateOf string // empty means Original
}

// IsOriginal reports whether the verdict is Original.
func (v DuplicateVerdict) IsOriginal() bool {
	return v.DuplicateOf == ""
}

// DedupResolver answers duplicate queries against an in-memory snapshot of
// the corpus fingerprints, loaded once per batch run. It never mutates the
// corpus and never decides to drop or insert a candidate.
//
// The resolver is not safe for concurrent use; the pipeline serializes
// Resolve/Add with record insertion (see IngestService).
type DedupResolver struct {
	threshold int
	byMD5     map[string]string // md5 -> record id
	entries   []phashEntry      // all records with a decodable phash
}

type phashEntry struct {
	id        string
	hash      uint64
	createdAt time.Time
}

// NewDedupResolver builds a resolver from the corpus fingerprint projection.
// Entries with an undecodable phash still participate in the exact check.
// Parameters:
//   - snapshot: (id, md5, phash, created_at) projection across all statuses.
//   - threshold: Hamming distance below which records are near-duplicates.
// Returns:
//   - *DedupResolver: initialized resolver.
func NewDedupResolver(snapshot []domain.FingerprintEntry, threshold int) *DedupResolver {
	r := &DedupResolver{
		threshold: threshold,
		byMD5:     make(map[string]string, len(snapshot)),
		entries:   make([]phashEntry, 0, len(snapshot)),
	}
	for _, e := range snapshot {
		if _, ok := r.byMD5[e.MD5]; !ok {
			r.byMD5[e.MD5] = e.ID
		}
		if h, err := domain.ParsePHash(e.PHash); err == nil {
			r.entries = append(r.entries, phashEntry{id: e.ID, hash: h, createdAt: e.CreatedAt})
		}
	}
	return r
}

// Resolve returns the duplicate verdict for a fingerprint. An exact digest
// match short-circuits the perceptual scan; otherwise the nearest record
// within the threshold wins, ties broken by earliest created_at.
// Parameters:
//   - fp: candidate fingerprint.
// Returns:
//   - DuplicateVerdict: Original or DuplicateOf(existing id).
func (r *DedupResolver) Resolve(fp domain.Fingerprint) DuplicateVerdict {
	if id, ok := r.byMD5[fp.MD5]; ok {
		return DuplicateVerdict{DuplicateOf: id}
	}

	bestID := ""
	bestDist := r.threshold // strict: distance must be < threshold
	var bestCreated time.Time
	for _, e := range r.entries {
		d := domain.HammingDistance(fp.PHash, e.hash)
		if d < bestDist || (d == bestDist && bestID != "" && e.createdAt.Before(bestCreated)) {
			bestID = e.id
			bestDist = d
			bestCreated = e.createdAt
		}
	}
	if bestID == "" {
		return DuplicateVerdict{}
	}
	return DuplicateVerdict{DuplicateOf: bestID}
}

// Add feeds a freshly staged record back into the snapshot so later
// candidates in the same batch resolve against it.
// Parameters:
//   - id: record ID.
//   - fp: record fingerprint.
//   - createdAt: record creation time.
// Returns: none.
func (r *DedupResolver) Add(id string, fp domain.Fingerprint, createdAt time.Time) {
	if _, ok := r.byMD5[fp.MD5]; !ok {
		r.byMD5[fp.MD5] = id
	}
	r.entries = append(r.entries, phashEntry{id: id, hash: fp.PHash, createdAt: createdAt})
}

// Size returns the number of perceptual-hash entries in the snapshot.
func (r *DedupResolver) Size() int {
	return len(r.entries)
}
