package domain

import (
	"fmt"
	"math/bits"
	"strconv"
	"time"
)

// Fingerprint is the pair of content fingerprints computed from image bytes:
// an exact MD5 digest compared by equality, and a 64-bit perceptual hash
// compared by Hamming distance.
type Fingerprint struct {
	MD5   string
	PHash uint64
}

// PHashString returns the perceptual hash as a fixed-width hex string for
// persistence.
// Parameters: none.
// Returns:
//   - string: 16-character lowercase hex encoding.
func (f Fingerprint) PHashString() string {
	return fmt.Sprintf("%016x", f.PHash)
}

// ParsePHash decodes a persisted perceptual hash hex string.
// Parameters:
//   - s: 16-character hex string.
// Returns:
//   - uint64: decoded 64-bit hash.
//   - error: non-nil if s is not valid hex.
func ParsePHash(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// HammingDistance counts differing bit positions between two 64-bit
// perceptual hashes.
// Parameters:
//   - a, b: perceptual hashes to compare.
// Returns:
//   - int: number of differing bits, 0..64.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// FingerprintEntry is the per-record projection the dedup resolver scans:
// one entry per persisted record, across all statuses.
type FingerprintEntry struct {
	ID        string
	MD5       string
	PHash     string
	CreatedAt time.Time
}
