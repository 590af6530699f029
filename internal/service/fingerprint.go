package service

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"github.com/plentyofmemes/memepipe/internal/domain"
	_ "golang.org/x/image/webp"
)

// Fingerprinter computes content fingerprints from raw image bytes. It has no
// knowledge of the persisted corpus.
type Fingerprinter struct{}

// NewFingerprinter creates a new fingerprint engine.
// Parameters: none.
// Returns:
//   - *Fingerprinter: initialized engine.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Fingerprint computes the exact digest and the 64-bit perceptual hash of the
// image. Both are deterministic: identical bytes always yield the same pair,
// and re-encoded or resized variants of the same image yield perceptual
// hashes within a small Hamming distance.
// Parameters:
//   - data: raw image bytes.
// Returns:
//   - domain.Fingerprint: computed digest pair.
//   - error: non-nil if the image cannot be decoded.
func (f *Fingerprinter) Fingerprint(data []byte) (domain.Fingerprint, error) {
	sum := md5.Sum(data)
	fp := domain.Fingerprint{MD5: hex.EncodeToString(sum[:])}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}
	fp.PHash = hash.GetHash()

	return fp, nil
}
