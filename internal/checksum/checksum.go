// Package checksum computes content digests used to detect identical imports.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// New returns a streaming SHA-256 hash for use with io.MultiWriter.
func New() hash.Hash {
	return sha256.New()
}

// Hex returns the hex digest accumulated in h.
func Hex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
