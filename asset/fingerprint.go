package asset

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

const fingerprintBytes = 16

// Fingerprint returns a 128-bit content token for b, hex encoded.
func Fingerprint(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// QuoteETag wraps a fingerprint in double quotes.
func QuoteETag(fingerprint string) string {
	return `"` + fingerprint + `"`
}
