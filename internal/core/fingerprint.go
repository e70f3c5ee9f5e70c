package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the content fingerprint of an uploaded receipt: the
// SHA-256 hex digest of the raw byte stream. It depends on nothing but the
// bytes — filename, MIME type and metadata never influence the result — so
// two uploads of the same file always collide and byte-different files
// (re-compressed, cropped, rephotographed) never match.
func Fingerprint(b []byte) (string, error) {
	if len(b) == 0 {
		return "", ErrEmptyImage
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
