// Package docid derives content-addressed document ids.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
)

// Generate returns the hex encoded SHA-256 of filename followed by text.
// The same name and content always produce the same id, so re-ingesting a
// file replaces its record instead of duplicating it.
func Generate(filename, text string) string {
	h := sha256.New()
	h.Write([]byte(filename))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
