package chunk

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a stable content hash for c, used to detect whether a
// chunk's text changed across two indexing passes without re-embedding
// unchanged content.
func Fingerprint(c *Chunk) string {
	sum := sha256.Sum256([]byte(c.Text))
	return hex.EncodeToString(sum[:])
}
