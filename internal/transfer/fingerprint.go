package transfer

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the hex BLAKE3 digest of r's content. A stored upload
// session is only resumed when the local file still has the fingerprint it
// had when the session was created.
func Fingerprint(r io.Reader) (string, error) {
	h := blake3.New()
	buf := make([]byte, 32*1024)

	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
