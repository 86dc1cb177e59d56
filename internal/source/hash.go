package source

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// HashBytes returns the hex BLAKE3-256 digest of a document's bytes.
func HashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
