package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex is used as the content-addressed paper ID.
func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}
