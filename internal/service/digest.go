package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// digest is the storage form for pairing secrets and enrollment tokens: the
// plaintext never touches the database.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
