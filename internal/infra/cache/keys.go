package cache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// TokenKey derives the cache key of a bearer token. Raw tokens are never
// stored as keys.
func TokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:])
}
