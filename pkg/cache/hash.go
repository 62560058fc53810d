package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// hashKey joins the parts and hashes them behind prefix, as "prefix:hash".
func hashKey(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
