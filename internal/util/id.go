package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a collision-resistant identifier. Item ids are assigned at
// creation and never reused, so 128 random bits keep them unique for the
// lifetime of a board.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
