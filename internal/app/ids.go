package app

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// newSecureToken returns a ticket token with enough entropy that tokens
// cannot be enumerated: a UUID plus 8 random bytes.
func newSecureToken() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return uuid.NewString() + "-" + hex.EncodeToString(b)
}
