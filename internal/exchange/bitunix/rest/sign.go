package rest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Sign computes the Bitunix request signature:
//
//	digest = sha256hex(nonce + timestamp + apiKey + query + body)
//	sign   = sha256hex(digest + secret)
//
// query and body must already be canonical.
func Sign(nonce, timestamp, apiKey, query, body, secret string) string {
	digest := sha256Hex(nonce + timestamp + apiKey + query + body)
	return sha256Hex(digest + secret)
}

// NewNonce returns 32 random lowercase hex characters.
func NewNonce() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
