package utils

import (
	"crypto/sha256"
	"encoding/base64"
)

// S256Challenge derives the PKCE S256 code challenge from a verifier
// (RFC 7636 §4.2)
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyS256 reports whether SHA-256(verifier) matches the challenge
func VerifyS256(verifier, challenge string) bool {
	return S256Challenge(verifier) == challenge
}
