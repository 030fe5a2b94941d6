package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestS256Challenge(t *testing.T) {
	// RFC 7636 appendix B reference vector
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	assert.Equal(t, challenge, S256Challenge(verifier))
	assert.True(t, VerifyS256(verifier, challenge))
	assert.False(t, VerifyS256(verifier+"x", challenge))
	assert.False(t, VerifyS256("", challenge))
}
