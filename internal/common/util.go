package common

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// MakeRandHexString generates size random bytes using crypto/rand and
// returns them hex encoded, so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	return MakeRandHexStringFrom(rand.Reader, size)
}

// MakeRandHexStringFrom is MakeRandHexString with an explicit entropy source.
func MakeRandHexStringFrom(r io.Reader, size int) (string, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsClaimToken reports whether s has the shape of a claim token:
// exactly ClaimTokenLength lowercase hexadecimal characters.
func IsClaimToken(s string) bool {
	if len(s) != ClaimTokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// MaskToken returns a short prefix of the token suitable for audit records.
func MaskToken(token string) string {
	const visible = 8
	if len(token) <= visible {
		return token + "..."
	}
	return token[:visible] + "..."
}
