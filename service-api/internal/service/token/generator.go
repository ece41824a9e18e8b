package token

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes is the entropy of a token; its string form is twice as long
const TokenBytes = 32

// GenerateToken returns a random token rendered as lowercase hex
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenBytes)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// ValidTokenFormat reports whether s has the exact shape GenerateToken produces
func ValidTokenFormat(s string) bool {
	if len(s) != TokenBytes*2 {
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
