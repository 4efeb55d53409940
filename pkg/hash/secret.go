package hash

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

func Hash(secret string) (string, error) {
	if len(secret) < 8 {
		return "", fmt.Errorf("secret must be at least 8 characters")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}

	return string(hashedBytes), nil
}

func Compare(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

// IsHashed reports whether stored looks like a bcrypt hash rather than a
// plain pre-shared key.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// Verify checks a presented credential against a stored one, which may be
// either a bcrypt hash or the plain secret. An empty presented value never
// matches.
func Verify(stored, presented string) bool {
	if presented == "" || stored == "" {
		return false
	}
	if IsHashed(stored) {
		return Compare(stored, presented) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
