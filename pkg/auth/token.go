package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// TokenEntropyBytes is the number of random bytes behind every token (128 bits)
	TokenEntropyBytes = 16
	// TokenLength is the length of the base32 plaintext without padding
	TokenLength = 26
)

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TokenGenerator generates and validates bearer tokens
type TokenGenerator struct {
	random io.Reader
	now    func() time.Time
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{
		random: rand.Reader,
		now:    time.Now,
	}
}

// Generate creates a new token for a user, valid for ttl in the given scope.
// Only the returned Token carries the plaintext; persist Hash, never Plaintext.
func (tg *TokenGenerator) Generate(userID int64, ttl time.Duration, scope Scope) (*Token, error) {
	randomBytes := make([]byte, TokenEntropyBytes)
	if _, err := io.ReadFull(tg.random, randomBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}

	plaintext := tokenEncoding.EncodeToString(randomBytes)

	return &Token{
		UserID:    userID,
		Plaintext: plaintext,
		Hash:      HashToken(plaintext),
		Expiry:    tg.now().Add(ttl).Truncate(time.Second),
		Scope:     scope,
	}, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func HashToken(plaintext string) string {
	hash := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct shape.
// It does not touch storage.
func ValidateTokenFormat(plaintext string) error {
	if strings.TrimSpace(plaintext) == "" {
		return fmt.Errorf("%w: must be provided", ErrTokenFormat)
	}
	if len(plaintext) != TokenLength {
		return fmt.Errorf("%w: must be %d bytes long", ErrTokenFormat, TokenLength)
	}
	return nil
}
