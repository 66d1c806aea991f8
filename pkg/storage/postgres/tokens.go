package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/storage"
)

// TokenStore persists token hashes. Plaintext never reaches the database.
type TokenStore struct {
	db        *sql.DB
	generator *auth.TokenGenerator
}

// NewTokenStore creates a token store
func NewTokenStore(db *sql.DB, generator *auth.TokenGenerator) *TokenStore {
	return &TokenStore{db: db, generator: generator}
}

// New generates a token for userID and stores its hash
func (s *TokenStore) New(ctx context.Context, userID int64, ttl time.Duration, scope auth.Scope) (*auth.Token, error) {
	token, err := s.generator.Generate(userID, ttl, scope)
	if err != nil {
		return nil, err
	}

	if err := s.Insert(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Insert stores the hash of token
func (s *TokenStore) Insert(ctx context.Context, token *auth.Token) error {
	query := `
		INSERT INTO tokens (hash, user_id, expiry, scope)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query, token.Hash, token.UserID, token.Expiry, string(token.Scope))
	return storage.WrapDatabaseError("insert token", err)
}

// DeleteAllForUser removes every token of one scope owned by userID
func (s *TokenStore) DeleteAllForUser(ctx context.Context, scope auth.Scope, userID int64) error {
	query := `
		DELETE FROM tokens
		WHERE scope = $1 AND user_id = $2`

	_, err := s.db.ExecContext(ctx, query, string(scope), userID)
	return storage.WrapDatabaseError("delete tokens for user", err)
}

// DeleteExpired removes tokens past their expiry and returns how many went
func (s *TokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expiry < NOW()`)
	if err != nil {
		return 0, storage.WrapDatabaseError("delete expired tokens", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, storage.WrapDatabaseError("delete expired tokens", err)
	}
	return n, nil
}
