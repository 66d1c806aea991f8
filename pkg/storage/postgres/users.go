package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/storage"
)

const uniqueViolation = "23505"

// UserStore persists accounts
type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserStore creates a user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

// Insert stores a new user and returns it with its generated columns
func (s *UserStore) Insert(ctx context.Context, user *auth.User) (*auth.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, activated)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at, version`

	created := *user
	err := s.db.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		string(user.PasswordHash),
		user.Activated,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt, &created.Version)
	if err != nil {
		if isDuplicateEmail(err) {
			return nil, storage.ErrDuplicateEmail
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrReturningFailure
		}
		return nil, storage.WrapDatabaseError("insert user", err)
	}

	return &created, nil
}

// GetByEmail returns storage.ErrRecordNotFound for an unknown address
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `
		SELECT id, created_at, updated_at, name, email, password_hash, activated, version
		FROM users
		WHERE email = $1`

	return s.scanOne(ctx, "get user by email", query, email)
}

// GetForToken returns the owner of an unexpired token with the given scope and hash
func (s *UserStore) GetForToken(ctx context.Context, scope auth.Scope, tokenHash string) (*auth.User, error) {
	query := `
		SELECT users.id, users.created_at, users.updated_at, users.name, users.email,
			users.password_hash, users.activated, users.version
		FROM users
		INNER JOIN tokens ON users.id = tokens.user_id
		WHERE tokens.hash = $1
		AND tokens.scope = $2
		AND tokens.expiry > $3`

	return s.scanOne(ctx, "get user for token", query, tokenHash, string(scope), s.now())
}

// Update writes user if its version is still current and returns it with
// the new version. A stale version yields storage.ErrEditConflict.
func (s *UserStore) Update(ctx context.Context, user *auth.User) (*auth.User, error) {
	result, err := storage.UpdateVersioned(ctx, s.db, storage.VersionedUpdate{
		Table:   "users",
		ID:      user.ID,
		Version: user.Version,
		Fields: []storage.Field{
			{Column: "name", Value: user.Name},
			{Column: "email", Value: user.Email},
			{Column: "password_hash", Value: string(user.PasswordHash)},
			{Column: "activated", Value: user.Activated},
		},
	})
	if err != nil {
		if isDuplicateEmail(err) {
			return nil, storage.ErrDuplicateEmail
		}
		return nil, err
	}
	return user.WithVersion(result.Version, result.UpdatedAt), nil
}

// Delete removes a user together with its tokens and permission grants
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storage.WrapDatabaseError("delete user", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return storage.WrapDatabaseError("delete user", err)
	}
	if n == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func (s *UserStore) scanOne(ctx context.Context, op, query string, args ...any) (*auth.User, error) {
	var (
		user         auth.User
		passwordHash string
	)

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Name,
		&user.Email,
		&passwordHash,
		&user.Activated,
		&user.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, storage.WrapDatabaseError(op, err)
	}

	user.PasswordHash = []byte(passwordHash)
	return &user, nil
}

func isDuplicateEmail(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation &&
		(pqErr.Constraint == "users_email_key" || strings.Contains(pqErr.Message, "users_email_key"))
}
