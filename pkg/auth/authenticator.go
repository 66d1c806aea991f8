package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/animerged/pkg/storage"
)

// TokenUserLookup finds the owner of an unexpired token.
// It returns storage.ErrRecordNotFound when no row matches.
type TokenUserLookup interface {
	GetForToken(ctx context.Context, scope Scope, tokenHash string) (*User, error)
}

// PermissionLookup lists the permission codes granted to a user
type PermissionLookup interface {
	GetAllForUser(ctx context.Context, userID int64) (Permissions, error)
}

// Authenticator resolves bearer credentials and evaluates the access gates.
// It holds no per-request state and is safe for concurrent use.
type Authenticator struct {
	users       TokenUserLookup
	permissions PermissionLookup
}

// NewAuthenticator creates an authenticator backed by the given stores
func NewAuthenticator(users TokenUserLookup, permissions PermissionLookup) *Authenticator {
	return &Authenticator{
		users:       users,
		permissions: permissions,
	}
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value
func ParseBearer(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrMalformedCredential
	}
	return parts[1], nil
}

// Resolve maps an Authorization header to a principal.
// An empty header is the anonymous user, not an error.
func (a *Authenticator) Resolve(ctx context.Context, header string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if header == "" {
		return AnonymousUser, nil
	}

	plaintext, err := ParseBearer(header)
	if err != nil {
		return nil, err
	}
	if err := ValidateTokenFormat(plaintext); err != nil {
		return nil, ErrInvalidCredential
	}

	user, err := a.users.GetForToken(ctx, ScopeAuthentication, HashToken(plaintext))
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to look up token owner: %w", err)
	}

	return user, nil
}

// RequireActivated rejects anonymous and not yet activated users
func RequireActivated(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil || user.IsAnonymous() || !user.Activated {
		return ErrInactiveAccount
	}
	return nil
}

// RequireAuthenticated rejects the anonymous user
func RequireAuthenticated(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil || user.IsAnonymous() {
		return ErrAuthenticationRequired
	}
	return nil
}

// RequirePermission checks that user has been granted code
func (a *Authenticator) RequirePermission(ctx context.Context, user *User, code string) error {
	if err := RequireAuthenticated(ctx, user); err != nil {
		return err
	}

	permissions, err := a.permissions.GetAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}
	if !permissions.Include(code) {
		return ErrNotPermitted
	}
	return nil
}
