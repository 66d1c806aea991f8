package auth

import (
	"encoding/json"
	"time"
)

// Scope is the single action class a token authorizes
type Scope string

const (
	ScopeActivation     Scope = "activation"     // Activates a freshly registered account
	ScopeAuthentication Scope = "authentication" // Authenticates API requests
)

// Token is an issued bearer credential.
// Plaintext is only populated at generation time.
type Token struct {
	UserID    int64     `json:"-"`
	Plaintext string    `json:"token"`
	Hash      string    `json:"-"`
	Expiry    time.Time `json:"expiry"`
	Scope     Scope     `json:"-"`
}

// MarshalJSON renders expiry with second precision and a zone offset
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Token  string `json:"token"`
		Expiry string `json:"expiry"`
	}{
		Token:  t.Plaintext,
		Expiry: t.Expiry.Format(time.RFC3339),
	})
}

// User represents an account. Values are treated as immutable;
// state transitions go through the With* methods.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Activated    bool      `json:"activated"`
	Version      int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnonymousUser is the principal of a request without credentials
var AnonymousUser = &User{}

// IsAnonymous reports whether u is the anonymous principal
func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

// WithActivated returns a copy of u with the activation flag set
func (u User) WithActivated(activated bool) *User {
	u.Activated = activated
	return &u
}

// WithVersion returns a copy of u carrying a new version and modification time
func (u User) WithVersion(version int, updatedAt time.Time) *User {
	u.Version = version
	u.UpdatedAt = updatedAt
	return &u
}

// WithPasswordHash returns a copy of u with the given password hash
func (u User) WithPasswordHash(hash []byte) *User {
	u.PasswordHash = hash
	return &u
}

// Permission codes granted to users
const (
	PermissionAnimationsRead  = "animations/read"
	PermissionAnimationsWrite = "animations/write"
)

// Permissions is the flat set of capability codes granted to a user
type Permissions []string

// Include reports whether code is present. Matching is exact and case-sensitive.
func (p Permissions) Include(code string) bool {
	for _, granted := range p {
		if granted == code {
			return true
		}
	}
	return false
}
