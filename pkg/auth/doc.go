// Package auth provides bearer token issuance, password hashing and the
// access gates used by the animerged API.
//
// # Tokens
//
// Tokens are 16 random bytes encoded as unpadded base32 (26 characters).
// Only the SHA-256 hex digest is stored; the plaintext is handed to the
// client once, in a response body or an email.
//
//	generator := auth.NewTokenGenerator()
//	token, err := generator.Generate(user.ID, 24*time.Hour, auth.ScopeAuthentication)
//	// token.Plaintext -> client
//	// token.Hash      -> tokens table
//
// Every token has exactly one Scope. A token issued for activation never
// satisfies an authentication lookup.
//
// # Access gates
//
// Authenticator evaluates the gates in a fixed order:
//
//	user, err := authenticator.Resolve(ctx, r.Header.Get("Authorization"))
//	err = auth.RequireActivated(ctx, user)
//	err = auth.RequireAuthenticated(ctx, user)
//	err = authenticator.RequirePermission(ctx, user, auth.PermissionAnimationsWrite)
//
// A missing header resolves to AnonymousUser. A header that is present but
// malformed, or a token that is unknown or expired, is always an error and
// never falls back to anonymous access.
//
// The HTTP bindings live in package middleware.
package auth
