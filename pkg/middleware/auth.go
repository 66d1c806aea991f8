package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/contextkeys"
	"github.com/platinummonkey/animerged/pkg/httputil"
)

// AuthMiddleware binds the access gates of auth.Authenticator to HTTP
type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate resolves the bearer token and stores the principal in the
// request context. Requests without an Authorization header continue as
// auth.AnonymousUser.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		user, err := m.authenticator.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			WriteAccessError(w, r, err)
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		if !user.IsAnonymous() {
			ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActivatedUser lets only activated accounts through
func (m *AuthMiddleware) RequireActivatedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireActivated(r.Context(), GetUser(r)); err != nil {
			WriteAccessError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthenticatedUser rejects the anonymous user
func (m *AuthMiddleware) RequireAuthenticatedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireAuthenticated(r.Context(), GetUser(r)); err != nil {
			WriteAccessError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission creates middleware that checks for a permission code
func (m *AuthMiddleware) RequirePermission(code string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.authenticator.RequirePermission(r.Context(), GetUser(r), code); err != nil {
				WriteAccessError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Protect wraps h in the activation, authentication and permission gates, in that order
func (m *AuthMiddleware) Protect(code string, h http.Handler) http.Handler {
	return m.RequireActivatedUser(m.RequireAuthenticatedUser(m.RequirePermission(code)(h)))
}

// GetUser returns the principal stored by Authenticate, or nil outside it
func GetUser(r *http.Request) *auth.User {
	user, ok := r.Context().Value(contextkeys.UserKey).(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// SetUser returns a shallow copy of r carrying user
func SetUser(r *http.Request, user *auth.User) *http.Request {
	return r.WithContext(contextkeys.WithUser(r.Context(), user))
}

// WriteAccessError maps a gate rejection to its response
func WriteAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case auth.IsCredentialError(err):
		httputil.WriteInvalidToken(w, r)
	case errors.Is(err, auth.ErrAuthenticationRequired):
		httputil.WriteAuthenticationRequired(w, r)
	case errors.Is(err, auth.ErrInactiveAccount):
		httputil.WriteInactiveAccount(w, r)
	case errors.Is(err, auth.ErrNotPermitted):
		httputil.WriteNotPermitted(w, r)
	default:
		httputil.WriteServerError(w, r, err)
	}
}
