package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/httputil"
	"github.com/platinummonkey/animerged/pkg/mailer"
	"github.com/platinummonkey/animerged/pkg/middleware"
	"github.com/platinummonkey/animerged/pkg/observability"
	"github.com/platinummonkey/animerged/pkg/storage"
)

// AnimationStore persists animations
type AnimationStore interface {
	Insert(ctx context.Context, anime Animation) (*Animation, error)
	Get(ctx context.Context, id int64) (*Animation, error)
	GetAll(ctx context.Context, title string, genres []string, filters Filters) ([]*Animation, error)
	Update(ctx context.Context, anime Animation) (*Animation, error)
	Delete(ctx context.Context, id int64) error
}

// UserStore persists accounts
type UserStore interface {
	Insert(ctx context.Context, user *auth.User) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	GetForToken(ctx context.Context, scope auth.Scope, tokenHash string) (*auth.User, error)
	Update(ctx context.Context, user *auth.User) (*auth.User, error)
	Delete(ctx context.Context, id int64) error
}

// TokenStore issues and revokes tokens
type TokenStore interface {
	New(ctx context.Context, userID int64, ttl time.Duration, scope auth.Scope) (*auth.Token, error)
	DeleteAllForUser(ctx context.Context, scope auth.Scope, userID int64) error
}

// PermissionStore reads and grants permission codes
type PermissionStore interface {
	GetAllForUser(ctx context.Context, userID int64) (auth.Permissions, error)
	AddForUser(ctx context.Context, userID int64, codes ...string) error
}

const (
	activationTokenTTL     = 3 * 24 * time.Hour
	authenticationTokenTTL = 24 * time.Hour
)

// Config holds the values the server reports and enforces
type Config struct {
	Env            string
	Version        string
	TrustedOrigins []string
}

// Dependencies are the collaborators of a Server. Limiter and Metrics may be nil.
type Dependencies struct {
	Animations  AnimationStore
	Users       UserStore
	Tokens      TokenStore
	Permissions PermissionStore
	Mailer      mailer.Mailer
	Limiter     *middleware.RateLimiter
	Metrics     *observability.Metrics
	Logger      *observability.Logger
}

// Server represents our API server
type Server struct {
	config      Config
	animations  AnimationStore
	users       UserStore
	tokens      TokenStore
	permissions PermissionStore
	mailer      mailer.Mailer
	limiter     *middleware.RateLimiter
	metrics     *observability.Metrics
	logger      *observability.Logger

	router  *mux.Router
	auth    *middleware.AuthMiddleware
	handler http.Handler
	now     func() time.Time
}

// NewServer creates a new API server
func NewServer(config Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		config:      config,
		animations:  deps.Animations,
		users:       deps.Users,
		tokens:      deps.Tokens,
		permissions: deps.Permissions,
		mailer:      deps.Mailer,
		limiter:     deps.Limiter,
		metrics:     deps.Metrics,
		logger:      logger,
		router:      mux.NewRouter(),
		auth:        middleware.NewAuthMiddleware(auth.NewAuthenticator(deps.Users, deps.Permissions)),
		now:         time.Now,
	}

	if s.limiter != nil && s.metrics != nil {
		s.limiter.SetRejectionCounter(s.metrics.RateLimitRejections)
	}

	s.setupRoutes()
	s.handler = s.middlewareChain()(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(httputil.WriteNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(httputil.WriteMethodNotAllowed)

	// Routes hang off the root router so its NotFound and MethodNotAllowed
	// handlers apply to every /v1 path.
	s.router.HandleFunc("/v1/ping", s.ping).Methods("GET")

	// Account routes
	s.router.HandleFunc("/v1/users", s.registerUser).Methods("POST")
	s.router.HandleFunc("/v1/users/activated", s.activateUser).Methods("PUT")
	s.router.HandleFunc("/v1/tokens/authentication", s.createAuthenticationToken).Methods("POST")

	// Animation routes
	read := func(h http.HandlerFunc) http.Handler { return s.auth.Protect(auth.PermissionAnimationsRead, h) }
	write := func(h http.HandlerFunc) http.Handler { return s.auth.Protect(auth.PermissionAnimationsWrite, h) }

	s.router.Handle("/v1/animations", read(s.listAnimations)).Methods("GET")
	s.router.Handle("/v1/animations", write(s.createAnimation)).Methods("POST")
	s.router.Handle("/v1/animations/{id}", read(s.showAnimation)).Methods("GET")
	s.router.Handle("/v1/animations/{id}", write(s.updateAnimation)).Methods("PATCH")
	s.router.Handle("/v1/animations/{id}", write(s.deleteAnimation)).Methods("DELETE")
}

// middlewareChain wraps the router so every request, matched or not, passes
// through the global middleware
func (s *Server) middlewareChain() func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.LoggerMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware,
	}
	if s.metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(s.metrics, s.router))
	}
	chain = append(chain,
		httputil.LoggingMiddleware,
		httputil.SecureHeadersMiddleware,
		httputil.CORSMiddleware(s.config.TrustedOrigins),
	)
	if s.limiter != nil {
		chain = append(chain, s.limiter.Middleware)
	}
	chain = append(chain, s.auth.Authenticate)

	return httputil.Chain(chain...)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the route table, mostly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// errorResponse maps domain errors to HTTP responses
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		httputil.WriteNotFound(w, r)
	case errors.Is(err, storage.ErrEditConflict):
		if s.metrics != nil {
			s.metrics.EditConflicts.Inc()
		}
		httputil.WriteEditConflict(w, r)
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteInvalidCredentials(w, r)
	case auth.IsCredentialError(err),
		errors.Is(err, auth.ErrAuthenticationRequired),
		errors.Is(err, auth.ErrInactiveAccount),
		errors.Is(err, auth.ErrNotPermitted):
		middleware.WriteAccessError(w, r, err)
	default:
		httputil.WriteServerError(w, r, err)
	}
}

// writeJSON writes data or, if encoding fails, a 500
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data httputil.Envelope, headers http.Header) {
	if err := httputil.WriteJSON(w, status, data, headers); err != nil {
		httputil.WriteServerError(w, r, err)
	}
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, httputil.Envelope{
		"status":      "available",
		"environment": s.config.Env,
		"version":     s.config.Version,
	}, nil)
}
