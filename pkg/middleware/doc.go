// Package middleware provides HTTP middleware for authentication, access gates and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: bearer token authentication and the access gates
//
//	am := middleware.NewAuthMiddleware(auth.NewAuthenticator(users, permissions))
//	router.Use(am.Authenticate)
//	// Resolves "Authorization: Bearer <token>" and stores *auth.User in the context.
//	// No header means auth.AnonymousUser.
//
//	router.Handle("/v1/animations", am.Protect(auth.PermissionAnimationsWrite, h))
//	// activated → authenticated → permission, first rejection wins
//
// RateLimiter: Redis-backed fixed window per client IP
//
//	limiter := middleware.NewRateLimiter(counterStore, middleware.DefaultRateLimitConfig())
//	router.Use(limiter.Middleware)
//
// # Rate Limiting
//
// Default: 30 requests per client IP, counter TTL 60s refreshed on every
// counted request. Rejected requests are not counted.
//
// # Related Packages
//
//   - pkg/auth: Token resolution and gate logic
//   - pkg/storage/redis: CounterStore implementation
//   - pkg/httputil: Error responses
package middleware
