// Package api provides the HTTP JSON API of the AniMerged animation catalogue.
//
// # Overview
//
// The server is built on gorilla/mux. Every request, routed or not, passes
// through one global chain before reaching the router:
//
//	request logger -> panic recovery -> request ID -> metrics -> access log
//	-> secure headers -> CORS -> rate limiter -> bearer authentication
//
// Animation routes additionally run the access gates in a fixed order:
// activated account, authenticated account, then the route's permission.
//
// # Routes
//
//	GET    /v1/ping                   service status
//	POST   /v1/users                  register (sends an activation token)
//	PUT    /v1/users/activated        redeem an activation token
//	POST   /v1/tokens/authentication  exchange email and password for a token
//	GET    /v1/animations             list (animations/read)
//	POST   /v1/animations             create (animations/write)
//	GET    /v1/animations/{id}        show (animations/read)
//	PATCH  /v1/animations/{id}        partial update (animations/write)
//	DELETE /v1/animations/{id}        delete (animations/write)
//
// # Usage
//
//	server := api.NewServer(api.Config{Env: "production", Version: version}, api.Dependencies{
//		Animations:  postgres.NewAnimationStore(db),
//		Users:       postgres.NewUserStore(db),
//		Tokens:      postgres.NewTokenStore(db, auth.NewTokenGenerator()),
//		Permissions: postgres.NewPermissionStore(db),
//		Mailer:      mailer.NewLogMailer(logger),
//		Logger:      logger,
//	})
//	http.ListenAndServe(":4000", server)
//
// # Concurrency
//
// PATCH reads the record, applies the supplied fields and writes it back with
// a compare-and-swap on the version it read. A client may also send
// X-Expected-Version to fail fast when its own copy is stale. Both cases
// respond 409 {"error": "concurrency conflict"}.
package api
