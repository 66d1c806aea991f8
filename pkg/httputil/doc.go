// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Every response body is a JSON object with a single top-level key, built
// from an Envelope. Errors always use the "error" key and one of the fixed
// client-facing messages; details of server-side failures only reach the
// request-scoped log.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{"anime": anime}, nil)
//	httputil.WriteNotFound(w, r)
//	httputil.WriteEditConflict(w, r)
//	httputil.WriteServerError(w, r, err)
//
// # Request Parsing
//
//	var input api.AnimationInput
//	if !httputil.ParseJSONOrError(w, r, &input) {
//		return // 422 already written
//	}
//
//	id, ok := httputil.ParsePathInt64OrNotFound(w, r, "id")
//	genres := httputil.ReadCSV(r.URL.Query(), "genres", nil)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware,
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.SecureHeadersMiddleware,
//		httputil.CORSMiddleware(trustedOrigins),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, access gates and rate limiting
package httputil
