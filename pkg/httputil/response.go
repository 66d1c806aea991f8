package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/platinummonkey/animerged/pkg/observability"
	"github.com/platinummonkey/animerged/pkg/validation"
)

// Client-facing error messages
const (
	MsgServerError        = "the server encountered a problem"
	MsgNotFound           = "the requested resource could not be found"
	MsgMethodNotAllowed   = "the %s method is not supported for this resource"
	MsgBadJSON            = "failed to parse request body as json"
	MsgEditConflict       = "concurrency conflict"
	MsgRateLimitExceeded  = "rate limit exceeded"
	MsgInvalidCredentials = "invalid authentication credentials"
	MsgInvalidToken       = "invalid or missing authentication token"
	MsgAuthRequired       = "you must be authenticated to access this resource"
	MsgInactiveAccount    = "your user account must be activated"
	MsgNotPermitted       = "missing necessary permission to access resrouce"
	MsgAnimeDeleted       = "anime successfully deleted"
)

// Envelope wraps every JSON body under a named key
type Envelope map[string]any

// WriteJSON writes data with the given status and extra headers
func WriteJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	body = append(body, '\n')

	for key, values := range headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// WriteErrorMessage writes {"error": message}. Encoding failures are logged
// and answered with a bare 500.
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := WriteJSON(w, status, Envelope{"error": message}, nil); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to write error response")
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// WriteServerError logs err with the request context and hides it from the client
func WriteServerError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).
		WithError(err).
		WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).
		Error("request failed")
	WriteErrorMessage(w, r, http.StatusInternalServerError, MsgServerError)
}

// WriteNotFound writes a 404
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusNotFound, MsgNotFound)
}

// WriteMethodNotAllowed writes a 405 naming the rejected method
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusMethodNotAllowed, fmt.Sprintf(MsgMethodNotAllowed, r.Method))
}

// WriteBadJSON writes a 422 for an unparseable body
func WriteBadJSON(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusUnprocessableEntity, MsgBadJSON)
}

// WriteValidationError writes the first failing field as "field: message"
func WriteValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	WriteErrorMessage(w, r, http.StatusUnprocessableEntity, field+": "+message)
}

// WriteEditConflict writes a 409
func WriteEditConflict(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusConflict, MsgEditConflict)
}

// WriteRateLimitExceeded writes a 429
func WriteRateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusTooManyRequests, MsgRateLimitExceeded)
}

// WriteInvalidCredentials writes a 401 for a failed login
func WriteInvalidCredentials(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusUnauthorized, MsgInvalidCredentials)
}

// WriteInvalidToken writes a 401 with a bearer challenge
func WriteInvalidToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteErrorMessage(w, r, http.StatusUnauthorized, MsgInvalidToken)
}

// WriteAuthenticationRequired writes a 401 for anonymous callers
func WriteAuthenticationRequired(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusUnauthorized, MsgAuthRequired)
}

// WriteInactiveAccount writes a 403
func WriteInactiveAccount(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusForbidden, MsgInactiveAccount)
}

// WriteNotPermitted writes a 403
func WriteNotPermitted(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, http.StatusForbidden, MsgNotPermitted)
}

// WriteFailedValidation writes the first failure recorded on v as a 422
func WriteFailedValidation(w http.ResponseWriter, r *http.Request, v *validation.Validator) {
	WriteErrorMessage(w, r, http.StatusUnprocessableEntity, v.FirstError())
}
