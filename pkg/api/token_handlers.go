package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/httputil"
	"github.com/platinummonkey/animerged/pkg/storage"
	"github.com/platinummonkey/animerged/pkg/validation"
)

// createAuthenticationToken exchanges email and password for a bearer token.
// Unknown email and wrong password share one response.
func (s *Server) createAuthenticationToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	v := validation.New()
	ValidateEmail(v, input.Email)
	ValidatePassword(v, input.Password)
	if !v.Valid() {
		httputil.WriteFailedValidation(w, r, v)
		return
	}

	user, err := s.users.GetByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			err = auth.ErrInvalidCredentials
		}
		s.errorResponse(w, r, err)
		return
	}

	match, err := auth.PasswordMatches(user.PasswordHash, input.Password)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if !match {
		s.errorResponse(w, r, auth.ErrInvalidCredentials)
		return
	}

	token, err := s.tokens.New(r.Context(), user.ID, authenticationTokenTTL, auth.ScopeAuthentication)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.tokenIssued(auth.ScopeAuthentication)

	s.writeJSON(w, r, http.StatusCreated, httputil.Envelope{"authentication_token": token}, nil)
}
