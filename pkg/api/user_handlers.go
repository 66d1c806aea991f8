package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/platinummonkey/animerged/pkg/auth"
	"github.com/platinummonkey/animerged/pkg/httputil"
	"github.com/platinummonkey/animerged/pkg/observability"
	"github.com/platinummonkey/animerged/pkg/storage"
	"github.com/platinummonkey/animerged/pkg/validation"
)

// defaultPermissions are granted to every new account
var defaultPermissions = []string{auth.PermissionAnimationsRead}

// registerUser creates an inactive account, grants read access and mails an
// activation token
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	v := validation.New()
	if ValidateRegistration(v, input); !v.Valid() {
		httputil.WriteFailedValidation(w, r, v)
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	user, err := s.users.Insert(r.Context(), &auth.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Activated:    false,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			httputil.WriteValidationError(w, r, "email", "a user with this email address already exists")
			return
		}
		s.errorResponse(w, r, err)
		return
	}

	if err := s.completeRegistration(r.Context(), user); err != nil {
		s.discardUser(r.Context(), user.ID)
		s.errorResponse(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	observability.FromContext(r.Context()).WithField("new_user_id", user.ID).Info("user registered")

	s.writeJSON(w, r, http.StatusCreated, httputil.Envelope{"user": user}, nil)
}

// completeRegistration grants the default permissions and mails a fresh
// activation token to user
func (s *Server) completeRegistration(ctx context.Context, user *auth.User) error {
	if err := s.permissions.AddForUser(ctx, user.ID, defaultPermissions...); err != nil {
		return err
	}

	token, err := s.tokens.New(ctx, user.ID, activationTokenTTL, auth.ScopeActivation)
	if err != nil {
		return err
	}
	s.tokenIssued(auth.ScopeActivation)

	if err := s.mailer.SendWelcome(ctx, user, token); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

// discardUser removes an account whose registration did not complete, so the
// address can register again. Grants and tokens go with it.
func (s *Server) discardUser(ctx context.Context, id int64) {
	if err := s.users.Delete(context.WithoutCancel(ctx), id); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("user_id", id).Error("failed to remove incomplete registration")
	}
}

// activateUser redeems an activation token
func (s *Server) activateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	if err := auth.ValidateTokenFormat(input.Token); err != nil {
		httputil.WriteValidationError(w, r, "token", strings.TrimPrefix(err.Error(), auth.ErrTokenFormat.Error()+": "))
		return
	}

	user, err := s.users.GetForToken(r.Context(), auth.ScopeActivation, auth.HashToken(input.Token))
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			httputil.WriteValidationError(w, r, "token", "invalid or expired activation token")
			return
		}
		s.errorResponse(w, r, err)
		return
	}

	user, err = s.users.Update(r.Context(), user.WithActivated(true))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if err := s.tokens.DeleteAllForUser(r.Context(), auth.ScopeActivation, user.ID); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, httputil.Envelope{"user": user}, nil)
}

func (s *Server) tokenIssued(scope auth.Scope) {
	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues(string(scope)).Inc()
	}
}
