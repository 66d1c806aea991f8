package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/platinummonkey/animerged/pkg/httputil"
	"github.com/platinummonkey/animerged/pkg/observability"
	"github.com/platinummonkey/animerged/pkg/storage"
	"github.com/platinummonkey/animerged/pkg/validation"
)

// ExpectedVersionHeader lets a PATCH caller pin the version it last read
const ExpectedVersionHeader = "X-Expected-Version"

func (s *Server) createAnimation(w http.ResponseWriter, r *http.Request) {
	var input AnimationInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	v := validation.New()
	if ValidateAnimationInput(v, input, false, s.now()); !v.Valid() {
		httputil.WriteFailedValidation(w, r, v)
		return
	}

	anime, err := s.animations.Insert(r.Context(), input.Apply(Animation{}))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/animations/%d", anime.ID))

	s.writeJSON(w, r, http.StatusCreated, httputil.Envelope{"anime": anime}, headers)
}

func (s *Server) showAnimation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrNotFound(w, r, "id")
	if !ok {
		return
	}

	anime, err := s.animations.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, httputil.Envelope{"anime": anime}, nil)
}

func (s *Server) listAnimations(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validation.New()

	title := httputil.ReadString(qs, "title", "")
	genres := httputil.ReadCSV(qs, "genres", []string{})
	filters := Filters{
		Page:         httputil.ReadInt(qs, "page", 1, v),
		PageSize:     httputil.ReadInt(qs, "page_size", 10, v),
		Sort:         httputil.ReadString(qs, "sort", "id"),
		SortSafelist: AnimationSortSafelist,
	}

	if ValidateFilters(v, filters); !v.Valid() {
		httputil.WriteFailedValidation(w, r, v)
		return
	}

	animations, err := s.animations.GetAll(r.Context(), title, genres, filters)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, httputil.Envelope{"animations": animations}, nil)
}

// updateAnimation applies a partial update. The version read here is the one
// the conditional write checks, so a concurrent writer between Get and Update
// surfaces as a conflict.
func (s *Server) updateAnimation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrNotFound(w, r, "id")
	if !ok {
		return
	}

	anime, err := s.animations.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if expected := r.Header.Get(ExpectedVersionHeader); expected != "" {
		if expected != strconv.Itoa(anime.Version) {
			s.errorResponse(w, r, storage.ErrEditConflict)
			return
		}
	}

	var input AnimationInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	v := validation.New()
	if ValidateAnimationInput(v, input, true, s.now()); !v.Valid() {
		httputil.WriteFailedValidation(w, r, v)
		return
	}

	updated, err := s.animations.Update(r.Context(), input.Apply(*anime))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	observability.FromContext(r.Context()).
		WithField("anime_id", updated.ID).
		WithField("version", updated.Version).
		Debug("anime updated")

	s.writeJSON(w, r, http.StatusOK, httputil.Envelope{"anime": updated}, nil)
}

func (s *Server) deleteAnimation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrNotFound(w, r, "id")
	if !ok {
		return
	}

	if err := s.animations.Delete(r.Context(), id); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, httputil.Envelope{"message": httputil.MsgAnimeDeleted}, nil)
}
