package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/store"
)

type createProfileRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=200"`
	Category string `json:"category" validate:"omitempty,oneof=friend family colleague other"`
	Notes    string `json:"notes" validate:"max=5000"`
}

type updateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=200"`
	Category *string `json:"category" validate:"omitempty,oneof=friend family colleague other"`
	Notes    *string `json:"notes" validate:"omitempty,max=5000"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.engine.CreateProfile(r.Context(), auth.OwnerFrom(r.Context()), store.NewProfile{
		Name:     req.Name,
		Category: req.Category,
		Notes:    req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ProfileFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}
	if f.Category != "" && !store.ValidCategory(f.Category) {
		s.writeError(w, r, apperr.Validation("category", "unknown category "+f.Category))
		return
	}

	out, err := s.engine.ListProfiles(r.Context(), auth.OwnerFrom(r.Context()), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.GetProfile(r.Context(), auth.OwnerFrom(r.Context()), chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.engine.UpdateProfile(r.Context(), auth.OwnerFrom(r.Context()), chi.URLParam(r, "profileID"), store.ProfilePatch{
		Name:     req.Name,
		Category: req.Category,
		Notes:    req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")
	if err := s.engine.DeleteProfile(r.Context(), auth.OwnerFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (s *Server) handleProfileStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.ProfileStats(r.Context(), auth.OwnerFrom(r.Context()), chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
