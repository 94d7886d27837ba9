package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/store"
)

const dateOnly = "2006-01-02"

type submitInteractionRequest struct {
	ProfileID   string `json:"profileId" validate:"required"`
	Description string `json:"description" validate:"required,notblank,max=5000"`
	Type        string `json:"type" validate:"omitempty,oneof=meeting call chat other"`
	Date        string `json:"date"`
}

type analyzeRequest struct {
	Text string `json:"text" validate:"required,notblank,max=5000"`
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseDate(field, v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return nil, apperr.Validation(field, "expected an RFC 3339 timestamp or YYYY-MM-DD date")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

func (s *Server) handleSubmitInteraction(w http.ResponseWriter, r *http.Request) {
	var req submitInteractionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	date, err := parseDate("date", req.Date, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	it, err := s.engine.SubmitInteraction(r.Context(), auth.OwnerFrom(r.Context()), engine.SubmitRequest{
		ProfileID:   req.ProfileID,
		Description: req.Description,
		Type:        req.Type,
		Date:        date,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, it)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.InteractionFilter{
		ProfileID: q.Get("profileId"),
		Type:      q.Get("type"),
	}

	var err error
	if f.Start, err = parseDate("startDate", q.Get("startDate"), false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.End, err = parseDate("endDate", q.Get("endDate"), true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, apperr.Validation("limit", "limit must be a non-negative integer"))
			return
		}
		f.Limit = n
	}

	items, err := s.engine.ListInteractions(r.Context(), auth.OwnerFrom(r.Context()), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []store.Interaction{}
	}
	writeData(w, http.StatusOK, items)
}

func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	profileID := q.Get("profileId")
	if profileID == "" {
		s.writeError(w, r, apperr.Validation("profileId", "profileId is required"))
		return
	}

	series, err := s.engine.Pulse(r.Context(), auth.OwnerFrom(r.Context()), profileID, q.Get("timeframe"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, series)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	insight, err := s.engine.Analyze(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, insight)
}
