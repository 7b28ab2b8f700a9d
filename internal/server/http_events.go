package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/groblegark/audittrail/internal/model"
)

// parseEventQuery builds an EventQuery from the request's query string.
// Absent parameters take their defaults (the full log up to now, first page
// of 50); malformed values are rejected rather than silently dropped.
func parseEventQuery(values url.Values) (model.EventQuery, error) {
	q := model.EventQuery{
		FromTS:   0,
		ToTS:     time.Now().Unix(),
		Page:     1,
		PageSize: 50,
	}

	if v := values.Get("from_ts"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, model.QueryError("from_ts must be an integer")
		}
		q.FromTS = n
	}
	if v := values.Get("to_ts"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, model.QueryError("to_ts must be an integer")
		}
		q.ToTS = n
	}
	if v := values.Get("actor_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, model.QueryError("actor_id must be an integer")
		}
		q.ActorID = &n
	}
	if v := values.Get("action"); v != "" {
		action := model.Action(v)
		q.Action = &action
	}
	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, model.QueryError("page must be an integer")
		}
		q.Page = n
	}
	if v := values.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, model.QueryError("page_size must be an integer")
		}
		q.PageSize = n
	}
	return q, nil
}

// handleListEvents handles GET /v1/events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseEventQuery(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	page, err := s.service.ListEvents(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	ev, err := s.service.GetEvent(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleStats handles GET /v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
