// Package view exposes a mounted event view over a loopback JSON API so a separate
// rendering process can read the state and forward user actions.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/eventup/live/go/internal/live"
)

// Controller is the part of the live controller the view drives
type Controller interface {
	View() live.View
	Reload(ctx context.Context) error
	Vote(ctx context.Context, pollID, choiceID string) (live.VoteOutcome, error)
	SubmitAnswer(ctx context.Context, questionID, text string) error
}

// Handler serves the view routes
type Handler struct {
	controller Controller
}

// NewHandler creates a view handler
func NewHandler(controller Controller) *Handler {
	return &Handler{controller: controller}
}

type voteRequest struct {
	ChoiceID string `json:"choice_id"`
}

type voteResponse struct {
	Outcome live.VoteOutcome `json:"outcome"`
}

type answerRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes returns the view router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.HandleHealth)
	r.Route("/api/live", func(r chi.Router) {
		r.Get("/state", h.HandleGetState)
		r.Post("/reload", h.HandleReload)
		r.Post("/polls/{pollID}/vote", h.HandleVote)
		r.Post("/questions/{questionID}/answers", h.HandleAnswer)
	})
	return r
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

// HandleGetState handles GET /api/live/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleReload handles POST /api/live/reload
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleVote handles POST /api/live/polls/{pollID}/vote
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	outcome, err := h.controller.Vote(r.Context(), chi.URLParam(r, "pollID"), req.ChoiceID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if outcome == live.OutcomeInProgress {
		status = http.StatusConflict
	}
	writeJSON(w, status, voteResponse{Outcome: outcome})
}

// HandleAnswer handles POST /api/live/questions/{questionID}/answers
func (h *Handler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.controller.SubmitAnswer(r.Context(), chi.URLParam(r, "questionID"), req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// statusFor maps a controller error to an HTTP status
func statusFor(err error) int {
	var verr *live.ValidationError
	var ff *live.FetchFailure
	switch {
	case errors.Is(err, live.ErrAuthMissing):
		return http.StatusUnauthorized
	case errors.As(err, &verr):
		if verr.Reason == live.ReasonInProgress {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case errors.Is(err, live.ErrNotMounted), errors.Is(err, live.ErrNotConnected), errors.Is(err, live.ErrConnectionExhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &ff):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("view request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode view response")
	}
}
