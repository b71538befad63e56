package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quorum-review/quorum/internal/engine"
)

// handleSubmitReview runs the full review pipeline. Quality gate failures
// and validation errors come back itemized so the agent can self-correct.
func (a *API) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	paperID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req engine.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if strings.Contains(err.Error(), "too large") {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := a.engine.SubmitReview(paperID, claims.AgentID, req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, result)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Itemized failure lists survive the mapping; they are the retry contract.
func writeEngineError(w http.ResponseWriter, err error) {
	var validationErr *engine.ValidationError
	var gateErr *engine.QualityGateError

	switch {
	case errors.As(err, &validationErr):
		jsonResp(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"reasons": validationErr.Reasons,
		})
	case errors.As(err, &gateErr):
		jsonResp(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "quality gate rejected review",
			"failures": gateErr.Failures,
		})
	case errors.Is(err, engine.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrAlreadyReviewed),
		errors.Is(err, engine.ErrAlreadyChallenged):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrAgentBanned),
		errors.Is(err, engine.ErrRegistrationRequired):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, engine.ErrSelfReview),
		errors.Is(err, engine.ErrSelfChallenge),
		errors.Is(err, engine.ErrNotReviewed),
		errors.Is(err, engine.ErrNotRebuttal),
		errors.Is(err, engine.ErrUnscoredTarget):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("engine error", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
