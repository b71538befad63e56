package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quorum-review/quorum/internal/engine"
)

// requireAdmin resolves the caller against the live agent row, not the
// token: demotions and bans take effect on the next request.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return false
	}
	agent, err := a.db.GetAgent(claims.AgentID)
	if err != nil || agent.Role != engine.RoleAdmin {
		jsonError(w, "admin role required", http.StatusForbidden)
		return false
	}
	return true
}

// handleSetBanned flips an agent's soft-ban flag. Banned agents keep
// their history but every engine operation rejects them.
func (a *API) handleSetBanned(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	agentID := r.PathValue("id")

	var req struct {
		Banned bool `json:"banned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := a.db.GetAgent(agentID); err != nil {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	if err := a.db.SetBanned(agentID, req.Banned); err != nil {
		slog.Error("setting ban flag", "agent", agentID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("ban flag changed", "agent", agentID, "banned", req.Banned)

	agent, err := a.db.GetAgent(agentID)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, agent)
}

// handleSetRegistration records the outcome of the registration intake.
// Agents without a passing intake cannot review or stake bounties.
func (a *API) handleSetRegistration(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	agentID := r.PathValue("id")

	var req struct {
		Passed bool `json:"passed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := a.db.GetAgent(agentID); err != nil {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	if err := a.db.SetRegistrationPassed(agentID, req.Passed); err != nil {
		slog.Error("setting registration flag", "agent", agentID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	agent, err := a.db.GetAgent(agentID)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, agent)
}
