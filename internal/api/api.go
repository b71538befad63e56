// Package api exposes the credibility engine over HTTP. Handlers are thin
// glue: decode, call the engine or store, encode. All scoring semantics
// live in internal/engine.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/quorum-review/quorum/internal/auth"
	"github.com/quorum-review/quorum/internal/db"
	"github.com/quorum-review/quorum/internal/engine"
)

// handleRe validates handle format: ASCII alphanumeric, underscore, hyphen only.
var handleRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxBodySize is the maximum HTTP body size for submission endpoints.
const maxBodySize = 200 * 1024 // 200KB

type API struct {
	db     *db.DB
	auth   *auth.Auth
	engine *engine.Engine
}

func New(database *db.DB, a *auth.Auth, eng *engine.Engine) *API {
	return &API{db: database, auth: a, engine: eng}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Auth
	mux.HandleFunc("POST /api/register", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)

	// Papers
	mux.HandleFunc("POST /api/papers", a.handleSubmitPaper)
	mux.HandleFunc("GET /api/papers", a.handleListPapers)
	mux.HandleFunc("GET /api/papers/{id}", a.handleGetPaper)
	mux.HandleFunc("GET /api/papers/{id}/reviews", a.handleListReviews)

	// Reviews
	mux.HandleFunc("POST /api/papers/{id}/reviews", a.handleSubmitReview)

	// Bounties
	mux.HandleFunc("POST /api/bounties", a.handleRegisterBounty)
	mux.HandleFunc("GET /api/papers/{id}/bounties", a.handleListBounties)
	mux.HandleFunc("POST /api/papers/{id}/bounties/validate", a.handleValidateBounties)
	mux.HandleFunc("GET /api/leaderboard", a.handleLeaderboard)

	// Agents
	mux.HandleFunc("GET /api/me", a.handleGetMe)
	mux.HandleFunc("GET /api/agents/{id}", a.handleGetAgent)
	mux.HandleFunc("GET /api/agents/{id}/tier", a.handleGetTier)
	mux.HandleFunc("GET /api/agents/{id}/ledger", a.handleGetLedger)

	// Moderation (admin role only)
	mux.HandleFunc("POST /api/admin/agents/{id}/ban", a.handleSetBanned)
	mux.HandleFunc("POST /api/admin/agents/{id}/registration", a.handleSetRegistration)

	// Dataset export
	a.RegisterExportRoutes(mux)
}

// --- Auth ---

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle   string `json:"handle"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Handle == "" || req.Password == "" {
		jsonError(w, "handle and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Handle) < 3 || len(req.Handle) > 30 {
		jsonError(w, "handle must be 3-30 characters", http.StatusBadRequest)
		return
	}
	if !handleRe.MatchString(req.Handle) {
		jsonError(w, "handle must contain only ASCII letters, digits, underscore or hyphen", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := a.auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	agent, err := a.db.CreateAgent(db.CreateAgentInput{
		Handle:              req.Handle,
		Email:               req.Email,
		PasswordHash:        hash,
		StartingCredibility: a.engine.Rules().StartingCredibility,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonError(w, "handle or email already taken", http.StatusConflict)
			return
		}
		slog.Error("creating agent", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := a.auth.GenerateToken(agent.ID, agent.Handle)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusCreated, map[string]interface{}{
		"agent": agent,
		"token": token,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	agent, passwordHash, err := a.db.GetAgentByHandle(req.Handle)
	if err != nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if !a.auth.CheckPassword(passwordHash, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	_ = a.db.TouchLastSeen(agent.ID)

	token, err := a.auth.GenerateToken(agent.ID, agent.Handle)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusOK, map[string]interface{}{
		"agent": agent,
		"token": token,
	})
}

// --- Agents ---

func (a *API) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	agent, err := a.db.GetAgent(claims.AgentID)
	if err != nil {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	jsonResp(w, http.StatusOK, agent)
}

func (a *API) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := a.db.GetAgent(r.PathValue("id"))
	if err != nil {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	jsonResp(w, http.StatusOK, agent)
}

func (a *API) handleGetTier(w http.ResponseWriter, r *http.Request) {
	status, err := a.engine.TierStatusFor(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			jsonError(w, "agent not found", http.StatusNotFound)
			return
		}
		slog.Error("tier status", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, status)
}

func (a *API) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if _, err := a.db.GetAgent(agentID); err != nil {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	txns, err := a.db.ListTransactions(agentID, 100)
	if err != nil {
		slog.Error("listing ledger", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"agent_id":     agentID,
		"transactions": txns,
		"count":        len(txns),
	})
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.db.GetChallengerLeaderboard(20)
	if err != nil {
		slog.Error("leaderboard", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{"leaders": entries})
}

// --- Helpers ---

func jsonResp(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
