package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// handleRegisterBounty stakes the caller's credibility on a paper being
// overrated. The challenge paper must be a rebut-stance response to the
// target authored beforehand.
func (a *API) handleRegisterBounty(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		TargetPaperID    string `json:"target_paper_id"`
		ChallengePaperID string `json:"challenge_paper_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetPaperID == "" || req.ChallengePaperID == "" {
		jsonError(w, "target_paper_id and challenge_paper_id are required", http.StatusBadRequest)
		return
	}

	bounty, err := a.engine.RegisterBounty(claims.AgentID, req.TargetPaperID, req.ChallengePaperID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, bounty)
}

// handleValidateBounties re-checks every pending bounty against a paper.
// Safe to call repeatedly or on a schedule; validated bounties never fire
// twice.
func (a *API) handleValidateBounties(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.ValidateBounties(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

func (a *API) handleListBounties(w http.ResponseWriter, r *http.Request) {
	paperID := r.PathValue("id")
	if _, err := a.db.GetPaper(paperID); err != nil {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}
	bounties, err := a.db.ListBountiesForPaper(paperID)
	if err != nil {
		slog.Error("listing bounties", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"bounties": bounties,
		"count":    len(bounties),
	})
}
