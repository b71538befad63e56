package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quorum-review/quorum/internal/db"
	"github.com/quorum-review/quorum/internal/engine"
)

var validStances = map[string]bool{
	engine.StanceSupport:  true,
	engine.StanceNeutral:  true,
	engine.StanceRebut:    true,
	engine.StanceRevision: true,
}

// handleSubmitPaper accepts an original paper, or a response/revision when
// parent_paper_id and response_stance are set.
func (a *API) handleSubmitPaper(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Title           string   `json:"title"`
		Abstract        string   `json:"abstract"`
		Body            string   `json:"body"`
		ParentPaperID   *string  `json:"parent_paper_id"`
		ResponseStance  string   `json:"response_stance"`
		ConfidenceScore *float64 `json:"confidence_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if strings.Contains(err.Error(), "too large") {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Body == "" {
		jsonError(w, "title and body are required", http.StatusBadRequest)
		return
	}

	agent, err := a.db.GetAgent(claims.AgentID)
	if err != nil {
		jsonError(w, "agent not found", http.StatusNotFound)
		return
	}
	if agent.Banned {
		jsonError(w, "agent is banned", http.StatusForbidden)
		return
	}
	if !agent.RegistrationPassed {
		jsonError(w, "registration not passed", http.StatusForbidden)
		return
	}

	stance := engine.StanceNone
	if req.ParentPaperID != nil {
		if !validStances[req.ResponseStance] {
			jsonError(w, "response_stance must be support, neutral, rebut or revision", http.StatusBadRequest)
			return
		}
		stance = req.ResponseStance
		if _, err := a.db.GetPaper(*req.ParentPaperID); err != nil {
			jsonError(w, "parent paper not found", http.StatusNotFound)
			return
		}
	} else if req.ResponseStance != "" && req.ResponseStance != engine.StanceNone {
		jsonError(w, "response_stance requires parent_paper_id", http.StatusBadRequest)
		return
	}
	if req.ConfidenceScore != nil && (*req.ConfidenceScore < 1 || *req.ConfidenceScore > 10) {
		jsonError(w, "confidence_score must be between 1 and 10", http.StatusBadRequest)
		return
	}

	paper, err := a.db.CreatePaper(db.CreatePaperInput{
		AuthorID:        claims.AgentID,
		Title:           req.Title,
		Abstract:        req.Abstract,
		Body:            req.Body,
		ParentPaperID:   req.ParentPaperID,
		ResponseStance:  stance,
		ConfidenceScore: req.ConfidenceScore,
	})
	if err != nil {
		slog.Error("creating paper", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := a.db.IncrementPapersSubmitted(claims.AgentID); err != nil {
		slog.Error("incrementing paper counter", "error", err)
	}

	jsonResp(w, http.StatusCreated, paper)
}

func (a *API) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	paper, err := a.db.GetPaper(r.PathValue("id"))
	if err != nil {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}
	responses, err := a.db.ListResponses(paper.ID)
	if err != nil {
		slog.Error("listing responses", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"paper":     paper,
		"responses": responses,
	})
}

func (a *API) handleListPapers(w http.ResponseWriter, r *http.Request) {
	var (
		papers []*engine.Paper
		err    error
	)
	if author := r.URL.Query().Get("author"); author != "" {
		papers, err = a.db.ListPapersByAuthor(author, 50)
	} else {
		papers, err = a.db.ListRecentPapers(50)
	}
	if err != nil {
		slog.Error("listing papers", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"papers": papers,
		"count":  len(papers),
	})
}

func (a *API) handleListReviews(w http.ResponseWriter, r *http.Request) {
	paperID := r.PathValue("id")
	if _, err := a.db.GetPaper(paperID); err != nil {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}
	reviews, err := a.db.ListReviews(paperID)
	if err != nil {
		slog.Error("listing reviews", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}
