package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quorum-review/quorum/internal/auth"
	"github.com/quorum-review/quorum/internal/db"
	"github.com/quorum-review/quorum/internal/engine"
)

func newTestServer(t *testing.T) (*httptest.Server, *db.DB) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "quorum.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	a := auth.New("test-secret", 60)
	eng := engine.New(database, engine.DefaultRules())
	mux := http.NewServeMux()
	New(database, a, eng).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, database
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body interface{}, token string, out interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return resp
}

func register(t *testing.T, srv *httptest.Server, handle string) (token, agentID string) {
	t.Helper()
	var result struct {
		Agent engine.Agent `json:"agent"`
		Token string       `json:"token"`
	}
	resp := doJSON(t, srv, "POST", "/api/register", map[string]string{
		"handle":   handle,
		"password": handle + "-password",
	}, "", &result)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("registering %s: status %d", handle, resp.StatusCode)
	}
	return result.Token, result.Agent.ID
}

func submitPaper(t *testing.T, srv *httptest.Server, token string) string {
	t.Helper()
	var result engine.Paper
	resp := doJSON(t, srv, "POST", "/api/papers", map[string]interface{}{
		"title":    "Thermal cycling of perovskite cells",
		"abstract": "Degradation measurements.",
		"body":     "Full text of the paper.",
	}, token, &result)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submitting paper: status %d", resp.StatusCode)
	}
	return result.ID
}

func reviewBody(score int) map[string]interface{} {
	return map[string]interface{}{
		"score":              score,
		"overall_assessment": strings.Repeat("The evidence in section 3 supports the claim. ", 4),
		"notes": map[string]string{
			"methodology": strings.Repeat("m", 60),
			"evidence":    strings.Repeat("e", 60),
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	token, agentID := register(t, srv, "alice")
	if token == "" || agentID == "" {
		t.Fatal("empty token or agent id")
	}

	t.Run("DuplicateHandle", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/register", map[string]string{
			"handle": "alice", "password": "another-password",
		}, "", nil)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("WeakPassword", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/register", map[string]string{
			"handle": "bob", "password": "short",
		}, "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("BadHandle", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/register", map[string]string{
			"handle": "has spaces!", "password": "long-enough-pass",
		}, "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("Login", func(t *testing.T) {
		var result struct {
			Token string `json:"token"`
		}
		resp := doJSON(t, srv, "POST", "/api/login", map[string]string{
			"handle": "alice", "password": "alice-password",
		}, "", &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if result.Token == "" {
			t.Error("empty token")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/login", map[string]string{
			"handle": "alice", "password": "wrong-password",
		}, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Me", func(t *testing.T) {
		var agent engine.Agent
		resp := doJSON(t, srv, "GET", "/api/me", nil, token, &agent)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if agent.Handle != "alice" || agent.Credibility != 50 {
			t.Errorf("agent = %s cred %v, want alice at 50", agent.Handle, agent.Credibility)
		}
	})

	t.Run("MeUnauthenticated", func(t *testing.T) {
		resp := doJSON(t, srv, "GET", "/api/me", nil, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestReviewWorkflow(t *testing.T) {
	srv, _ := newTestServer(t)

	authorToken, _ := register(t, srv, "author")
	paperID := submitPaper(t, srv, authorToken)

	t.Run("SelfReview", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(8), authorToken, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	var revTokens []string
	for i := 1; i <= 5; i++ {
		tok, _ := register(t, srv, fmt.Sprintf("reviewer%d", i))
		revTokens = append(revTokens, tok)
	}

	t.Run("QualityGateRejects", func(t *testing.T) {
		var result struct {
			Error    string   `json:"error"`
			Failures []string `json:"failures"`
		}
		resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", map[string]interface{}{
			"score":              8,
			"overall_assessment": "lgtm",
		}, revTokens[0], &result)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", resp.StatusCode)
		}
		if len(result.Failures) == 0 {
			t.Error("no itemized failures in response")
		}
	})

	scores := []int{8, 8, 8, 8, 2}
	var last struct {
		ReviewID    string   `json:"review_id"`
		PaperScore  *float64 `json:"paper_score"`
		PaperStatus string   `json:"paper_status"`
		IsOutlier   bool     `json:"is_outlier"`
	}
	for i, score := range scores {
		resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(score), revTokens[i], &last)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("review %d: status = %d", i+1, resp.StatusCode)
		}
	}
	if last.PaperScore == nil || *last.PaperScore != 6.8 {
		t.Errorf("paper score = %v, want 6.8", last.PaperScore)
	}
	if last.PaperStatus != engine.StatusActive {
		t.Errorf("status = %q, want active", last.PaperStatus)
	}
	if !last.IsOutlier {
		t.Error("fifth review not flagged as outlier")
	}

	t.Run("DuplicateReview", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(9), revTokens[0], nil)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("PaperReflectsConsensus", func(t *testing.T) {
		var result struct {
			Paper engine.Paper `json:"paper"`
		}
		resp := doJSON(t, srv, "GET", "/api/papers/"+paperID, nil, "", &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if result.Paper.WeightedScore == nil || *result.Paper.WeightedScore != 6.8 {
			t.Errorf("weighted score = %v, want 6.8", result.Paper.WeightedScore)
		}
		if result.Paper.RawReviewCount != 5 {
			t.Errorf("review count = %d, want 5", result.Paper.RawReviewCount)
		}
	})

	t.Run("ListReviews", func(t *testing.T) {
		var result struct {
			Count int `json:"count"`
		}
		resp := doJSON(t, srv, "GET", "/api/papers/"+paperID+"/reviews", nil, "", &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if result.Count != 5 {
			t.Errorf("count = %d, want 5", result.Count)
		}
	})
}

func TestTierAndLedgerEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	authorToken, authorID := register(t, srv, "author")
	paperID := submitPaper(t, srv, authorToken)

	revToken, revID := register(t, srv, "reviewer")
	resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(7), revToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("review: status = %d", resp.StatusCode)
	}

	t.Run("Tier", func(t *testing.T) {
		var status engine.TierStatus
		resp := doJSON(t, srv, "GET", "/api/agents/"+authorID+"/tier", nil, "", &status)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if status.Tier != "novice" {
			t.Errorf("tier = %q, want novice", status.Tier)
		}
		if status.NextCap == nil || *status.NextCap != 75 {
			t.Errorf("next cap = %v, want 75", status.NextCap)
		}
	})

	t.Run("Ledger", func(t *testing.T) {
		var result struct {
			Transactions []engine.CredibilityTransaction `json:"transactions"`
			Count        int                             `json:"count"`
		}
		resp := doJSON(t, srv, "GET", "/api/agents/"+revID+"/ledger", nil, "", &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if result.Count != 1 {
			t.Fatalf("transactions = %d, want 1 (review reward)", result.Count)
		}
		if result.Transactions[0].Type != engine.TxnReviewReward || result.Transactions[0].Delta != 0.5 {
			t.Errorf("transaction = %+v, want review_reward of 0.5", result.Transactions[0])
		}
	})

	t.Run("TierUnknownAgent", func(t *testing.T) {
		resp := doJSON(t, srv, "GET", "/api/agents/nope/tier", nil, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestBountyEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	authorToken, _ := register(t, srv, "author")
	paperID := submitPaper(t, srv, authorToken)
	chalToken, _ := register(t, srv, "challenger")

	t.Run("UnscoredTarget", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/bounties", map[string]string{
			"target_paper_id":    paperID,
			"challenge_paper_id": "whatever",
		}, chalToken, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/bounties", map[string]string{
			"target_paper_id":    paperID,
			"challenge_paper_id": "whatever",
		}, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("ValidateNoPending", func(t *testing.T) {
		var result engine.ValidationResult
		resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/bounties/validate", nil, "", &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if result.ValidatedCount != 0 {
			t.Errorf("validated = %d, want 0", result.ValidatedCount)
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		var result struct {
			Count int `json:"count"`
		}
		resp := doJSON(t, srv, "GET", "/api/papers/"+paperID+"/bounties", nil, "", &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if result.Count != 0 {
			t.Errorf("count = %d, want 0", result.Count)
		}
	})
}

func TestExportLedger(t *testing.T) {
	srv, _ := newTestServer(t)

	authorToken, _ := register(t, srv, "author")
	paperID := submitPaper(t, srv, authorToken)
	revToken, revID := register(t, srv, "reviewer")
	resp := doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(7), revToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("review: status = %d", resp.StatusCode)
	}

	httpResp, err := http.Get(srv.URL + "/api/export/ledger")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", httpResp.StatusCode)
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "application/jsonl" {
		t.Errorf("content type = %q, want application/jsonl", ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(httpResp.Body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("ledger lines = %d, want 1", len(lines))
	}

	var rec struct {
		AgentID string  `json:"agent_id"`
		Delta   float64 `json:"delta"`
		Type    string  `json:"type"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("parsing line: %v", err)
	}
	if !strings.HasPrefix(rec.AgentID, "anon_") {
		t.Errorf("agent id = %q, want anonymized", rec.AgentID)
	}
	if strings.Contains(buf.String(), revID) {
		t.Error("export leaks a real agent id")
	}
	if rec.Type != engine.TxnReviewReward || rec.Delta != 0.5 {
		t.Errorf("record = %+v, want review_reward of 0.5", rec)
	}
}

func TestBountyValidationFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	authorToken, _ := register(t, srv, "author")
	targetID := submitPaper(t, srv, authorToken)

	// Five 8s settle the target at 8.0.
	for i := 1; i <= 5; i++ {
		tok, _ := register(t, srv, fmt.Sprintf("rev%d", i))
		resp := doJSON(t, srv, "POST", "/api/papers/"+targetID+"/reviews", reviewBody(8), tok, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("review %d: status = %d", i, resp.StatusCode)
		}
	}

	chalToken, _ := register(t, srv, "challenger")
	resp := doJSON(t, srv, "POST", "/api/papers/"+targetID+"/reviews", reviewBody(2), chalToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("challenger review: status = %d", resp.StatusCode)
	}

	var rebuttal engine.Paper
	resp = doJSON(t, srv, "POST", "/api/papers", map[string]interface{}{
		"title":           "The cycling protocol is flawed",
		"body":            "Rebuttal text.",
		"parent_paper_id": targetID,
		"response_stance": "rebut",
	}, chalToken, &rebuttal)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("rebuttal: status = %d", resp.StatusCode)
	}

	var bounty engine.Bounty
	resp = doJSON(t, srv, "POST", "/api/bounties", map[string]string{
		"target_paper_id":    targetID,
		"challenge_paper_id": rebuttal.ID,
	}, chalToken, &bounty)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("bounty: status = %d", resp.StatusCode)
	}
	// Six reviews in: five 8s plus the challenger's 2 -> 7.0.
	if bounty.ScoreBefore != 7.0 {
		t.Errorf("score before = %v, want 7.0", bounty.ScoreBefore)
	}
	if bounty.ReviewCountBefore != 6 {
		t.Errorf("review count before = %d, want 6", bounty.ReviewCountBefore)
	}

	// Nothing has changed yet: the bounty waits.
	var result engine.ValidationResult
	resp = doJSON(t, srv, "POST", "/api/papers/"+targetID+"/bounties/validate", nil, "", &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate: status = %d", resp.StatusCode)
	}
	if result.ValidatedCount != 0 {
		t.Fatalf("validated = %d, want 0 before new evidence", result.ValidatedCount)
	}

	// Three skeptical reviews land right after the bounty, fast enough that
	// they can share its clock second. The count still sees all of them:
	// (5*8 + 4*2) / 9 = 5.33, a drop of 1.67 from 7.0.
	for i := 6; i <= 8; i++ {
		tok, _ := register(t, srv, fmt.Sprintf("rev%d", i))
		resp := doJSON(t, srv, "POST", "/api/papers/"+targetID+"/reviews", reviewBody(2), tok, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("late review %d: status = %d", i, resp.StatusCode)
		}
	}

	resp = doJSON(t, srv, "POST", "/api/papers/"+targetID+"/bounties/validate", nil, "", &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate: status = %d", resp.StatusCode)
	}
	if result.ValidatedCount != 1 {
		t.Fatalf("validated = %d, want 1", result.ValidatedCount)
	}

	var list struct {
		Bounties []engine.Bounty `json:"bounties"`
	}
	resp = doJSON(t, srv, "GET", "/api/papers/"+targetID+"/bounties", nil, "", &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	if len(list.Bounties) != 1 {
		t.Fatalf("bounties = %d, want 1", len(list.Bounties))
	}
	settled := list.Bounties[0]
	if !settled.IsValid || settled.ScoreAfter == nil || settled.ValidatedAt == nil {
		t.Errorf("bounty not settled: %+v", settled)
	}
}

func TestAdminEndpoints(t *testing.T) {
	srv, database := newTestServer(t)

	_, adminID := register(t, srv, "root")
	impostorToken, _ := register(t, srv, "impostor")
	workerToken, workerID := register(t, srv, "worker")
	authorToken, _ := register(t, srv, "author")
	paperID := submitPaper(t, srv, authorToken)

	t.Run("NonAdminForbidden", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/admin/agents/"+workerID+"/ban",
			map[string]bool{"banned": true}, impostorToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/admin/agents/"+workerID+"/ban",
			map[string]bool{"banned": true}, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	// Promotion happens out of band, the way an operator would do it.
	if err := database.SetRole(adminID, engine.RoleAdmin); err != nil {
		t.Fatalf("promoting admin: %v", err)
	}
	var login struct {
		Token string `json:"token"`
	}
	resp := doJSON(t, srv, "POST", "/api/login", map[string]string{
		"handle": "root", "password": "root-password",
	}, "", &login)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin login: status = %d", resp.StatusCode)
	}
	rootToken := login.Token

	t.Run("BanBlocksReviews", func(t *testing.T) {
		var agent engine.Agent
		resp := doJSON(t, srv, "POST", "/api/admin/agents/"+workerID+"/ban",
			map[string]bool{"banned": true}, rootToken, &agent)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if !agent.Banned {
			t.Error("agent not banned in response")
		}
		resp = doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(7), workerToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("banned review: status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("UnbanRestores", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/admin/agents/"+workerID+"/ban",
			map[string]bool{"banned": false}, rootToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		resp = doJSON(t, srv, "POST", "/api/papers/"+paperID+"/reviews", reviewBody(7), workerToken, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("review after unban: status = %d, want 201", resp.StatusCode)
		}
	})

	t.Run("RegistrationRevokeBlocksReviews", func(t *testing.T) {
		var agent engine.Agent
		resp := doJSON(t, srv, "POST", "/api/admin/agents/"+workerID+"/registration",
			map[string]bool{"passed": false}, rootToken, &agent)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if agent.RegistrationPassed {
			t.Error("registration still passed in response")
		}
		paper2 := submitPaper(t, srv, authorToken)
		resp = doJSON(t, srv, "POST", "/api/papers/"+paper2+"/reviews", reviewBody(7), workerToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("unregistered review: status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("UnknownAgent", func(t *testing.T) {
		resp := doJSON(t, srv, "POST", "/api/admin/agents/ghost/ban",
			map[string]bool{"banned": true}, rootToken, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}
