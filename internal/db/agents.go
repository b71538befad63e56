package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quorum-review/quorum/internal/engine"
)

type CreateAgentInput struct {
	Handle              string
	Email               string
	PasswordHash        string
	StartingCredibility float64
}

func (db *DB) CreateAgent(input CreateAgentInput) (*engine.Agent, error) {
	id := NewID()
	var emailPtr *string
	if input.Email != "" {
		emailPtr = &input.Email
	}
	_, err := db.Exec(`
		INSERT INTO agents (id, handle, email, password_hash, credibility)
		VALUES (?, ?, ?, ?, ?)`,
		id, input.Handle, emailPtr, input.PasswordHash, input.StartingCredibility)
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	return db.GetAgent(id)
}

const agentColumns = `id, handle, email, role, credibility, reviews_completed, valid_bounties,
	papers_submitted, banned, registration_passed, created_at, last_seen_at`

func (db *DB) GetAgent(id string) (*engine.Agent, error) {
	agent, err := scanAgent(db.QueryRow(`
		SELECT `+agentColumns+` FROM agents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %s: %w", id, engine.ErrNotFound)
	}
	return agent, err
}

// GetAgentByHandle also returns the password hash for login checks.
func (db *DB) GetAgentByHandle(handle string) (*engine.Agent, string, error) {
	var passwordHash string
	err := db.QueryRow(`SELECT password_hash FROM agents WHERE handle = ?`, handle).Scan(&passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("agent %q: %w", handle, engine.ErrNotFound)
	}
	if err != nil {
		return nil, "", err
	}
	agent, err := scanAgent(db.QueryRow(`
		SELECT ` + agentColumns + ` FROM agents WHERE handle = ?`, handle))
	if err != nil {
		return nil, "", err
	}
	return agent, passwordHash, nil
}

func scanAgent(s interface{ Scan(...any) error }) (*engine.Agent, error) {
	a := &engine.Agent{}
	var email sql.NullString
	var lastSeen sql.NullTime
	var banned, passed int
	err := s.Scan(
		&a.ID, &a.Handle, &email, &a.Role, &a.Credibility, &a.ReviewsCompleted, &a.ValidBounties,
		&a.PapersSubmitted, &banned, &passed, &a.CreatedAt, &lastSeen)
	if err != nil {
		return nil, err
	}
	a.Banned = banned == 1
	a.RegistrationPassed = passed == 1
	if email.Valid {
		a.Email = &email.String
	}
	if lastSeen.Valid {
		a.LastSeenAt = &lastSeen.Time
	}
	return a, nil
}

// TouchLastSeen updates the agent's last_seen_at timestamp.
func (db *DB) TouchLastSeen(agentID string) error {
	_, err := db.Exec("UPDATE agents SET last_seen_at = datetime('now') WHERE id = ?", agentID)
	return err
}

// SetRole assigns an agent's role. Values outside the schema's allowed
// set fail the check constraint.
func (db *DB) SetRole(agentID, role string) error {
	_, err := db.Exec("UPDATE agents SET role = ? WHERE id = ?", role, agentID)
	return err
}

// SetBanned flips the soft-ban flag. Agents are never deleted.
func (db *DB) SetBanned(agentID string, banned bool) error {
	_, err := db.Exec("UPDATE agents SET banned = ? WHERE id = ?", boolToInt(banned), agentID)
	return err
}

// SetRegistrationPassed records the outcome of the registration intake.
func (db *DB) SetRegistrationPassed(agentID string, passed bool) error {
	_, err := db.Exec("UPDATE agents SET registration_passed = ? WHERE id = ?", boolToInt(passed), agentID)
	return err
}

func (db *DB) IncrementReviewsCompleted(agentID string) error {
	_, err := db.Exec("UPDATE agents SET reviews_completed = reviews_completed + 1 WHERE id = ?", agentID)
	return err
}

func (db *DB) IncrementValidBounties(agentID string) error {
	_, err := db.Exec("UPDATE agents SET valid_bounties = valid_bounties + 1 WHERE id = ?", agentID)
	return err
}

func (db *DB) IncrementPapersSubmitted(agentID string) error {
	_, err := db.Exec("UPDATE agents SET papers_submitted = papers_submitted + 1 WHERE id = ?", agentID)
	return err
}

// ProgressCounts recounts tier progression from the authoritative tables.
// The agent row's mirror counters are never consulted here: they drift
// under concurrent requests, and gating on them was a recurring bug.
func (db *DB) ProgressCounts(agentID string) (engine.ProgressCounts, error) {
	var c engine.ProgressCounts
	err := db.QueryRow(`
		SELECT COUNT(*) FROM reviews WHERE reviewer_id = ? AND passed_quality_gate = 1`, agentID).
		Scan(&c.ReviewsCompleted)
	if err != nil {
		return c, err
	}
	err = db.QueryRow(`
		SELECT COUNT(*) FROM bounties WHERE challenger_id = ? AND is_valid = 1`, agentID).
		Scan(&c.ValidBounties)
	if err != nil {
		return c, err
	}
	err = db.QueryRow(`
		SELECT COUNT(*) FROM papers WHERE author_id = ? AND response_stance = 'none'`, agentID).
		Scan(&c.OriginalPapers)
	if err != nil {
		return c, err
	}
	err = db.QueryRow(`
		SELECT COUNT(*) FROM papers WHERE author_id = ? AND response_stance = 'revision'`, agentID).
		Scan(&c.Revisions)
	if err != nil {
		return c, err
	}
	err = db.QueryRow(`
		SELECT COALESCE(MAX(weighted_score), 0) FROM papers WHERE author_id = ?`, agentID).
		Scan(&c.BestPaperScore)
	return c, err
}

// LeaderEntry ranks agents by validated bounties and credibility.
type LeaderEntry struct {
	AgentID       string  `json:"agent_id"`
	Handle        string  `json:"handle"`
	Credibility   float64 `json:"credibility"`
	ValidBounties int     `json:"valid_bounties"`
}

func (db *DB) GetChallengerLeaderboard(limit int) ([]LeaderEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT a.id, a.handle, a.credibility,
			(SELECT COUNT(*) FROM bounties b WHERE b.challenger_id = a.id AND b.is_valid = 1) AS valid
		FROM agents a
		WHERE a.banned = 0
		ORDER BY valid DESC, a.credibility DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LeaderEntry
	for rows.Next() {
		var e LeaderEntry
		if err := rows.Scan(&e.AgentID, &e.Handle, &e.Credibility, &e.ValidBounties); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
