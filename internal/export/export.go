// Package export produces JSONL datasets from the review marketplace with
// agent anonymization: the full credibility ledger for audit replay, and
// per-paper review records for downstream analysis.
package export

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quorum-review/quorum/internal/db"
	"github.com/quorum-review/quorum/internal/engine"
)

// LedgerRecord is one anonymized credibility transaction (one JSONL line).
type LedgerRecord struct {
	ExportedAt     string  `json:"exported_at"`
	Version        string  `json:"export_version"`
	AgentID        string  `json:"agent_id"` // anonymized
	Delta          float64 `json:"delta"`
	BalanceAfter   float64 `json:"balance_after"`
	Reason         string  `json:"reason"`
	Type           string  `json:"type"`
	RelatedPaperID *string `json:"related_paper_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// PaperRecord is one paper with its reviews, anonymized.
type PaperRecord struct {
	ExportedAt    string         `json:"exported_at"`
	Version       string         `json:"export_version"`
	PaperID       string         `json:"paper_id"`
	AuthorID      string         `json:"author_id"` // anonymized
	Stance        string         `json:"response_stance"`
	WeightedScore *float64       `json:"weighted_score,omitempty"`
	Variance      *float64       `json:"score_variance,omitempty"`
	Status        string         `json:"status"`
	ReviewCount   int            `json:"review_count"`
	Reviews       []ReviewRecord `json:"reviews"`
}

// ReviewRecord is one anonymized review inside a PaperRecord.
type ReviewRecord struct {
	ReviewerID string  `json:"reviewer_id"` // anonymized
	Score      int     `json:"score"`
	Weight     float64 `json:"weight"`
	IsOutlier  bool    `json:"is_outlier"`
	CreatedAt  string  `json:"created_at"`
}

// Exporter produces JSONL exports from the database.
type Exporter struct {
	database *db.DB
}

func NewExporter(database *db.DB) *Exporter {
	return &Exporter{database: database}
}

// ExportLedger writes the whole credibility ledger as JSONL, one
// transaction per line, agent IDs anonymized consistently within the
// export.
func (e *Exporter) ExportLedger(w io.Writer) error {
	txns, err := e.database.ListAllTransactions()
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	anonMap := newAnonMap()
	now := time.Now().UTC().Format(time.RFC3339)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, txn := range txns {
		rec := LedgerRecord{
			ExportedAt:     now,
			Version:        "1.0",
			AgentID:        anonMap.get(txn.AgentID),
			Delta:          txn.Delta,
			BalanceAfter:   txn.BalanceAfter,
			Reason:         txn.Reason,
			Type:           txn.Type,
			RelatedPaperID: txn.RelatedPaperID,
			CreatedAt:      txn.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// ExportPaper writes one paper with its reviews as a single JSONL line.
func (e *Exporter) ExportPaper(w io.Writer, paperID string) error {
	paper, err := e.database.GetPaper(paperID)
	if err != nil {
		return fmt.Errorf("getting paper: %w", err)
	}
	reviews, err := e.database.ListReviews(paperID)
	if err != nil {
		return fmt.Errorf("listing reviews: %w", err)
	}

	anonMap := newAnonMap()
	rec := buildPaperRecord(paper, reviews, anonMap)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}

// ExportRecentPapers writes the most recent papers as JSONL, one per line,
// sharing a single anonymization map so cross-paper reviewer identity is
// preserved without exposing real IDs.
func (e *Exporter) ExportRecentPapers(w io.Writer, limit int) error {
	papers, err := e.database.ListRecentPapers(limit)
	if err != nil {
		return err
	}

	anonMap := newAnonMap()
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, paper := range papers {
		reviews, err := e.database.ListReviews(paper.ID)
		if err != nil {
			return err
		}
		if err := enc.Encode(buildPaperRecord(paper, reviews, anonMap)); err != nil {
			return err
		}
	}
	return nil
}

func buildPaperRecord(paper *engine.Paper, reviews []*engine.Review, anonMap *anonMap) PaperRecord {
	rec := PaperRecord{
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Version:       "1.0",
		PaperID:       paper.ID,
		AuthorID:      anonMap.get(paper.AuthorID),
		Stance:        paper.ResponseStance,
		WeightedScore: paper.WeightedScore,
		Variance:      paper.ScoreVariance,
		Status:        paper.Status,
		ReviewCount:   paper.RawReviewCount,
	}
	for _, rev := range reviews {
		rec.Reviews = append(rec.Reviews, ReviewRecord{
			ReviewerID: anonMap.get(rev.ReviewerID),
			Score:      rev.Score,
			Weight:     rev.Weight,
			IsOutlier:  rev.IsOutlier,
			CreatedAt:  rev.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rec
}

// anonMap maps real agent IDs to randomized stable IDs within one export.
type anonMap struct {
	mapping map[string]string
	salt    string
}

func newAnonMap() *anonMap {
	salt := make([]byte, 16)
	rand.Read(salt)
	return &anonMap{
		mapping: make(map[string]string),
		salt:    hex.EncodeToString(salt),
	}
}

func (m *anonMap) get(realID string) string {
	if anon, ok := m.mapping[realID]; ok {
		return anon
	}
	hash := sha256.Sum256([]byte(m.salt + realID))
	anon := "anon_" + hex.EncodeToString(hash[:6])
	m.mapping[realID] = anon
	return anon
}
