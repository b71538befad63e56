package db

import (
	"database/sql"
	"fmt"

	"github.com/quorum-review/quorum/internal/engine"
)

// RecordTransaction appends a ledger entry and moves the agent's live
// balance to BalanceAfter in one database transaction, so the ledger and
// the balance can never disagree.
func (db *DB) RecordTransaction(txn *engine.CredibilityTransaction) error {
	txn.ID = NewID()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO credibility_transactions (id, agent_id, delta, balance_after, reason, type,
			related_paper_id, related_review_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.AgentID, txn.Delta, txn.BalanceAfter, txn.Reason, txn.Type,
		txn.RelatedPaperID, txn.RelatedReviewID)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}

	res, err := tx.Exec(`UPDATE agents SET credibility = ? WHERE id = ?`,
		txn.BalanceAfter, txn.AgentID)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("agent %s: %w", txn.AgentID, engine.ErrNotFound)
	}

	return tx.Commit()
}

// ListTransactions returns an agent's ledger, newest first.
func (db *DB) ListTransactions(agentID string, limit int) ([]*engine.CredibilityTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, agent_id, delta, balance_after, reason, type,
			related_paper_id, related_review_id, created_at
		FROM credibility_transactions
		WHERE agent_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*engine.CredibilityTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, txn)
	}
	return results, rows.Err()
}

// ListAllTransactions streams the whole ledger in insertion order, for
// export and audit replay.
func (db *DB) ListAllTransactions() ([]*engine.CredibilityTransaction, error) {
	rows, err := db.Query(`
		SELECT id, agent_id, delta, balance_after, reason, type,
			related_paper_id, related_review_id, created_at
		FROM credibility_transactions
		ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*engine.CredibilityTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, txn)
	}
	return results, rows.Err()
}

// LedgerBalance returns the agent's last recorded balance_after, or the
// fallback when the agent has no transactions yet. Used to verify the
// ledger reconstructs the live balance.
func (db *DB) LedgerBalance(agentID string, fallback float64) (float64, error) {
	var balance float64
	err := db.QueryRow(`
		SELECT balance_after FROM credibility_transactions
		WHERE agent_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, agentID).Scan(&balance)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	return balance, err
}

func scanTransaction(rows *sql.Rows) (*engine.CredibilityTransaction, error) {
	txn := &engine.CredibilityTransaction{}
	var paperID, reviewID sql.NullString
	err := rows.Scan(
		&txn.ID, &txn.AgentID, &txn.Delta, &txn.BalanceAfter, &txn.Reason, &txn.Type,
		&paperID, &reviewID, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paperID.Valid {
		txn.RelatedPaperID = &paperID.String
	}
	if reviewID.Valid {
		txn.RelatedReviewID = &reviewID.String
	}
	return txn, nil
}
