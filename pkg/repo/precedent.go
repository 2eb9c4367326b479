package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claimlens/claimlens/engine/domain"
)

// PrecedentRepo persists precedent cases. It implements precedent.Repo.
type PrecedentRepo struct {
	db *DB
}

// NewPrecedentRepo returns a repo backed by db.
func NewPrecedentRepo(db *DB) *PrecedentRepo {
	return &PrecedentRepo{db: db}
}

// Save inserts a precedent and returns its row ID.
func (r *PrecedentRepo) Save(ctx context.Context, p domain.PrecedentCase) (int64, error) {
	factors, err := json.Marshal(p.KeyFactors)
	if err != nil {
		return 0, fmt.Errorf("repo: marshal key factors: %w", err)
	}

	res, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO precedents (case_id, claim_type, state, claim_amount, status, decision_reason, key_factors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.CaseID, p.ClaimType, p.State, p.ClaimAmount, p.Status, p.DecisionReason, string(factors), p.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("repo: save precedent: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repo: save precedent: %w", err)
	}
	return id, nil
}

// Load returns every precedent in insertion order.
func (r *PrecedentRepo) Load(ctx context.Context) ([]domain.PrecedentCase, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, case_id, claim_type, state, claim_amount, status, decision_reason, key_factors, created_at
		FROM precedents
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("repo: load precedents: %w", err)
	}
	defer rows.Close()

	var cases []domain.PrecedentCase
	for rows.Next() {
		var p domain.PrecedentCase
		var factors string
		if err := rows.Scan(&p.ID, &p.CaseID, &p.ClaimType, &p.State, &p.ClaimAmount,
			&p.Status, &p.DecisionReason, &factors, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("repo: scan precedent: %w", err)
		}
		if err := json.Unmarshal([]byte(factors), &p.KeyFactors); err != nil {
			return nil, fmt.Errorf("repo: unmarshal key factors for %s: %w", p.CaseID, err)
		}
		cases = append(cases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: load precedents: %w", err)
	}
	return cases, nil
}
