package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredPlan is a persisted plan row.
type StoredPlan struct {
	ID        int64
	UserID    string
	Kind      Kind
	Plan      *Plan
	CreatedAt time.Time
}

// Repository persists generated plans.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, userID string, plan *Plan) (int64, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal plan: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO plans (user_id, kind, plan_data, created_at) VALUES (?, ?, ?, ?)`,
		userID, string(plan.Kind), string(data), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save plan: %w", err)
	}
	return res.LastInsertId()
}

// Latest returns the most recent plan of the given kind for a user, or nil
// if none has been generated yet.
func (r *Repository) Latest(ctx context.Context, userID string, kind Kind) (*StoredPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, kind, plan_data, created_at FROM plans
		 WHERE user_id = ? AND kind = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, string(kind),
	)
	stored, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return stored, err
}

func (r *Repository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, plan_data, created_at FROM plans
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var out []StoredPlan
	for rows.Next() {
		stored, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *stored)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*StoredPlan, error) {
	var stored StoredPlan
	var kind, data string
	if err := row.Scan(&stored.ID, &stored.UserID, &kind, &data, &stored.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan plan row: %w", err)
	}
	stored.Kind = Kind(kind)

	var plan Plan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode stored plan %d: %w", stored.ID, err)
	}
	stored.Plan = &plan
	return &stored, nil
}
