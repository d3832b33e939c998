package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Create(ctx context.Context, a *domain.Activity) (*domain.Activity, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (kind, action, subject, actor, details, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, a.Kind, a.Action, a.Subject, a.Actor, a.Details, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	out := *a
	out.ID = id
	return &out, nil
}

// ListRecent returns up to limit activities, newest first. Kinds narrows the
// result to the given kinds when non-empty.
func (s *ActivityStore) ListRecent(ctx context.Context, limit int, kinds ...domain.ActivityKind) ([]*domain.Activity, error) {
	query := `SELECT id, kind, action, subject, actor, details, created_at FROM activities`
	var args []any
	if len(kinds) > 0 {
		query += ` WHERE kind IN (?` + strings.Repeat(",?", len(kinds)-1) + `)`
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*domain.Activity
	for rows.Next() {
		a := &domain.Activity{}
		if err := rows.Scan(&a.ID, &a.Kind, &a.Action, &a.Subject, &a.Actor, &a.Details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}
