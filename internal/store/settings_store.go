package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// SettingsStore keeps one JSON document per settings section.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get decodes the section stored under key into dst. It reports false, and
// leaves dst untouched, when nothing has been saved for key yet.
func (s *SettingsStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	if err := decodeJSON(value, dst); err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return true, nil
}

// PutAll writes every section in one transaction, so either all are saved or none.
func (s *SettingsStore) PutAll(ctx context.Context, sections map[string]any, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to roll back settings", "error", err)
		}
	}()

	for key, v := range sections {
		value, err := encodeJSON(v)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, at); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

func (s *SettingsStore) Put(ctx context.Context, key string, v any, at time.Time) error {
	return s.PutAll(ctx, map[string]any{key: v}, at)
}
