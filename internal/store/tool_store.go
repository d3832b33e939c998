package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const toolColumns = `id, code, name, type, description, location, status, is_standard, serial_number,
	manufacturer, model, purchase_date, last_maintenance, notes, condition, checked_out_by,
	last_checked_out, properties, created_at, updated_at`

type ToolStore struct {
	db *sql.DB
}

func NewToolStore(db *sql.DB) *ToolStore {
	return &ToolStore{db: db}
}

func scanTool(row scanner) (*domain.Tool, error) {
	t := &domain.Tool{}
	var purchase, maintained, checkedOut sql.NullTime
	var props string
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Type, &t.Description, &t.Location, &t.Status, &t.IsStandard,
		&t.SerialNumber, &t.Manufacturer, &t.Model, &purchase, &maintained, &t.Notes, &t.Condition,
		&t.CheckedOutBy, &checkedOut, &props, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.PurchaseDate = timePtr(purchase)
	t.LastMaintenance = timePtr(maintained)
	t.LastCheckedOut = timePtr(checkedOut)
	if err := decodeJSON(props, &t.Properties); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ToolStore) Create(ctx context.Context, t *domain.Tool) (*domain.Tool, error) {
	props, err := encodeJSON(propsOrEmpty(t.Properties))
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tools (code, name, type, description, location, status, is_standard, serial_number,
			manufacturer, model, purchase_date, last_maintenance, notes, condition, checked_out_by,
			last_checked_out, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Code, t.Name, t.Type, t.Description, t.Location, t.Status, t.IsStandard, t.SerialNumber,
		t.Manufacturer, t.Model, nullTime(t.PurchaseDate), nullTime(t.LastMaintenance), t.Notes, t.Condition,
		t.CheckedOutBy, nullTime(t.LastCheckedOut), props, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("tool %s already exists: %w", t.Code, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tool: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ToolStore) GetByID(ctx context.Context, id int64) (*domain.Tool, error) {
	t, err := scanTool(s.db.QueryRowContext(ctx, `
		SELECT `+toolColumns+` FROM tools WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	return t, nil
}

// GetByCode matches the tool code case-insensitively.
func (s *ToolStore) GetByCode(ctx context.Context, code string) (*domain.Tool, error) {
	t, err := scanTool(s.db.QueryRowContext(ctx, `
		SELECT `+toolColumns+` FROM tools WHERE code = ? COLLATE NOCASE
	`, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	return t, nil
}

func (s *ToolStore) List(ctx context.Context) ([]*domain.Tool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+toolColumns+` FROM tools ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var tools []*domain.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		tools = append(tools, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tools: %w", err)
	}

	return tools, nil
}

// CountByType counts tools whose type string equals typeName exactly.
func (s *ToolStore) CountByType(ctx context.Context, typeName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tools WHERE type = ?
	`, typeName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tools: %w", err)
	}
	return n, nil
}

func (s *ToolStore) Update(ctx context.Context, t *domain.Tool) error {
	props, err := encodeJSON(propsOrEmpty(t.Properties))
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tools
		SET name = ?, type = ?, description = ?, location = ?, status = ?, is_standard = ?, serial_number = ?,
			manufacturer = ?, model = ?, purchase_date = ?, last_maintenance = ?, notes = ?, condition = ?,
			checked_out_by = ?, last_checked_out = ?, properties = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Type, t.Description, t.Location, t.Status, t.IsStandard, t.SerialNumber,
		t.Manufacturer, t.Model, nullTime(t.PurchaseDate), nullTime(t.LastMaintenance), t.Notes, t.Condition,
		t.CheckedOutBy, nullTime(t.LastCheckedOut), props, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update tool: %w", err)
	}
	return checkAffected(result, "tool")
}

func (s *ToolStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tools WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tool: %w", err)
	}
	return checkAffected(result, "tool")
}

func propsOrEmpty(p map[string]string) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}
