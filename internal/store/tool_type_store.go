package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

type ToolTypeStore struct {
	db *sql.DB
}

func NewToolTypeStore(db *sql.DB) *ToolTypeStore {
	return &ToolTypeStore{db: db}
}

func (s *ToolTypeStore) Create(ctx context.Context, tt *domain.ToolType) (*domain.ToolType, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_types (code, name, category, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'), datetime('now'))
	`, tt.Code, tt.Name, tt.Category, tt.Description, tt.IsActive)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("tool type %q already exists: %w", tt.Name, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tool type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for i := range tt.Properties {
		if _, err := s.AddProperty(ctx, id, &tt.Properties[i]); err != nil {
			return nil, err
		}
	}

	return s.GetByID(ctx, id)
}

// GetByID returns the tool type with its properties in display order.
func (s *ToolTypeStore) GetByID(ctx context.Context, id int64) (*domain.ToolType, error) {
	tt := &domain.ToolType{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, category, description, is_active FROM tool_types WHERE id = ?
	`, id).Scan(&tt.ID, &tt.Code, &tt.Name, &tt.Category, &tt.Description, &tt.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tool type: %w", err)
	}

	props, err := s.listProperties(ctx, `WHERE tool_type_id = ?`, id)
	if err != nil {
		return nil, err
	}
	tt.Properties = props[id]
	return tt, nil
}

func (s *ToolTypeStore) GetByName(ctx context.Context, name string) (*domain.ToolType, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM tool_types WHERE name = ?
	`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tool type: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ToolTypeStore) List(ctx context.Context) ([]*domain.ToolType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, category, description, is_active FROM tool_types ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool types: %w", err)
	}
	defer rows.Close()

	var types []*domain.ToolType
	for rows.Next() {
		tt := &domain.ToolType{}
		if err := rows.Scan(&tt.ID, &tt.Code, &tt.Name, &tt.Category, &tt.Description, &tt.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan tool type: %w", err)
		}
		types = append(types, tt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tool types: %w", err)
	}
	// Release the connection before the second query.
	_ = rows.Close()

	props, err := s.listProperties(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, tt := range types {
		tt.Properties = props[tt.ID]
	}
	return types, nil
}

// Update rewrites the descriptive columns. Properties are managed separately.
func (s *ToolTypeStore) Update(ctx context.Context, tt *domain.ToolType) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tool_types SET name = ?, category = ?, description = ?, is_active = ?, updated_at = datetime('now')
		WHERE id = ?
	`, tt.Name, tt.Category, tt.Description, tt.IsActive, tt.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("tool type %q already exists: %w", tt.Name, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update tool type: %w", err)
	}
	return checkAffected(result, "tool type")
}

// Delete removes the tool type; its properties go with it via ON DELETE CASCADE.
func (s *ToolTypeStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tool_types WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tool type: %w", err)
	}
	return checkAffected(result, "tool type")
}

// AddProperty appends p after the existing properties of the tool type and sets p.ID.
func (s *ToolTypeStore) AddProperty(ctx context.Context, toolTypeID int64, p *domain.ToolTypeProperty) (*domain.ToolTypeProperty, error) {
	options, err := encodeJSON(nonNil(p.Options))
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_type_properties (tool_type_id, position, name, label, kind, required, options, unit, default_value)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM tool_type_properties WHERE tool_type_id = ?),
			?, ?, ?, ?, ?, ?, ?)
	`, toolTypeID, toolTypeID, p.Name, p.Label, p.Kind, p.Required, options, p.Unit, p.DefaultValue)
	if err != nil {
		return nil, fmt.Errorf("failed to add property: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *ToolTypeStore) RemoveProperty(ctx context.Context, toolTypeID, propertyID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tool_type_properties WHERE id = ? AND tool_type_id = ?
	`, propertyID, toolTypeID)
	if err != nil {
		return fmt.Errorf("failed to remove property: %w", err)
	}
	return checkAffected(result, "property")
}

// listProperties groups properties by tool type id, each group in position order.
func (s *ToolTypeStore) listProperties(ctx context.Context, where string, args ...any) (map[int64][]domain.ToolTypeProperty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool_type_id, name, label, kind, required, options, unit, default_value
		FROM tool_type_properties `+where+` ORDER BY tool_type_id, position, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	props := make(map[int64][]domain.ToolTypeProperty)
	for rows.Next() {
		var p domain.ToolTypeProperty
		var typeID int64
		var options string
		if err := rows.Scan(&p.ID, &typeID, &p.Name, &p.Label, &p.Kind, &p.Required, &options, &p.Unit, &p.DefaultValue); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		if err := decodeJSON(options, &p.Options); err != nil {
			return nil, err
		}
		if len(p.Options) == 0 {
			p.Options = nil
		}
		props[typeID] = append(props[typeID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return props, nil
}
