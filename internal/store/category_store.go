package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const categoryColumns = `id, name, description, color, icon, is_active, parent, created_at, updated_at`

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func scanCategory(row scanner) (*domain.Category, error) {
	c := &domain.Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.IsActive, &c.Parent, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *CategoryStore) Create(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, color, icon, is_active, parent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Name, c.Description, c.Color, c.Icon, c.IsActive, c.Parent, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("category %q already exists: %w", c.Name, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// GetByName matches case-insensitively; names are unique under NOCASE.
func (s *CategoryStore) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE name = ? COLLATE NOCASE
	`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// List returns categories in creation order.
func (s *CategoryStore) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (s *CategoryStore) Update(ctx context.Context, c *domain.Category) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, description = ?, color = ?, icon = ?, is_active = ?, parent = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Description, c.Color, c.Icon, c.IsActive, c.Parent, c.UpdatedAt, c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q already exists: %w", c.Name, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return checkAffected(result, "category")
}

func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM categories WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return checkAffected(result, "category")
}

func checkAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
