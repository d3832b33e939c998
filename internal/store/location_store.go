package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const locationColumns = `id, code, name, description, type, address, capacity, is_active, lat, lng,
	parent, responsible_person, contact_info, access_level, qr_code, features, created_at, updated_at`

type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

func scanLocation(row scanner) (*domain.Location, error) {
	l := &domain.Location{}
	var lat, lng sql.NullFloat64
	var features string
	err := row.Scan(&l.ID, &l.Code, &l.Name, &l.Description, &l.Type, &l.Address, &l.Capacity, &l.IsActive,
		&lat, &lng, &l.Parent, &l.ResponsiblePerson, &l.ContactInfo, &l.AccessLevel, &l.QRCode, &features,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		l.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if err := decodeJSON(features, &l.Features); err != nil {
		return nil, err
	}
	return l, nil
}

func coordArgs(c *domain.Coordinates) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func (s *LocationStore) Create(ctx context.Context, l *domain.Location) (*domain.Location, error) {
	features, err := encodeJSON(nonNil(l.Features))
	if err != nil {
		return nil, err
	}
	lat, lng := coordArgs(l.Coordinates)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (code, name, description, type, address, capacity, is_active, lat, lng,
			parent, responsible_person, contact_info, access_level, qr_code, features, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.Code, l.Name, l.Description, l.Type, l.Address, l.Capacity, l.IsActive, lat, lng,
		l.Parent, l.ResponsiblePerson, l.ContactInfo, l.AccessLevel, l.QRCode, features, l.CreatedAt, l.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("location %s already exists: %w", l.Code, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *LocationStore) GetByID(ctx context.Context, id int64) (*domain.Location, error) {
	l, err := scanLocation(s.db.QueryRowContext(ctx, `
		SELECT `+locationColumns+` FROM locations WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return l, nil
}

func (s *LocationStore) List(ctx context.Context) ([]*domain.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+locationColumns+` FROM locations ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []*domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return locations, nil
}

// Update rewrites every editable column. The code and creation time never change.
func (s *LocationStore) Update(ctx context.Context, l *domain.Location) error {
	features, err := encodeJSON(nonNil(l.Features))
	if err != nil {
		return err
	}
	lat, lng := coordArgs(l.Coordinates)

	result, err := s.db.ExecContext(ctx, `
		UPDATE locations
		SET name = ?, description = ?, type = ?, address = ?, capacity = ?, is_active = ?, lat = ?, lng = ?,
			parent = ?, responsible_person = ?, contact_info = ?, access_level = ?, qr_code = ?, features = ?,
			updated_at = ?
		WHERE id = ?
	`, l.Name, l.Description, l.Type, l.Address, l.Capacity, l.IsActive, lat, lng,
		l.Parent, l.ResponsiblePerson, l.ContactInfo, l.AccessLevel, l.QRCode, features, l.UpdatedAt, l.ID)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	return checkAffected(result, "location")
}

func (s *LocationStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM locations WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return checkAffected(result, "location")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
