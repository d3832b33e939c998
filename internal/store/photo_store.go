package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

type PhotoStore struct {
	db *sql.DB
}

func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

func (s *PhotoStore) Create(ctx context.Context, locationID int64, storageKey, mimeType string, uploadedAt time.Time) (*domain.Photo, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (location_id, storage_key, mime_type, uploaded_at) VALUES (?, ?, ?, ?)
	`, locationID, storageKey, mimeType, uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *PhotoStore) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	photo := &domain.Photo{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location_id, storage_key, mime_type, uploaded_at FROM photos WHERE id = ?
	`, id).Scan(&photo.ID, &photo.LocationID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

func (s *PhotoStore) GetLatestByLocationID(ctx context.Context, locationID int64) (*domain.Photo, error) {
	photo := &domain.Photo{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location_id, storage_key, mime_type, uploaded_at FROM photos
		WHERE location_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT 1
	`, locationID).Scan(&photo.ID, &photo.LocationID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

// ListKeysByLocation returns the storage keys of every photo of a location so
// the blobs can be removed before the rows cascade away.
func (s *PhotoStore) ListKeysByLocation(ctx context.Context, locationID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT storage_key FROM photos WHERE location_id = ? ORDER BY id
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return keys, nil
}

func (s *PhotoStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM photos WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return checkAffected(result, "photo")
}
