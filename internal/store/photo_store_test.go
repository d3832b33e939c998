package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

func createTestLocation(t *testing.T, s *LocationStore, code, name string) *domain.Location {
	t.Helper()
	loc, err := s.Create(context.Background(), &domain.Location{
		Code: code, Name: name, Description: "test", Type: domain.LocationRoom, Capacity: 10,
		IsActive: true, ResponsiblePerson: "Sam", AccessLevel: domain.AccessPublic,
		CreatedAt: fixed, UpdatedAt: fixed,
	})
	require.NoError(t, err)
	return loc
}

func TestPhotoStoreCreate(t *testing.T) {
	d := openTestDB(t)
	photos := NewPhotoStore(d)
	ctx := context.Background()

	loc := createTestLocation(t, NewLocationStore(d), "LOC001", "Workshop A")

	photo, err := photos.Create(ctx, loc.ID, "photos/abc123.jpg", "image/jpeg", fixed)
	require.NoError(t, err)
	assert.NotZero(t, photo.ID)
	assert.Equal(t, loc.ID, photo.LocationID)
	assert.Equal(t, "photos/abc123.jpg", photo.StorageKey)
	assert.Equal(t, "image/jpeg", photo.MimeType)
	assert.True(t, fixed.Equal(photo.UploadedAt))
}

func TestPhotoStoreGetLatestByLocationID(t *testing.T) {
	d := openTestDB(t)
	photos := NewPhotoStore(d)
	ctx := context.Background()

	loc := createTestLocation(t, NewLocationStore(d), "LOC001", "Workshop A")

	_, err := photos.Create(ctx, loc.ID, "key1.jpg", "image/jpeg", fixed)
	require.NoError(t, err)
	second, err := photos.Create(ctx, loc.ID, "key2.jpg", "image/png", fixed.Add(time.Minute))
	require.NoError(t, err)

	latest, err := photos.GetLatestByLocationID(ctx, loc.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}

func TestPhotoStoreGetLatestByLocationID_NoPhotos(t *testing.T) {
	d := openTestDB(t)
	photos := NewPhotoStore(d)

	loc := createTestLocation(t, NewLocationStore(d), "LOC001", "Empty Shelf")

	latest, err := photos.GetLatestByLocationID(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestPhotoStoreCascadesWithLocation(t *testing.T) {
	d := openTestDB(t)
	locations := NewLocationStore(d)
	photos := NewPhotoStore(d)
	ctx := context.Background()

	loc := createTestLocation(t, locations, "LOC001", "Workshop A")
	photo, err := photos.Create(ctx, loc.ID, "key.jpg", "image/jpeg", fixed)
	require.NoError(t, err)

	keys, err := photos.ListKeysByLocation(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"key.jpg"}, keys)

	require.NoError(t, locations.Delete(ctx, loc.ID))

	retrieved, err := photos.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestPhotoStoreDelete_NotFound(t *testing.T) {
	d := openTestDB(t)
	photos := NewPhotoStore(d)

	err := photos.Delete(context.Background(), 99999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
