package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

func TestLocationStoreRoundTrip(t *testing.T) {
	store := NewLocationStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, &domain.Location{
		Code: "LOC001", Name: "Main Warehouse", Description: "Primary storage", Type: domain.LocationWarehouse,
		Address: "1 Dock Rd", Capacity: 500, IsActive: true,
		Coordinates:       &domain.Coordinates{Lat: 40.7128, Lng: -74.006},
		ResponsiblePerson: "John Smith", ContactInfo: "ext. 100", AccessLevel: domain.AccessRestricted,
		QRCode: "QR_MAINWAREHOUSE_001", Features: []string{"Climate Control", "Security Camera"},
		CreatedAt: fixed, UpdatedAt: fixed,
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "LOC001", got.Code)
	assert.Equal(t, domain.LocationWarehouse, got.Type)
	assert.Equal(t, domain.AccessRestricted, got.AccessLevel)
	require.NotNil(t, got.Coordinates)
	assert.InDelta(t, 40.7128, got.Coordinates.Lat, 1e-9)
	assert.Equal(t, []string{"Climate Control", "Security Camera"}, got.Features)
}

func TestLocationStoreNoCoordinates(t *testing.T) {
	d := openTestDB(t)
	store := NewLocationStore(d)

	loc := createTestLocation(t, store, "LOC001", "Van 3")
	assert.Nil(t, loc.Coordinates)
	assert.Empty(t, loc.Features)
}

func TestLocationStoreDuplicateCode(t *testing.T) {
	store := NewLocationStore(openTestDB(t))
	createTestLocation(t, store, "LOC001", "A")

	_, err := store.Create(context.Background(), &domain.Location{Code: "LOC001", Name: "B", CreatedAt: fixed, UpdatedAt: fixed})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLocationStoreUpdateKeepsCode(t *testing.T) {
	store := NewLocationStore(openTestDB(t))
	ctx := context.Background()

	loc := createTestLocation(t, store, "LOC007", "Tool Crib")
	loc.Code = "LOC999"
	loc.Name = "Tool Crib East"
	loc.Coordinates = &domain.Coordinates{Lat: 1, Lng: 2}
	require.NoError(t, store.Update(ctx, loc))

	got, err := store.GetByID(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "LOC007", got.Code)
	assert.Equal(t, "Tool Crib East", got.Name)
	require.NotNil(t, got.Coordinates)
}

func TestLocationStoreDelete_NotFound(t *testing.T) {
	store := NewLocationStore(openTestDB(t))
	assert.ErrorIs(t, store.Delete(context.Background(), 1), domain.ErrNotFound)
}

func TestLocationStoreList(t *testing.T) {
	store := NewLocationStore(openTestDB(t))
	createTestLocation(t, store, "LOC001", "A")
	createTestLocation(t, store, "LOC002", "B")

	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "LOC001", all[0].Code)
}
