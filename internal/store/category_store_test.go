package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

func newCategory(name string) *domain.Category {
	return &domain.Category{
		Name: name, Description: name + " tools", Color: "#3182CE", Icon: "build",
		IsActive: true, CreatedAt: fixed, UpdatedAt: fixed,
	}
}

func TestCategoryStoreCreate(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))

	c, err := store.Create(context.Background(), newCategory("Power Tools"))
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Power Tools", c.Name)
	assert.True(t, c.IsActive)
	assert.True(t, fixed.Equal(c.CreatedAt))
}

func TestCategoryStoreCreate_DuplicateNameIgnoresCase(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, newCategory("Hand Tools"))
	require.NoError(t, err)

	_, err = store.Create(ctx, newCategory("hand tools"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCategoryStoreGetByName(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, newCategory("Measuring"))
	require.NoError(t, err)

	found, err := store.GetByName(ctx, "MEASURING")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := store.GetByName(ctx, "Welding")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCategoryStoreListKeepsCreationOrder(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"Safety", "Cutting", "Power Tools"} {
		_, err := store.Create(ctx, newCategory(name))
		require.NoError(t, err)
	}

	categories, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Safety", categories[0].Name)
	assert.Equal(t, "Power Tools", categories[2].Name)
}

func TestCategoryStoreUpdate(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))
	ctx := context.Background()

	c, err := store.Create(ctx, newCategory("Safety"))
	require.NoError(t, err)

	c.IsActive = false
	c.Color = "#000000"
	c.UpdatedAt = fixed.Add(time.Hour)
	require.NoError(t, store.Update(ctx, c))

	got, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "#000000", got.Color)
	assert.True(t, fixed.Add(time.Hour).Equal(got.UpdatedAt))
	assert.True(t, fixed.Equal(got.CreatedAt))
}

func TestCategoryStoreUpdate_NotFound(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))

	c := newCategory("Ghost")
	c.ID = 404
	assert.ErrorIs(t, store.Update(context.Background(), c), domain.ErrNotFound)
}

func TestCategoryStoreDelete(t *testing.T) {
	store := NewCategoryStore(openTestDB(t))
	ctx := context.Background()

	a, err := store.Create(ctx, newCategory("Keep"))
	require.NoError(t, err)
	b, err := store.Create(ctx, newCategory("Drop"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, b.ID))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].ID)

	assert.ErrorIs(t, store.Delete(ctx, b.ID), domain.ErrNotFound)
}
