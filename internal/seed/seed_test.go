package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/db"
	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
	"github.com/vbonduro/toolkeepr/internal/store"
)

func newServices(t *testing.T) Services {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tools := store.NewToolStore(d)
	types := store.NewToolTypeStore(d)
	activities := store.NewActivityStore(d)
	checkouts := store.NewCheckoutStore(d)
	return Services{
		Tools:      service.NewToolService(tools, types, checkouts, activities, logger),
		ToolTypes:  service.NewToolTypeService(types, tools, logger),
		Categories: service.NewCategoryService(store.NewCategoryStore(d), tools, types, logger),
		Locations:  service.NewLocationService(store.NewLocationStore(d), store.NewPhotoStore(d), tools, nil, nil, logger),
		Reports:    service.NewReportService(store.NewReportStore(d), tools, types, checkouts, activities, nil, nil, logger),
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sum, loaded, err := Load(ctx, svc, logger)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, Summary{Categories: 7, Locations: 6, ToolTypes: 6, Tools: 5, Reports: 6}, *sum)

	drill, err := svc.ToolTypes.ByName(ctx, "Drill")
	require.NoError(t, err)
	require.NotNil(t, drill)
	assert.Len(t, drill.Properties, 4)

	standard, err := svc.Tools.List(ctx, service.ToolFilter{Standard: "standard"})
	require.NoError(t, err)
	assert.Len(t, standard, 4)

	scheduled, err := svc.Reports.Scheduled(ctx)
	require.NoError(t, err)
	// The quarterly report is scheduled but inactive.
	assert.Len(t, scheduled, 3)

	tools, err := svc.Tools.List(ctx, service.ToolFilter{Status: domain.ToolMaintenance})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "S001", tools[0].Code)
}

func TestLoadSkipsNonEmptyInventory(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, loaded, err := Load(ctx, svc, logger)
	require.NoError(t, err)
	require.True(t, loaded)

	sum, loaded, err := Load(ctx, svc, logger)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.Equal(t, Summary{}, *sum)

	all, err := svc.Tools.List(ctx, service.ToolFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
