package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

func drillType(t *testing.T, env *testEnv) *domain.ToolType {
	t.Helper()
	ctx := context.Background()
	tt, err := env.toolTypes.Create(ctx, ToolTypeInput{Name: "Drill", Category: "Power Tools", IsActive: true})
	require.NoError(t, err)
	_, err = env.toolTypes.AddProperty(ctx, tt.ID, PropertyInput{
		Name: "voltage", Label: "Voltage", Kind: domain.PropertyNumber, Required: true, DefaultValue: "18",
	})
	require.NoError(t, err)
	tt, err = env.toolTypes.AddProperty(ctx, tt.ID, PropertyInput{Name: "brand", Label: "Brand"})
	require.NoError(t, err)
	return tt
}

func TestNextToolCode(t *testing.T) {
	existing := []*domain.Tool{{Code: "D001"}, {Code: "D004"}, {Code: "H001"}}
	assert.Equal(t, "D005", NextToolCode("drill", existing))
	assert.Equal(t, "H002", NextToolCode("Hammer", existing))
	assert.Equal(t, "S001", NextToolCode(" saw", existing))
	assert.Equal(t, "T001", NextToolCode("", existing))
}

func TestTypeKey(t *testing.T) {
	assert.Equal(t, "measuringtape", TypeKey("Measuring Tape"))
	assert.Equal(t, "drill", TypeKey("Drill"))
}

func TestToolServiceCreateAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	drillType(t, env)

	tool, err := env.tools.Create(ctx, ToolInput{
		Name: "Cordless Drill", Type: "Drill", Location: "Main Shop",
		Properties: map[string]string{"brand": " Makita ", "unknown": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "D001", tool.Code)
	assert.Equal(t, domain.ToolAvailable, tool.Status)
	assert.Equal(t, map[string]string{"voltage": "18", "brand": "Makita"}, tool.Properties)

	recent, err := env.tools.RecentActivity(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.ActivityCreated, recent[0].Kind)
	assert.Equal(t, "Cordless Drill", recent[0].Subject)
}

func TestToolServiceCreateRejectsInvalidWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	drillType(t, env)

	_, err := env.tools.Create(ctx, ToolInput{
		Name: "Cordless Drill", Type: "Drill", Location: "Main Shop",
		Properties: map[string]string{"voltage": "lots"},
	})
	var errs domain.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs, "properties.voltage")

	_, err = env.tools.Create(ctx, ToolInput{Name: "X"})
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "type")
	assert.Contains(t, errs, "location")

	tools, err := env.tools.List(ctx, ToolFilter{})
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestToolServiceUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	drillType(t, env)

	tool, err := env.tools.Create(ctx, ToolInput{
		Name: "Cordless Drill", Type: "Drill", Location: "Main Shop",
		Properties: map[string]string{"voltage": "20", "brand": "Makita"},
	})
	require.NoError(t, err)

	later := fixed.Add(time.Hour)
	env.tools.now = func() time.Time { return later }

	t.Run("same type keeps properties", func(t *testing.T) {
		updated, err := env.tools.Update(ctx, tool.ID, ToolInput{
			Name: "Cordless Drill 20V", Type: "Drill", Location: "Van",
			Properties: map[string]string{"brand": "Bosch"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Cordless Drill 20V", updated.Name)
		assert.Equal(t, map[string]string{"voltage": "20", "brand": "Bosch"}, updated.Properties)
		assert.Equal(t, later, updated.UpdatedAt)
		assert.Equal(t, "D001", updated.Code)
	})

	t.Run("type change resets properties", func(t *testing.T) {
		updated, err := env.tools.Update(ctx, tool.ID, ToolInput{Name: "Cordless Drill", Type: "Driver", Location: "Van"})
		require.NoError(t, err)
		assert.Empty(t, updated.Properties)
	})

	t.Run("maintenance status records maintenance", func(t *testing.T) {
		_, err := env.tools.Update(ctx, tool.ID, ToolInput{
			Name: "Cordless Drill", Type: "Driver", Location: "Van", Status: domain.ToolMaintenance,
		})
		require.NoError(t, err)
		recent, err := env.tools.RecentActivity(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, domain.ActivityMaintenance, recent[0].Kind)
	})

	t.Run("invalid input leaves the tool unchanged", func(t *testing.T) {
		before, err := env.tools.Get(ctx, tool.ID)
		require.NoError(t, err)
		_, err = env.tools.Update(ctx, tool.ID, ToolInput{Name: "", Type: "Driver", Location: "Van"})
		assert.True(t, domain.IsValidation(err))
		after, err := env.tools.Get(ctx, tool.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestToolServiceDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.addTool(t, "Hammer", "Hammer")
	b := env.addTool(t, "Saw", "Saw")

	require.NoError(t, env.tools.Delete(ctx, a.ID))
	tools, err := env.tools.List(ctx, ToolFilter{})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, b.ID, tools[0].ID)

	assert.ErrorIs(t, env.tools.Delete(ctx, a.ID), domain.ErrNotFound)
	_, err = env.tools.Get(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToolServiceStandard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tape := env.addTool(t, "25ft Tape", "Measuring Tape")
	drill := env.addTool(t, "Cordless Drill", "Drill")
	env.addTool(t, "Claw Hammer", "Hammer")

	_, err := env.tools.ToggleStandard(ctx, tape.ID)
	require.NoError(t, err)
	toggled, err := env.tools.ToggleStandard(ctx, drill.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsStandard)

	all, err := env.tools.Standard(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tapes, err := env.tools.Standard(ctx, "measuringtape")
	require.NoError(t, err)
	require.Len(t, tapes, 1)
	assert.Equal(t, tape.ID, tapes[0].ID)

	nonStandard, err := env.tools.List(ctx, ToolFilter{Standard: "non-standard"})
	require.NoError(t, err)
	require.Len(t, nonStandard, 1)
	assert.Equal(t, "Claw Hammer", nonStandard[0].Name)
}

func TestFilterTools(t *testing.T) {
	tools := []*domain.Tool{
		{Code: "D001", Name: "Cordless Drill", Type: "Drill", Status: domain.ToolAvailable},
		{Code: "D002", Name: "Hammer Drill", Type: "Drill", Status: domain.ToolInUse},
		{Code: "H001", Name: "Claw Hammer", Type: "Hammer", Status: domain.ToolAvailable, IsStandard: true},
	}
	assert.Len(t, FilterTools(tools, ToolFilter{}), 3)
	assert.Len(t, FilterTools(tools, ToolFilter{Search: "hammer"}), 2)
	assert.Len(t, FilterTools(tools, ToolFilter{Status: domain.ToolAvailable}), 2)
	assert.Len(t, FilterTools(tools, ToolFilter{Type: "Drill", Status: domain.ToolInUse}), 1)
	assert.Len(t, FilterTools(tools, ToolFilter{Standard: "standard"}), 1)
}

func TestDashboardStatsOf(t *testing.T) {
	tools := []*domain.Tool{
		{Type: "Drill", Status: domain.ToolAvailable, IsStandard: true},
		{Type: "Drill", Status: domain.ToolInUse},
		{Type: "Saw", Status: domain.ToolMaintenance},
		{Type: "Saw", Status: domain.ToolRetired},
	}
	assert.Equal(t, domain.DashboardStats{
		TotalTools: 4, StandardTools: 1, AvailableTools: 1, InUseTools: 1, MaintenanceTools: 1,
	}, DashboardStatsOf(tools))

	assert.Equal(t, []domain.ToolTypeCount{
		{Type: "Drill", Count: 2, Available: 1, InUse: 1},
		{Type: "Saw", Count: 2},
	}, CountByType(tools))
}

func TestToolServiceDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"A1", "A2", "A3", "A4", "A5", "A6"} {
		env.addTool(t, "Tool "+name, "Anvil")
	}
	d, err := env.tools.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Stats.TotalTools)
	assert.Len(t, d.RecentActivity, recentActivityLimit)
	require.Len(t, d.ByType, 1)
	assert.Equal(t, 6, d.ByType[0].Count)
}
