package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

func newReport(code string) *domain.Report {
	return &domain.Report{
		Code: code, Name: "Inventory Summary", Description: "All tools by status", Type: domain.ReportInventory,
		Category: "Operations", Tags: []string{"inventory"}, Formats: []domain.ReportFormat{domain.FormatCSV},
		IsActive: true, CreatedAt: fixed,
	}
}

func TestReportStoreRoundTrip(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	ctx := context.Background()

	r := newReport("RPT001")
	r.IsScheduled = true
	r.Frequency = domain.FrequencyWeekly
	r.Recipients = []string{"ops@example.com"}

	created, err := store.Create(ctx, r)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"inventory"}, got.Tags)
	assert.Equal(t, []domain.ReportFormat{domain.FormatCSV}, got.Formats)
	assert.Equal(t, []string{"ops@example.com"}, got.Recipients)
	assert.Equal(t, domain.FrequencyWeekly, got.Frequency)
	assert.Nil(t, got.LastGeneratedAt)
}

func TestReportStoreRecordRun(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	ctx := context.Background()

	r, err := store.Create(ctx, newReport("RPT001"))
	require.NoError(t, err)

	at := fixed.Add(time.Hour)
	run, err := store.RecordRun(ctx, &domain.ReportRun{
		ReportID: r.ID, ReportType: r.Type, GeneratedAt: at, GeneratedBy: "John Doe", RecordCount: 12, DurationMS: 35,
	})
	require.NoError(t, err)
	assert.NotZero(t, run.ID)

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastGeneratedAt)
	assert.True(t, at.Equal(*got.LastGeneratedAt))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 12, runs[0].RecordCount)
	assert.Equal(t, int64(35), runs[0].DurationMS)
}

func TestReportStoreRecordRun_MissingReport(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.RecordRun(ctx, &domain.ReportRun{ReportID: 42, ReportType: domain.ReportAudit, GeneratedAt: fixed})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReportStoreDeleteRemovesRuns(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	ctx := context.Background()

	r, err := store.Create(ctx, newReport("RPT001"))
	require.NoError(t, err)
	_, err = store.RecordRun(ctx, &domain.ReportRun{ReportID: r.ID, ReportType: r.Type, GeneratedAt: fixed})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, r.ID))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.ErrorIs(t, store.Delete(ctx, r.ID), domain.ErrNotFound)
}

func TestReportStoreUpdate(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	ctx := context.Background()

	r, err := store.Create(ctx, newReport("RPT001"))
	require.NoError(t, err)

	r.Name = "Weekly Inventory"
	r.Formats = []domain.ReportFormat{domain.FormatExcel, domain.FormatJSON}
	require.NoError(t, store.Update(ctx, r))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Weekly Inventory", all[0].Name)
	assert.Equal(t, []domain.ReportFormat{domain.FormatExcel, domain.FormatJSON}, all[0].Formats)
}
