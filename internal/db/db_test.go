package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTesting(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	assert.NoError(t, db.Ping())
}

func TestMigrationsApply(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	tables := []string{
		"categories", "locations", "tool_types", "tool_type_properties", "tools", "photos",
		"checkouts", "returns", "activities", "reports", "report_runs", "settings",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestTestDatabasesAreIsolated(t *testing.T) {
	a, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = a.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ('profile', '{}', datetime('now'))`)
	require.NoError(t, err)

	var n int
	require.NoError(t, b.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpenFileReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolkeepr.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err, "reopening an up-to-date database must not fail")
	t.Cleanup(func() { _ = second.Close() })

	var version int
	require.NoError(t, second.QueryRow(`SELECT version FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 4, version)
}
