package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/db"
)

// fixed is a second-aligned UTC instant so values round-trip through SQLite unchanged.
var fixed = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}
