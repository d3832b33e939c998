package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/db"
	"github.com/vbonduro/toolkeepr/internal/domain"
)

func newCheckout(toolID int64, code string, at time.Time) *domain.Checkout {
	return &domain.Checkout{
		ToolID: toolID, ToolCode: code, ToolName: "Tool " + code, EmployeeName: "Jane Roe", EmployeeID: "EMP001",
		CheckedOutAt: at, ExpectedReturn: at.Add(72 * time.Hour), Status: domain.CheckoutOpen,
	}
}

// openCheckout adds an available tool and checks it out.
func openCheckout(t *testing.T, d *sql.DB, code string, at time.Time) *domain.Checkout {
	t.Helper()
	ctx := context.Background()
	tool, err := NewToolStore(d).Create(ctx, newTool(code, "Tool "+code, "Drill"))
	require.NoError(t, err)
	c, err := NewCheckoutStore(d).Open(ctx, newCheckout(tool.ID, code, at))
	require.NoError(t, err)
	return c
}

func TestCheckoutStoreOpenAndListOpen(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	second := openCheckout(t, d, "D002", fixed.Add(time.Hour))
	first := openCheckout(t, d, "D001", fixed)

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, first.ID, open[0].ID, "oldest checkout first")
	assert.Equal(t, second.ID, open[1].ID)
	assert.Nil(t, open[0].ReturnedAt)
	assert.True(t, fixed.Add(72*time.Hour).Equal(open[0].ExpectedReturn))

	tool, err := NewToolStore(d).GetByID(ctx, first.ToolID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolInUse, tool.Status)
	assert.Equal(t, "Jane Roe", tool.CheckedOutBy)
	require.NotNil(t, tool.LastCheckedOut)
	assert.True(t, fixed.Equal(*tool.LastCheckedOut))

	has, err := store.HasOpen(ctx, first.ToolID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCheckoutStoreOpenRequiresAvailableTool(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	c := openCheckout(t, d, "D001", fixed)

	_, err := store.Open(ctx, newCheckout(c.ToolID, "D001", fixed.Add(time.Hour)))
	assert.ErrorIs(t, err, domain.ErrConflict, "tool is in use")

	_, err = store.Open(ctx, newCheckout(999, "X999", fixed))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	broken, err := NewToolStore(d).Create(ctx, newTool("B001", "Broken Saw", "Saw"))
	require.NoError(t, err)
	_, err = d.Exec(`UPDATE tools SET status = 'maintenance' WHERE id = ?`, broken.ID)
	require.NoError(t, err)
	_, err = store.Open(ctx, newCheckout(broken.ID, "B001", fixed))
	assert.ErrorIs(t, err, domain.ErrConflict, "tool is in maintenance")

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1, "rejected checkouts leave nothing behind")
}

func TestCheckoutStoreOneOpenCheckoutPerTool(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	c := openCheckout(t, d, "D001", fixed)
	// A tool flipped back to available behind circulation's back still
	// cannot collect a second open checkout.
	_, err := d.Exec(`UPDATE tools SET status = 'available' WHERE id = ?`, c.ToolID)
	require.NoError(t, err)

	_, err = store.Open(ctx, newCheckout(c.ToolID, "D001", fixed.Add(time.Hour)))
	assert.ErrorIs(t, err, domain.ErrConflict)

	tool, err := NewToolStore(d).GetByID(ctx, c.ToolID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolAvailable, tool.Status, "the claim rolls back with the insert")

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestCheckoutStoreConcurrentOpenLendsOnce(t *testing.T) {
	// A file database gives every goroutine its own pooled connection.
	d, err := db.Open(filepath.Join(t.TempDir(), "toolkeepr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()

	tool, err := NewToolStore(d).Create(ctx, newTool("D001", "Cordless Drill", "Drill"))
	require.NoError(t, err)
	store := NewCheckoutStore(d)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Open(ctx, newCheckout(tool.ID, "D001", fixed))
		}()
	}
	wg.Wait()

	lent := 0
	for _, err := range errs {
		if err == nil {
			lent++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, lent)

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestCheckoutStoreSetStatus(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	c := openCheckout(t, d, "D001", fixed)

	ok, err := store.SetStatus(ctx, c.ID, domain.CheckoutOverdue)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutOverdue, got.Status)

	ok, err = store.SetStatus(ctx, 999, domain.CheckoutOverdue)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckoutStoreSetStatusSkipsReturned(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	c := openCheckout(t, d, "D001", fixed)
	returnedAt := fixed.Add(time.Hour)
	_, err := store.Close(ctx, &domain.ReturnRecord{
		CheckoutID: c.ID, ToolCode: c.ToolCode, ToolName: c.ToolName, EmployeeName: c.EmployeeName,
		EmployeeID: c.EmployeeID, CheckedOutAt: c.CheckedOutAt, ReturnedAt: returnedAt,
		ReturnCondition: "good", ReturnedBy: "Jane Roe",
	}, domain.CheckoutReturned)
	require.NoError(t, err)

	ok, err := store.SetStatus(ctx, c.ID, domain.CheckoutOverdue)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)

	has, err := store.HasOpen(ctx, c.ToolID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCheckoutStoreClose(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	c := openCheckout(t, d, "D001", fixed)

	returnedAt := fixed.Add(24 * time.Hour)
	rec, err := store.Close(ctx, &domain.ReturnRecord{
		CheckoutID: c.ID, ToolCode: c.ToolCode, ToolName: c.ToolName, EmployeeName: c.EmployeeName,
		EmployeeID: c.EmployeeID, CheckedOutAt: c.CheckedOutAt, ReturnedAt: returnedAt,
		ReturnCondition: "good", ReturnedBy: "Jane Roe",
	}, domain.CheckoutReturned)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	got, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	assert.True(t, returnedAt.Equal(*got.ReturnedAt))

	open, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCheckoutStoreCloseTwiceFails(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	c := openCheckout(t, d, "D001", fixed)

	rec := &domain.ReturnRecord{CheckoutID: c.ID, ToolCode: "D001", ToolName: "Drill", EmployeeName: "Jane",
		EmployeeID: "EMP001", CheckedOutAt: fixed, ReturnedAt: fixed, ReturnCondition: "good", ReturnedBy: "Jane"}
	_, err := store.Close(ctx, rec, domain.CheckoutReturned)
	require.NoError(t, err)

	_, err = store.Close(ctx, rec, domain.CheckoutReturned)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM returns`).Scan(&n))
	assert.Equal(t, 1, n, "the failed close must not leave a return behind")
}

func TestCheckoutStoreListReturnsNewestFirst(t *testing.T) {
	d := openTestDB(t)
	store := NewCheckoutStore(d)
	ctx := context.Background()

	for i, code := range []string{"A001", "B001", "C001"} {
		c := openCheckout(t, d, code, fixed)
		_, err := store.Close(ctx, &domain.ReturnRecord{CheckoutID: c.ID, ToolCode: code, ToolName: code,
			EmployeeName: "Jane", EmployeeID: "EMP001", CheckedOutAt: fixed,
			ReturnedAt: fixed.Add(time.Duration(i) * time.Hour), ReturnCondition: "good", ReturnedBy: "Jane"},
			domain.CheckoutReturned)
		require.NoError(t, err)
	}

	recent, err := store.ListReturns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "C001", recent[0].ToolCode)
	assert.Equal(t, "B001", recent[1].ToolCode)

	all, err := store.ListReturns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
