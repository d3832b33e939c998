package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const checkoutColumns = `id, tool_id, tool_code, tool_name, category, location, condition, employee_name,
	employee_id, checked_out_at, expected_return, returned_at, notes, status`

const returnColumns = `id, checkout_id, tool_code, tool_name, employee_name, employee_id, checked_out_at,
	returned_at, return_condition, damage_notes, maintenance_required, returned_by, inspected_by`

// CheckoutStore persists check-outs and the return records that close them.
type CheckoutStore struct {
	db *sql.DB
}

func NewCheckoutStore(db *sql.DB) *CheckoutStore {
	return &CheckoutStore{db: db}
}

func scanCheckout(row scanner) (*domain.Checkout, error) {
	c := &domain.Checkout{}
	var returned sql.NullTime
	err := row.Scan(&c.ID, &c.ToolID, &c.ToolCode, &c.ToolName, &c.Category, &c.Location, &c.Condition,
		&c.EmployeeName, &c.EmployeeID, &c.CheckedOutAt, &c.ExpectedReturn, &returned, &c.Notes, &c.Status)
	if err != nil {
		return nil, err
	}
	c.ReturnedAt = timePtr(returned)
	return c, nil
}

// Open claims an available tool and records its checkout in one
// transaction. It fails with ErrConflict when the tool is not available or
// already has an open checkout, and with ErrNotFound when the tool is gone.
func (s *CheckoutStore) Open(ctx context.Context, c *domain.Checkout) (*domain.Checkout, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to roll back checkout", "tool_id", c.ToolID, "error", err)
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE tools SET status = ?, checked_out_by = ?, last_checked_out = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, domain.ToolInUse, c.EmployeeName, c.CheckedOutAt, c.CheckedOutAt, c.ToolID, domain.ToolAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to claim tool: %w", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if claimed == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM tools WHERE id = ?`, c.ToolID).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tool %d: %w", c.ToolID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get tool status: %w", err)
		}
		return nil, fmt.Errorf("tool %s is %s: %w", c.ToolCode, status, domain.ErrConflict)
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO checkouts (tool_id, tool_code, tool_name, category, location, condition, employee_name,
			employee_id, checked_out_at, expected_return, notes, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ToolID, c.ToolCode, c.ToolName, c.Category, c.Location, c.Condition, c.EmployeeName,
		c.EmployeeID, c.CheckedOutAt, c.ExpectedReturn, c.Notes, c.Status)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("tool %s is already checked out: %w", c.ToolCode, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	return s.GetByID(ctx, id)
}

// HasOpen reports whether the tool has a checkout that is not yet returned.
func (s *CheckoutStore) HasOpen(ctx context.Context, toolID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM checkouts WHERE tool_id = ? AND returned_at IS NULL
	`, toolID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count open checkouts: %w", err)
	}
	return n > 0, nil
}

func (s *CheckoutStore) GetByID(ctx context.Context, id int64) (*domain.Checkout, error) {
	c, err := scanCheckout(s.db.QueryRowContext(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}
	return c, nil
}

// ListOpen returns checkouts that are not yet returned, oldest first.
func (s *CheckoutStore) ListOpen(ctx context.Context) ([]*domain.Checkout, error) {
	return s.list(ctx, `WHERE returned_at IS NULL`)
}

// ListAll returns every checkout including closed ones, oldest first.
func (s *CheckoutStore) ListAll(ctx context.Context) ([]*domain.Checkout, error) {
	return s.list(ctx, "")
}

func (s *CheckoutStore) list(ctx context.Context, where string) ([]*domain.Checkout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts `+where+` ORDER BY checked_out_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkouts: %w", err)
	}
	defer rows.Close()

	var checkouts []*domain.Checkout
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout: %w", err)
		}
		checkouts = append(checkouts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkouts: %w", err)
	}

	return checkouts, nil
}

// SetStatus changes the status of an open checkout. It reports false, with
// no error, when the checkout is missing or was returned in the meantime.
func (s *CheckoutStore) SetStatus(ctx context.Context, id int64, status domain.CheckoutStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE checkouts SET status = ? WHERE id = ? AND returned_at IS NULL
	`, status, id)
	if err != nil {
		return false, fmt.Errorf("failed to update checkout status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Close records r and marks its checkout returned with the given final status,
// both in one transaction. It fails with ErrNotFound when the checkout is
// missing or already closed.
func (s *CheckoutStore) Close(ctx context.Context, r *domain.ReturnRecord, status domain.CheckoutStatus) (*domain.ReturnRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to roll back checkout close", "checkout_id", r.CheckoutID, "error", err)
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE checkouts SET status = ?, returned_at = ? WHERE id = ? AND returned_at IS NULL
	`, status, r.ReturnedAt, r.CheckoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to close checkout: %w", err)
	}
	if err := checkAffected(result, "open checkout"); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO returns (checkout_id, tool_code, tool_name, employee_name, employee_id, checked_out_at,
			returned_at, return_condition, damage_notes, maintenance_required, returned_by, inspected_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.CheckoutID, r.ToolCode, r.ToolName, r.EmployeeName, r.EmployeeID, r.CheckedOutAt,
		r.ReturnedAt, r.ReturnCondition, r.DamageNotes, r.MaintenanceRequired, r.ReturnedBy, r.InspectedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to record return: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}

	out := *r
	out.ID = id
	return &out, nil
}

// ListReturns returns the most recent returns first; limit <= 0 means all.
func (s *CheckoutStore) ListReturns(ctx context.Context, limit int) ([]*domain.ReturnRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+returnColumns+` FROM returns ORDER BY returned_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	defer rows.Close()

	var records []*domain.ReturnRecord
	for rows.Next() {
		r := &domain.ReturnRecord{}
		if err := rows.Scan(&r.ID, &r.CheckoutID, &r.ToolCode, &r.ToolName, &r.EmployeeName, &r.EmployeeID,
			&r.CheckedOutAt, &r.ReturnedAt, &r.ReturnCondition, &r.DamageNotes, &r.MaintenanceRequired,
			&r.ReturnedBy, &r.InspectedBy); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating returns: %w", err)
	}

	return records, nil
}
