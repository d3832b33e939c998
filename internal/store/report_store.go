package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const reportColumns = `id, code, name, description, type, category, tags, formats, is_active, is_scheduled,
	frequency, recipients, created_at, last_generated_at`

type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

func scanReport(row scanner) (*domain.Report, error) {
	r := &domain.Report{}
	var tags, formats, recipients string
	var generated sql.NullTime
	err := row.Scan(&r.ID, &r.Code, &r.Name, &r.Description, &r.Type, &r.Category, &tags, &formats,
		&r.IsActive, &r.IsScheduled, &r.Frequency, &recipients, &r.CreatedAt, &generated)
	if err != nil {
		return nil, err
	}
	r.LastGeneratedAt = timePtr(generated)
	if err := decodeJSON(tags, &r.Tags); err != nil {
		return nil, err
	}
	if err := decodeJSON(formats, &r.Formats); err != nil {
		return nil, err
	}
	if err := decodeJSON(recipients, &r.Recipients); err != nil {
		return nil, err
	}
	return r, nil
}

type reportJSON struct {
	tags, formats, recipients string
}

func encodeReport(r *domain.Report) (reportJSON, error) {
	var out reportJSON
	var err error
	if out.tags, err = encodeJSON(nonNil(r.Tags)); err != nil {
		return out, err
	}
	formats := r.Formats
	if formats == nil {
		formats = []domain.ReportFormat{}
	}
	if out.formats, err = encodeJSON(formats); err != nil {
		return out, err
	}
	if out.recipients, err = encodeJSON(nonNil(r.Recipients)); err != nil {
		return out, err
	}
	return out, nil
}

func (s *ReportStore) Create(ctx context.Context, r *domain.Report) (*domain.Report, error) {
	cols, err := encodeReport(r)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (code, name, description, type, category, tags, formats, is_active, is_scheduled,
			frequency, recipients, created_at, last_generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Code, r.Name, r.Description, r.Type, r.Category, cols.tags, cols.formats, r.IsActive, r.IsScheduled,
		r.Frequency, cols.recipients, r.CreatedAt, nullTime(r.LastGeneratedAt))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("report %s already exists: %w", r.Code, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ReportStore) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+` FROM reports WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

func (s *ReportStore) List(ctx context.Context) ([]*domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

func (s *ReportStore) Update(ctx context.Context, r *domain.Report) error {
	cols, err := encodeReport(r)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET name = ?, description = ?, type = ?, category = ?, tags = ?, formats = ?, is_active = ?,
			is_scheduled = ?, frequency = ?, recipients = ?, last_generated_at = ?
		WHERE id = ?
	`, r.Name, r.Description, r.Type, r.Category, cols.tags, cols.formats, r.IsActive,
		r.IsScheduled, r.Frequency, cols.recipients, nullTime(r.LastGeneratedAt), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return checkAffected(result, "report")
}

// Delete removes the report and its run history.
func (s *ReportStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reports WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if err := checkAffected(result, "report"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM report_runs WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report runs: %w", err)
	}
	return nil
}

// RecordRun stores a generation run and bumps the report's last generated time
// in one transaction.
func (s *ReportStore) RecordRun(ctx context.Context, run *domain.ReportRun) (*domain.ReportRun, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to roll back report run", "report_id", run.ReportID, "error", err)
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE reports SET last_generated_at = ? WHERE id = ?
	`, run.GeneratedAt, run.ReportID)
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	if err := checkAffected(result, "report"); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO report_runs (report_id, report_type, generated_at, generated_by, record_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ReportID, run.ReportType, run.GeneratedAt, run.GeneratedBy, run.RecordCount, run.DurationMS)
	if err != nil {
		return nil, fmt.Errorf("failed to record report run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report run: %w", err)
	}

	out := *run
	out.ID = id
	return &out, nil
}

// ListRuns returns every recorded run, newest first.
func (s *ReportStore) ListRuns(ctx context.Context) ([]*domain.ReportRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, report_type, generated_at, generated_by, record_count, duration_ms
		FROM report_runs ORDER BY generated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ReportRun
	for rows.Next() {
		run := &domain.ReportRun{}
		if err := rows.Scan(&run.ID, &run.ReportID, &run.ReportType, &run.GeneratedAt, &run.GeneratedBy,
			&run.RecordCount, &run.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan report run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report runs: %w", err)
	}

	return runs, nil
}
