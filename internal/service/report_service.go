package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/export"
	"github.com/vbonduro/toolkeepr/internal/metrics"
)

// reportRepository is the subset of store.ReportStore that ReportService requires.
type reportRepository interface {
	Create(ctx context.Context, r *domain.Report) (*domain.Report, error)
	GetByID(ctx context.Context, id int64) (*domain.Report, error)
	List(ctx context.Context) ([]*domain.Report, error)
	Update(ctx context.Context, r *domain.Report) error
	Delete(ctx context.Context, id int64) error
	RecordRun(ctx context.Context, run *domain.ReportRun) (*domain.ReportRun, error)
	ListRuns(ctx context.Context) ([]*domain.ReportRun, error)
}

type ReportInput struct {
	Name        string
	Description string
	Type        domain.ReportType
	Category    string
	Tags        []string
	Formats     []domain.ReportFormat
	IsActive    bool
}

type ScheduleInput struct {
	Enabled    bool
	Frequency  domain.ScheduleFrequency
	Recipients []string
}

// ReportFilter narrows the report list. Type and Category are ignored when
// empty or "all"; Search matches name, description and tags.
type ReportFilter struct {
	Type     string
	Category string
	Search   string
}

type ReportService struct {
	reports    reportRepository
	sources    reportSources
	activities activityRepository
	blobs      blobstore.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewReportService(
	reports reportRepository,
	tools toolLister,
	types toolTypeLister,
	checkouts checkoutHistory,
	activities activityRepository,
	blobs blobstore.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports:    reports,
		sources:    reportSources{tools: tools, types: types, checkouts: checkouts, activities: activities},
		activities: activities,
		blobs:      blobs,
		metrics:    m,
		logger:     logger,
		now:        now,
	}
}

func (s *ReportService) List(ctx context.Context, f ReportFilter) ([]*domain.Report, error) {
	reports, err := s.reports.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return FilterReports(reports, f), nil
}

func FilterReports(reports []*domain.Report, f ReportFilter) []*domain.Report {
	out := make([]*domain.Report, 0, len(reports))
	for _, r := range reports {
		if f.Type != "" && f.Type != "all" && string(r.Type) != f.Type {
			continue
		}
		if f.Category != "" && f.Category != "all" && r.Category != f.Category {
			continue
		}
		fields := append([]string{r.Name, r.Description}, r.Tags...)
		if !containsFold(f.Search, fields...) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *ReportService) Get(ctx context.Context, id int64) (*domain.Report, error) {
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if r == nil {
		return nil, notFound("report", id)
	}
	return r, nil
}

func ValidateReport(in ReportInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	validateLength(errs, "name", "Name", in.Name, 3, 100)
	validateLength(errs, "description", "Description", in.Description, 10, 500)
	if !in.Type.Valid() {
		errs.Add("type", "Choose a report type")
	}
	if !slices.Contains(domain.ReportCategories, in.Category) {
		errs.Add("category", "Choose a category")
	}
	if len(in.Formats) == 0 {
		errs.Add("formats", "Choose at least one format")
	}
	for _, f := range in.Formats {
		if !f.Valid() {
			errs.Add("formats", fmt.Sprintf("Unknown format %q", f))
		}
	}
	return errs
}

func (s *ReportService) nextCode(ctx context.Context) (string, error) {
	existing, err := s.reports.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list reports: %w", err)
	}
	codes := make([]string, 0, len(existing))
	for _, r := range existing {
		codes = append(codes, r.Code)
	}
	return nextCode("RPT", codes, 3), nil
}

// Create adds an unscheduled report.
func (s *ReportService) Create(ctx context.Context, in ReportInput) (*domain.Report, error) {
	if err := ValidateReport(in).Err(); err != nil {
		return nil, err
	}
	code, err := s.nextCode(ctx)
	if err != nil {
		return nil, err
	}
	at := s.now()
	r, err := s.reports.Create(ctx, &domain.Report{
		Code:        code,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Category:    in.Category,
		Tags:        in.Tags,
		Formats:     in.Formats,
		IsActive:    in.IsActive,
		CreatedAt:   at,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("report created", "report_id", r.ID, "code", r.Code)
	recordActivity(ctx, s.activities, s.logger, &domain.Activity{
		Kind: domain.ActivityCreated, Action: "Report created", Subject: r.Name,
		Actor: "Current User", Details: "New custom report created", CreatedAt: at,
	})
	return r, nil
}

// Update edits the report definition; its schedule is kept.
func (s *ReportService) Update(ctx context.Context, id int64, in ReportInput) (*domain.Report, error) {
	if err := ValidateReport(in).Err(); err != nil {
		return nil, err
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Name = strings.TrimSpace(in.Name)
	r.Description = strings.TrimSpace(in.Description)
	r.Type = in.Type
	r.Category = in.Category
	r.Tags = in.Tags
	r.Formats = in.Formats
	r.IsActive = in.IsActive
	if err := s.reports.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	s.logger.Info("report updated", "report_id", id)
	return r, nil
}

func (s *ReportService) Delete(ctx context.Context, id int64) error {
	if err := s.reports.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	s.logger.Info("report deleted", "report_id", id)
	return nil
}

// Duplicate copies a report under a new code. The copy is unscheduled and
// has never been generated.
func (s *ReportService) Duplicate(ctx context.Context, id int64) (*domain.Report, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	code, err := s.nextCode(ctx)
	if err != nil {
		return nil, err
	}
	dup := *src
	dup.ID = 0
	dup.Code = code
	dup.Name = src.Name + " (Copy)"
	dup.CreatedAt = s.now()
	dup.LastGeneratedAt = nil
	dup.IsScheduled = false
	r, err := s.reports.Create(ctx, &dup)
	if err != nil {
		return nil, err
	}
	s.logger.Info("report duplicated", "report_id", id, "copy_id", r.ID)
	return r, nil
}

// ParseRecipients splits a list of addresses separated by commas, semicolons
// or whitespace.
func ParseRecipients(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
	})
}

func ValidateSchedule(in ScheduleInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	if !in.Enabled {
		return errs
	}
	if !in.Frequency.Valid() {
		errs.Add("frequency", "Choose how often the report runs")
	}
	for _, rcpt := range in.Recipients {
		addr, err := mail.ParseAddress(rcpt)
		if err != nil || addr.Address != rcpt {
			errs.Add("recipients", fmt.Sprintf("%q is not an e-mail address", rcpt))
		}
	}
	return errs
}

// SaveSchedule turns scheduling on or off. Disabling keeps the frequency and
// recipients for the next time it is enabled.
func (s *ReportService) SaveSchedule(ctx context.Context, id int64, in ScheduleInput) (*domain.Report, error) {
	if err := ValidateSchedule(in).Err(); err != nil {
		return nil, err
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.IsScheduled = in.Enabled
	if in.Enabled {
		r.Frequency = in.Frequency
		r.Recipients = in.Recipients
	}
	if err := s.reports.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	s.logger.Info("report schedule saved", "report_id", id, "scheduled", r.IsScheduled, "frequency", r.Frequency)
	if r.IsScheduled {
		recordActivity(ctx, s.activities, s.logger, &domain.Activity{
			Kind: domain.ActivityScheduled, Action: "Report scheduled", Subject: r.Name,
			Actor: "Current User", Details: "Runs " + string(r.Frequency), CreatedAt: s.now(),
		})
	}
	return r, nil
}

// Generate runs the report over the current data and records the run.
func (s *ReportService) Generate(ctx context.Context, id int64, generatedBy string) (*domain.ReportResult, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("report generation started", "report_id", id, "type", r.Type)
	start := time.Now()
	data, err := s.sources.load(ctx)
	if err != nil {
		return nil, err
	}
	at := s.now()
	res := &domain.ReportResult{
		ReportCode:  r.Code,
		ReportName:  r.Name,
		GeneratedAt: at,
		GeneratedBy: generatedBy,
		Summary: domain.ReportSummary{
			RangeStart: at.Add(-reportWindow),
			RangeEnd:   at,
		},
	}
	data.build(r.Type, res)
	if res.Rows == nil {
		res.Rows = [][]string{}
	}
	res.ExecutionTime = time.Since(start)

	if _, err := s.reports.RecordRun(ctx, &domain.ReportRun{
		ReportID:    r.ID,
		ReportType:  r.Type,
		GeneratedAt: at,
		GeneratedBy: generatedBy,
		RecordCount: res.RecordCount,
		DurationMS:  res.ExecutionTime.Milliseconds(),
	}); err != nil {
		return nil, err
	}

	s.metrics.ReportGenerated(string(r.Type))
	recordActivity(ctx, s.activities, s.logger, &domain.Activity{
		Kind: domain.ActivityGenerated, Action: "Report generated", Subject: r.Name, Actor: generatedBy,
		Details: fmt.Sprintf("Generated successfully with %d records", res.RecordCount), CreatedAt: at,
	})
	s.logger.Info("report generation complete", "report_id", id, "records", res.RecordCount, "duration", res.ExecutionTime)
	return res, nil
}

// Export generates the report and writes it to w in format. It returns the
// download file name; PDF is refused with ErrUnsupportedFormat.
func (s *ReportService) Export(ctx context.Context, id int64, format domain.ReportFormat, w io.Writer) (string, error) {
	if !format.Valid() || format == domain.FormatPDF {
		return "", fmt.Errorf("export %q: %w", format, domain.ErrUnsupportedFormat)
	}
	res, err := s.Generate(ctx, id, "Current User")
	if err != nil {
		return "", err
	}
	if err := export.Report(w, format, res); err != nil {
		return "", err
	}
	return export.FileName(res, format), nil
}

// Publish generates a scheduled report and stores one file per requested
// format under reports/<code>/. It returns the stored keys.
func (s *ReportService) Publish(ctx context.Context, id int64) ([]string, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.Generate(ctx, id, "Scheduler")
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, format := range r.Formats {
		var buf bytes.Buffer
		err := export.Report(&buf, format, res)
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			s.logger.Warn("skipping unsupported report format", "report_id", id, "format", format)
			continue
		}
		if err != nil {
			return keys, err
		}
		key := fmt.Sprintf("reports/%s/%s", strings.ToLower(r.Code), export.FileName(res, format))
		if err := s.blobs.Put(ctx, key, bytes.NewReader(buf.Bytes()), blobstore.PutOptions{ContentType: export.ContentType(format)}); err != nil {
			return keys, fmt.Errorf("failed to store report %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	// E-mail delivery is out of scope; the recipients are recorded in the log.
	s.logger.Info("scheduled report published", "report_id", id, "files", keys, "recipients", r.Recipients)
	return keys, nil
}

// Scheduled lists the active reports with scheduling on.
func (s *ReportService) Scheduled(ctx context.Context) ([]*domain.Report, error) {
	reports, err := s.reports.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	var out []*domain.Report
	for _, r := range reports {
		if r.IsActive && r.IsScheduled && r.Frequency.Valid() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ReportService) Dashboard(ctx context.Context) (*domain.ReportDashboard, error) {
	reports, err := s.reports.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	runs, err := s.reports.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.activities.ListRecent(ctx, recentActivityLimit, domain.ActivityGenerated, domain.ActivityScheduled)
	if err != nil {
		return nil, err
	}
	d := ReportDashboardOf(reports, runs, s.now())
	d.RecentActivity = recent
	return d, nil
}

// ReportDashboardOf derives the report dashboard cards from the reports and
// their run history.
func ReportDashboardOf(reports []*domain.Report, runs []*domain.ReportRun, at time.Time) *domain.ReportDashboard {
	d := &domain.ReportDashboard{TotalReports: len(reports)}
	for _, r := range reports {
		if r.IsScheduled {
			d.ScheduledReports++
		}
	}

	byType := make(map[string]int)
	var total int64
	for _, run := range runs {
		if sameDay(run.GeneratedAt, at) {
			d.ReportsGeneratedToday++
		}
		total += run.DurationMS
		byType[string(run.ReportType)]++
	}
	if len(runs) > 0 {
		d.AverageExecutionTime = time.Duration(total/int64(len(runs))) * time.Millisecond
	}

	for t, n := range byType {
		d.PopularReportTypes = append(d.PopularReportTypes, domain.TypeCount{Type: t, Count: n})
	}
	sort.Slice(d.PopularReportTypes, func(i, j int) bool {
		a, b := d.PopularReportTypes[i], d.PopularReportTypes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Type < b.Type
	})
	return d
}
