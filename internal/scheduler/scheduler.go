package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/metrics"
	"github.com/vbonduro/toolkeepr/internal/service"
)

const (
	jobOverdue = "overdue_refresh"
	jobBackup  = "settings_backup"
	jobSync    = "schedule_sync"
	jobReport  = "scheduled_report"

	syncSpec = "@every 15m"
)

// reportPublisher is the subset of service.ReportService the scheduler requires.
type reportPublisher interface {
	Scheduled(ctx context.Context) ([]*domain.Report, error)
	Publish(ctx context.Context, id int64) ([]string, error)
}

// overdueRefresher is the subset of service.CirculationService the scheduler requires.
type overdueRefresher interface {
	RefreshOverdue(ctx context.Context) (int, error)
}

// backupper is the subset of service.SettingsService the scheduler requires.
// ListBackups returns the newest backup first.
type backupper interface {
	Get(ctx context.Context) (*domain.Settings, error)
	ListBackups(ctx context.Context) ([]blobstore.Info, error)
	CreateBackup(ctx context.Context) (string, []byte, error)
	PruneBackups(ctx context.Context) (int, error)
}

type reportEntry struct {
	id   cron.EntryID
	spec string
}

// Scheduler runs the recurring jobs: scheduled reports, the hourly overdue
// sweep and automatic settings backups.
type Scheduler struct {
	cron        *cron.Cron
	reports     reportPublisher
	circulation overdueRefresher
	settings    backupper
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	runCtx  context.Context
	entries map[int64]reportEntry
}

func New(reports reportPublisher, circulation overdueRefresher, settings backupper, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		reports:     reports,
		circulation: circulation,
		settings:    settings,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		runCtx:      context.Background(),
		entries:     make(map[int64]reportEntry),
	}
}

// Start registers the fixed jobs, loads the report schedules and starts the
// cron loop. Jobs run with ctx until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	fixed := []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		{"@hourly", jobOverdue, s.refreshOverdue},
		{"@hourly", jobBackup, s.backup},
		{syncSpec, jobSync, s.Sync},
	}
	for _, j := range fixed {
		if _, err := s.cron.AddFunc(j.spec, s.job(j.name, j.fn)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
	}
	if err := s.Sync(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "report_jobs", len(s.reportSpecs()))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Sync rebuilds the report entries from the scheduled reports. Entries whose
// frequency is unchanged are kept.
func (s *Scheduler) Sync(ctx context.Context) error {
	reports, err := s.reports.Scheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	want := make(map[int64]string, len(reports))
	for _, r := range reports {
		if spec := r.Frequency.CronSpec(); spec != "" {
			want[r.ID] = spec
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if want[id] != e.spec {
			s.cron.Remove(e.id)
			delete(s.entries, id)
		}
	}
	for id, spec := range want {
		if _, ok := s.entries[id]; ok {
			continue
		}
		entryID, err := s.cron.AddFunc(spec, s.job(jobReport, s.publish(id)))
		if err != nil {
			return fmt.Errorf("failed to schedule report %d: %w", id, err)
		}
		s.entries[id] = reportEntry{id: entryID, spec: spec}
	}
	s.logger.Debug("report schedules synced", "report_jobs", len(s.entries))
	return nil
}

// reportSpecs returns the cron spec registered for each report.
func (s *Scheduler) reportSpecs() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]string, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.spec
	}
	return out
}

// job wraps fn with the run context, metrics and logging.
func (s *Scheduler) job(name string, fn func(context.Context) error) func() {
	return func() {
		s.mu.Lock()
		ctx := s.runCtx
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := fn(ctx)
		s.metrics.JobRun(name, err)
		if err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("scheduled job complete", "job", name, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Scheduler) publish(id int64) func(context.Context) error {
	return func(ctx context.Context) error {
		keys, err := s.reports.Publish(ctx, id)
		if err != nil {
			return fmt.Errorf("report %d: %w", id, err)
		}
		s.logger.Info("scheduled report written", "report_id", id, "files", len(keys))
		return nil
	}
}

func (s *Scheduler) refreshOverdue(ctx context.Context) error {
	n, err := s.circulation.RefreshOverdue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("checkouts marked overdue", "count", n)
	}
	return nil
}

// backup takes a settings backup when auto-backup is on and the last one is
// older than the configured frequency, then prunes expired backups.
func (s *Scheduler) backup(ctx context.Context) error {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	var errs []error
	if st.Backup.AutoBackup {
		infos, err := s.settings.ListBackups(ctx)
		if err != nil {
			return err
		}
		var last time.Time
		if len(infos) > 0 {
			last = service.BackupTime(infos[0])
		}
		if backupDue(last, st.Backup.BackupFrequency, s.now()) {
			if _, _, err := s.settings.CreateBackup(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if _, err := s.settings.PruneBackups(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// backupDue reports whether a backup taken at last is stale for freq. A zero
// last means no backup exists yet.
func backupDue(last time.Time, freq string, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	var next time.Time
	switch freq {
	case "weekly":
		next = last.AddDate(0, 0, 7)
	case "monthly":
		next = last.AddDate(0, 1, 0)
	default:
		next = last.Add(24 * time.Hour)
	}
	return !now.Before(next)
}

// cronLogger routes cron's own logging into slog. Routine scheduling chatter
// goes to Debug.
type cronLogger struct {
	logger *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
