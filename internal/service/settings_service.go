package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"net/netip"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/export"
	"github.com/vbonduro/toolkeepr/internal/metrics"
)

// Settings sections, each stored under its own key.
const (
	SectionProfile       = "profile"
	SectionNotifications = "notifications"
	SectionSecurity      = "security"
	SectionAppearance    = "appearance"
	SectionBackup        = "backup"
)

const (
	backupPrefix = "backups/"
	avatarPrefix = "avatars/"
)

var (
	BackupFrequencies = []string{"daily", "weekly", "monthly"}
	BackupLocations   = []string{"local", "cloud", "both"}
)

// settingsRepository is the subset of store.SettingsStore that SettingsService requires.
type settingsRepository interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	PutAll(ctx context.Context, sections map[string]any, at time.Time) error
}

// reportLister is the read side of store.ReportStore used by exports.
type reportLister interface {
	List(ctx context.Context) ([]*domain.Report, error)
}

// ExportOptions selects the parts of a data export.
type ExportOptions struct {
	Tools    bool
	Reports  bool
	Settings bool
	Profile  bool
}

// Backup is the document written by CreateBackup and accepted by Import.
type Backup struct {
	Timestamp   time.Time             `json:"timestamp"`
	UserProfile domain.UserProfile    `json:"userProfile"`
	Settings    domain.SettingsBundle `json:"settings"`
}

type SettingsService struct {
	settings settingsRepository
	tools    toolLister
	reports  reportLister
	blobs    blobstore.Store
	metrics  *metrics.Metrics
	logFile  string
	logger   *slog.Logger
	now      func() time.Time
}

func NewSettingsService(
	settings settingsRepository,
	tools toolLister,
	reports reportLister,
	blobs blobstore.Store,
	m *metrics.Metrics,
	logFile string,
	logger *slog.Logger,
) *SettingsService {
	return &SettingsService{
		settings: settings,
		tools:    tools,
		reports:  reports,
		blobs:    blobs,
		metrics:  m,
		logFile:  logFile,
		logger:   logger,
		now:      now,
	}
}

// Get returns the saved settings, with defaults for anything never saved.
func (s *SettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	st := domain.DefaultSettings()
	sections := map[string]any{
		SectionProfile:       &st.Profile,
		SectionNotifications: &st.Notifications,
		SectionSecurity:      &st.Security,
		SectionAppearance:    &st.Appearance,
		SectionBackup:        &st.Backup,
	}
	for key, dst := range sections {
		if _, err := s.settings.Get(ctx, key, dst); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

func ValidateProfile(p domain.UserProfile) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	validateLength(errs, "firstName", "First name", p.FirstName, 2, 50)
	validateLength(errs, "lastName", "Last name", p.LastName, 2, 50)
	if addr, err := mail.ParseAddress(p.Email); err != nil || addr.Address != p.Email {
		errs.Add("email", "Enter a valid e-mail address")
	}
	oneOf(errs, "timezone", "Timezone", p.Timezone, domain.Timezones)
	oneOf(errs, "language", "Language", p.Language, domain.Languages)
	oneOf(errs, "dateFormat", "Date format", p.DateFormat, domain.DateFormats)
	oneOf(errs, "timeFormat", "Time format", p.TimeFormat, domain.TimeFormats)
	return errs
}

func ValidateSecurity(sec domain.SecuritySettings) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	inRange(errs, "sessionTimeout", "Session timeout", sec.SessionTimeout, 5, 480)
	inRange(errs, "passwordExpiry", "Password expiry", sec.PasswordExpiry, 30, 365)
	for _, ip := range sec.IPWhitelist {
		if _, err := netip.ParseAddr(ip); err == nil {
			continue
		}
		if _, err := netip.ParsePrefix(ip); err != nil {
			errs.Add("ipWhitelist", fmt.Sprintf("%q is not an IP address or range", ip))
		}
	}
	return errs
}

func ValidateAppearance(a domain.AppearanceSettings) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	oneOf(errs, "theme", "Theme", a.Theme, domain.Themes)
	if !hexColor.MatchString(a.PrimaryColor) {
		errs.Add("primaryColor", "Primary color must be a hex value like #1976d2")
	}
	if !hexColor.MatchString(a.AccentColor) {
		errs.Add("accentColor", "Accent color must be a hex value like #ff4081")
	}
	oneOf(errs, "fontSize", "Font size", a.FontSize, domain.FontSizes)
	return errs
}

func ValidateBackup(b domain.BackupSettings) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	oneOf(errs, "backupFrequency", "Backup frequency", b.BackupFrequency, BackupFrequencies)
	oneOf(errs, "backupLocation", "Backup location", b.BackupLocation, BackupLocations)
	inRange(errs, "retentionPeriod", "Retention period", b.RetentionPeriod, 1, 365)
	return errs
}

// ValidateSettings checks every section; fields are prefixed with the section name.
func ValidateSettings(st *domain.Settings) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	merge := func(section string, v domain.ValidationErrors) {
		for f, msg := range v {
			errs.Add(section+"."+f, msg)
		}
	}
	merge(SectionProfile, ValidateProfile(st.Profile))
	merge(SectionSecurity, ValidateSecurity(st.Security))
	merge(SectionAppearance, ValidateAppearance(st.Appearance))
	merge(SectionBackup, ValidateBackup(st.Backup))
	return errs
}

func oneOf(errs domain.ValidationErrors, field, label, v string, allowed []string) {
	if v == "" {
		errs.Add(field, label+" is required")
	} else if !slices.Contains(allowed, v) {
		errs.Add(field, fmt.Sprintf("%s must be one of %s", label, strings.Join(allowed, ", ")))
	}
}

func inRange(errs domain.ValidationErrors, field, label string, v, min, max int) {
	if v < min || v > max {
		errs.Add(field, fmt.Sprintf("%s must be between %d and %d", label, min, max))
	}
}

func (s *SettingsService) put(ctx context.Context, sections map[string]any) error {
	if err := s.settings.PutAll(ctx, sections, s.now()); err != nil {
		return err
	}
	keys := make([]string, 0, len(sections))
	for k := range sections {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	s.logger.Info("settings saved", "sections", keys)
	return nil
}

func (s *SettingsService) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	if err := ValidateProfile(p).Err(); err != nil {
		return err
	}
	return s.put(ctx, map[string]any{SectionProfile: p})
}

// SaveAvatar stores a profile picture and points the profile at it. The
// previous picture is removed once the profile no longer references it.
func (s *SettingsService) SaveAvatar(ctx context.Context, data []byte, mimeType string) (string, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	key, err := s.blobs.Save(ctx, avatarPrefix+"profile", mimeType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}
	old := st.Profile.Avatar
	st.Profile.Avatar = key
	if err := s.put(ctx, map[string]any{SectionProfile: st.Profile}); err != nil {
		_ = s.blobs.Delete(ctx, key)
		return "", err
	}
	if strings.HasPrefix(old, avatarPrefix) {
		if err := s.blobs.Delete(ctx, old); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("failed to delete old avatar", "key", old, "error", err)
		}
	}
	s.logger.Info("avatar saved", "key", key, "bytes", len(data))
	return key, nil
}

// Avatar opens the stored profile picture. Only keys under the avatar prefix
// are served, so an imported profile cannot point the route at other blobs.
func (s *SettingsService) Avatar(ctx context.Context) (io.ReadCloser, string, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, "", err
	}
	key := st.Profile.Avatar
	if !strings.HasPrefix(key, avatarPrefix) {
		return nil, "", notFound("avatar", "profile")
	}
	rc, mimeType, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, "", notFound("avatar", key)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open avatar: %w", err)
	}
	return rc, mimeType, nil
}

func (s *SettingsService) SaveNotifications(ctx context.Context, n domain.NotificationSettings) error {
	return s.put(ctx, map[string]any{SectionNotifications: n})
}

func (s *SettingsService) SaveSecurity(ctx context.Context, sec domain.SecuritySettings) error {
	if err := ValidateSecurity(sec).Err(); err != nil {
		return err
	}
	return s.put(ctx, map[string]any{SectionSecurity: sec})
}

func (s *SettingsService) SaveAppearance(ctx context.Context, a domain.AppearanceSettings) error {
	if err := ValidateAppearance(a).Err(); err != nil {
		return err
	}
	return s.put(ctx, map[string]any{SectionAppearance: a})
}

func (s *SettingsService) SaveBackup(ctx context.Context, b domain.BackupSettings) error {
	if err := ValidateBackup(b).Err(); err != nil {
		return err
	}
	return s.put(ctx, map[string]any{SectionBackup: b})
}

// SaveAll validates every section and only then writes them together.
func (s *SettingsService) SaveAll(ctx context.Context, st *domain.Settings) error {
	if err := ValidateSettings(st).Err(); err != nil {
		return err
	}
	return s.put(ctx, sectionsOf(st))
}

func sectionsOf(st *domain.Settings) map[string]any {
	return map[string]any{
		SectionProfile:       st.Profile,
		SectionNotifications: st.Notifications,
		SectionSecurity:      st.Security,
		SectionAppearance:    st.Appearance,
		SectionBackup:        st.Backup,
	}
}

// Reset restores the regional profile fields and the appearance to their defaults.
func (s *SettingsService) Reset(ctx context.Context) (*domain.Settings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	st.Profile.Timezone = "UTC"
	st.Profile.Language = "en"
	st.Profile.DateFormat = "MM/dd/yyyy"
	st.Profile.TimeFormat = "12h"
	st.Appearance = domain.DefaultAppearance()
	if err := s.put(ctx, map[string]any{SectionProfile: st.Profile, SectionAppearance: st.Appearance}); err != nil {
		return nil, err
	}
	return st, nil
}

// Export writes a snapshot with the selected parts and returns the download
// file name.
func (s *SettingsService) Export(ctx context.Context, opts ExportOptions, w io.Writer) (string, error) {
	at := s.now()
	var (
		st      *domain.Settings
		tools   []*domain.Tool
		reports []*domain.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	if opts.Settings || opts.Profile {
		g.Go(func() (err error) {
			st, err = s.Get(gctx)
			return err
		})
	}
	if opts.Tools {
		g.Go(func() (err error) {
			tools, err = s.tools.List(gctx)
			return err
		})
	}
	if opts.Reports {
		g.Go(func() (err error) {
			reports, err = s.reports.List(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("failed to collect export: %w", err)
	}

	snapshot := map[string]any{"timestamp": at}
	if opts.Tools {
		snapshot["tools"] = nonNilSlice(tools)
	}
	if opts.Reports {
		snapshot["reports"] = nonNilSlice(reports)
	}
	if opts.Settings {
		snapshot["settings"] = st.SettingsBundle
	}
	if opts.Profile {
		snapshot["userProfile"] = st.Profile
	}
	if err := export.JSON(w, snapshot); err != nil {
		return "", err
	}
	s.logger.Info("data exported", "tools", opts.Tools, "reports", opts.Reports, "settings", opts.Settings, "profile", opts.Profile)
	return fmt.Sprintf("toolkeepr-export-%d.json", at.Unix()), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// CreateBackup stores the profile and settings in the blob store and returns
// the key and the document written.
func (s *SettingsService) CreateBackup(ctx context.Context) (string, []byte, error) {
	key, data, err := s.createBackup(ctx)
	s.metrics.Backup(err)
	if err != nil {
		s.logger.Error("backup failed", "error", err)
		return "", nil, err
	}
	s.logger.Info("backup created", "key", key, "bytes", len(data))
	return key, data, nil
}

func (s *SettingsService) createBackup(ctx context.Context) (string, []byte, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return "", nil, err
	}
	at := s.now()
	var buf bytes.Buffer
	if err := export.JSON(&buf, Backup{Timestamp: at, UserProfile: st.Profile, Settings: st.SettingsBundle}); err != nil {
		return "", nil, err
	}
	data := buf.Bytes()
	key := fmt.Sprintf("%stoolkeepr-backup-%d.json", backupPrefix, at.Unix())
	err = s.blobs.Put(ctx, key, bytes.NewReader(data), blobstore.PutOptions{
		ContentType: "application/json",
		Encrypt:     st.Backup.EncryptBackups,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to store backup: %w", err)
	}
	return key, data, nil
}

// ListBackups returns the stored backups, newest first.
func (s *SettingsService) ListBackups(ctx context.Context) ([]blobstore.Info, error) {
	infos, err := s.blobs.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	slices.SortFunc(infos, func(a, b blobstore.Info) int {
		return BackupTime(b).Compare(BackupTime(a))
	})
	return infos, nil
}

// BackupTime reads a backup's creation time from its key, falling back to
// the object's modification time.
func BackupTime(info blobstore.Info) time.Time {
	name := strings.TrimSuffix(strings.TrimPrefix(path.Base(info.Key), "toolkeepr-backup-"), ".json")
	if unix, err := strconv.ParseInt(name, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC()
	}
	return info.LastModified
}

// PruneBackups deletes backups older than the configured retention period
// and returns how many were removed.
func (s *SettingsService) PruneBackups(ctx context.Context) (int, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	infos, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().AddDate(0, 0, -st.Backup.RetentionPeriod)
	removed := 0
	for _, info := range infos {
		if !BackupTime(info).Before(cutoff) {
			continue
		}
		if err := s.blobs.Delete(ctx, info.Key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return removed, fmt.Errorf("failed to delete backup %s: %w", info.Key, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("old backups pruned", "removed", removed, "retention_days", st.Backup.RetentionPeriod)
	}
	return removed, nil
}

// Import merges a backup or export document into the saved settings. Keys
// present in the document override, absent keys keep their value. Malformed
// JSON is reported as ErrInvalidImport.
func (s *SettingsService) Import(ctx context.Context, r io.Reader) (*domain.Settings, error) {
	var doc struct {
		UserProfile json.RawMessage `json:"userProfile"`
		Settings    *struct {
			Notifications json.RawMessage `json:"notifications"`
			Security      json.RawMessage `json:"security"`
			Appearance    json.RawMessage `json:"appearance"`
			Backup        json.RawMessage `json:"backup"`
		} `json:"settings"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}

	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	overlay := func(raw json.RawMessage, dst any) error {
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
		}
		return nil
	}
	if err := overlay(doc.UserProfile, &st.Profile); err != nil {
		return nil, err
	}
	if doc.Settings != nil {
		for _, sec := range []struct {
			raw json.RawMessage
			dst any
		}{
			{doc.Settings.Notifications, &st.Notifications},
			{doc.Settings.Security, &st.Security},
			{doc.Settings.Appearance, &st.Appearance},
			{doc.Settings.Backup, &st.Backup},
		} {
			if err := overlay(sec.raw, sec.dst); err != nil {
				return nil, err
			}
		}
	}

	if err := s.SaveAll(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("settings imported")
	return st, nil
}

// Logs opens the configured log file for download.
func (s *SettingsService) Logs() (io.ReadCloser, error) {
	if s.logFile == "" {
		return nil, fmt.Errorf("log file: %w", domain.ErrNotFound)
	}
	f, err := os.Open(s.logFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("log file %s: %w", s.logFile, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
