package web

import (
	"context"
	"io"
	"net/http"
	"path"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, status int, st *domain.Settings, section string, errs domain.ValidationErrors) {
	backups, err := s.svc.Settings.ListBackups(r.Context())
	if err != nil {
		s.fail(w, err, "list backups")
		return
	}
	data := viewData("settings")
	data["Settings"] = st
	data["Section"] = section
	data["Errors"] = errs
	data["Backups"] = backups
	data["Timezones"] = domain.Timezones
	data["Languages"] = domain.Languages
	data["DateFormats"] = domain.DateFormats
	data["TimeFormats"] = domain.TimeFormats
	data["Themes"] = domain.Themes
	data["FontSizes"] = domain.FontSizes
	data["BackupFrequencies"] = service.BackupFrequencies
	data["BackupLocations"] = service.BackupLocations
	s.page(w, status, data, "pages/settings.html")
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Settings.Get(r.Context())
	if err != nil {
		s.fail(w, err, "load settings")
		return
	}
	s.renderSettings(w, r, http.StatusOK, st, r.URL.Query().Get("section"), domain.ValidationErrors{})
}

// applySection copies the posted section onto st and returns the saver for
// it, or nil for an unknown section.
func applySection(r *http.Request, section string, st *domain.Settings, svc *service.SettingsService) func(context.Context) error {
	switch section {
	case service.SectionProfile:
		st.Profile = domain.UserProfile{
			FirstName:  formText(r, "firstName"),
			LastName:   formText(r, "lastName"),
			Email:      formText(r, "email"),
			Avatar:     st.Profile.Avatar,
			Timezone:   formText(r, "timezone"),
			Language:   formText(r, "language"),
			DateFormat: formText(r, "dateFormat"),
			TimeFormat: formText(r, "timeFormat"),
		}
		return func(ctx context.Context) error { return svc.SaveProfile(ctx, st.Profile) }
	case service.SectionNotifications:
		st.Notifications = domain.NotificationSettings{
			EmailNotifications: formBool(r, "emailNotifications"),
			PushNotifications:  formBool(r, "pushNotifications"),
			ReportAlerts:       formBool(r, "reportAlerts"),
			SystemUpdates:      formBool(r, "systemUpdates"),
			WeeklyDigest:       formBool(r, "weeklyDigest"),
			TaskReminders:      formBool(r, "taskReminders"),
			MaintenanceAlerts:  formBool(r, "maintenanceAlerts"),
		}
		return func(ctx context.Context) error { return svc.SaveNotifications(ctx, st.Notifications) }
	case service.SectionSecurity:
		st.Security = domain.SecuritySettings{
			TwoFactorAuth:  formBool(r, "twoFactorAuth"),
			SessionTimeout: formInt(r, "sessionTimeout"),
			PasswordExpiry: formInt(r, "passwordExpiry"),
			LoginAlerts:    formBool(r, "loginAlerts"),
			IPWhitelist:    formList(r, "ipWhitelist"),
			AllowedDevices: formList(r, "allowedDevices"),
		}
		return func(ctx context.Context) error { return svc.SaveSecurity(ctx, st.Security) }
	case service.SectionAppearance:
		st.Appearance = domain.AppearanceSettings{
			Theme:             formText(r, "theme"),
			PrimaryColor:      formText(r, "primaryColor"),
			AccentColor:       formText(r, "accentColor"),
			FontSize:          formText(r, "fontSize"),
			CompactMode:       formBool(r, "compactMode"),
			AnimationsEnabled: formBool(r, "animationsEnabled"),
			HighContrast:      formBool(r, "highContrast"),
		}
		return func(ctx context.Context) error { return svc.SaveAppearance(ctx, st.Appearance) }
	case service.SectionBackup:
		st.Backup = domain.BackupSettings{
			AutoBackup:      formBool(r, "autoBackup"),
			BackupFrequency: formText(r, "backupFrequency"),
			BackupLocation:  formText(r, "backupLocation"),
			RetentionPeriod: formInt(r, "retentionPeriod"),
			EncryptBackups:  formBool(r, "encryptBackups"),
		}
		return func(ctx context.Context) error { return svc.SaveBackup(ctx, st.Backup) }
	}
	return nil
}

func (s *Server) handleSaveSection(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	st, err := s.svc.Settings.Get(r.Context())
	if err != nil {
		s.fail(w, err, "load settings")
		return
	}
	save := applySection(r, section, st, s.svc.Settings)
	if save == nil {
		http.NotFound(w, r)
		return
	}
	if err := save(r.Context()); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderSettings(w, r, http.StatusBadRequest, st, section, v)
			return
		}
		s.fail(w, err, "save settings")
		return
	}
	redirect(w, r, "/settings?section="+section)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Settings.Reset(r.Context()); err != nil {
		s.fail(w, err, "reset settings")
		return
	}
	redirect(w, r, "/settings")
}

// handleExportData downloads a snapshot. With no part selected every part
// is included.
func (s *Server) handleExportData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ExportOptions{
		Tools:    q.Has("tools"),
		Reports:  q.Has("reports"),
		Settings: q.Has("settings"),
		Profile:  q.Has("profile"),
	}
	if opts == (service.ExportOptions{}) {
		opts = service.ExportOptions{Tools: true, Reports: true, Settings: true, Profile: true}
	}
	s.download(w, r, "application/json", "export data", func(ctx context.Context, w io.Writer) (string, error) {
		return s.svc.Settings.Export(ctx, opts, w)
	})
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	key, data, err := s.svc.Settings.CreateBackup(r.Context())
	if err != nil {
		s.fail(w, err, "create backup")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write backup failed", "key", key, "error", err)
	}
}

func (s *Server) handleImportSettings(w http.ResponseWriter, r *http.Request) {
	file, err := openUpload(w, r, "file", maxImportSize)
	if err != nil {
		uploadError(w, err, "settings file")
		return
	}
	defer closeWithLog(file, "import file", s.logger)

	st, err := s.svc.Settings.Import(r.Context(), file)
	if err != nil {
		if v, ok := validationOf(err); ok {
			current, gerr := s.svc.Settings.Get(r.Context())
			if gerr != nil {
				s.fail(w, gerr, "load settings")
				return
			}
			s.renderSettings(w, r, http.StatusBadRequest, current, "import", v)
			return
		}
		s.fail(w, err, "import settings")
		return
	}
	s.logger.Info("settings imported via web", "theme", st.Appearance.Theme)
	redirect(w, r, "/settings")
}

func (s *Server) handleDownloadLogs(w http.ResponseWriter, r *http.Request) {
	rc, err := s.svc.Settings.Logs()
	if err != nil {
		s.fail(w, err, "download logs")
		return
	}
	defer closeWithLog(rc, "log file", s.logger)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="toolkeepr.log"`)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write logs failed", "error", err)
	}
}
