package web

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/metrics"
	"github.com/vbonduro/toolkeepr/internal/service"
)

// Services groups the application services the handlers call into.
type Services struct {
	Tools       *service.ToolService
	ToolTypes   *service.ToolTypeService
	Categories  *service.CategoryService
	Locations   *service.LocationService
	Circulation *service.CirculationService
	Reports     *service.ReportService
	Settings    *service.SettingsService
}

// scheduleSyncer is told when a report schedule changes so the cron table
// can be rebuilt without waiting for the next periodic sync.
type scheduleSyncer interface {
	Sync(ctx context.Context) error
}

type Server struct {
	svc       Services
	templates fs.FS
	metrics   *metrics.Metrics
	scheduler scheduleSyncer
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

func NewServer(svc Services, tmpl fs.FS, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		svc:       svc,
		templates: tmpl,
		metrics:   m,
		mux:       http.NewServeMux(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"inc":         func(i int) int { return i + 1 },
			"sub":         func(a, b int) int { return a - b },
			"ago":         ago,
			"date":        formatDate,
			"dateTime":    formatDateTime,
			"bytes":       func(n int64) string { return humanize.Bytes(uint64(max(n, 0))) },
			"comma":       func(n int) string { return humanize.Comma(int64(n)) },
			"percent":     func(f float64) string { return humanize.FtoaWithDigits(f, 0) + "%" },
			"band":        service.OccupancyBand,
			"join":        strings.Join,
			"statusLabel": func(st domain.ToolStatus) string { return st.Label() },
			"has":         has,
			"hasFormat":   hasFormat,
			"checked":     checked,
			"selected":    selected,
			"daysOverdue": func(t time.Time) int { return service.DaysOverdue(t, time.Now().UTC()) },
			"duration":    func(d time.Duration) string { return d.Round(time.Millisecond).String() },
		},
	}
	s.registerRoutes()
	return s
}

// SetScheduler registers the report scheduler to resync after schedule edits.
func (s *Server) SetScheduler(sc scheduleSyncer) {
	s.scheduler = sc
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	s.mux.HandleFunc("GET /dashboard", s.handleDashboard)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /tools", s.handleListTools)
	s.mux.HandleFunc("GET /tools/new", s.handleNewTool)
	s.mux.HandleFunc("POST /tools", s.handleCreateTool)
	s.mux.HandleFunc("GET /tools/properties", s.handleToolProperties)
	s.mux.HandleFunc("GET /tools/{id}", s.handleEditTool)
	s.mux.HandleFunc("POST /tools/{id}", s.handleUpdateTool)
	s.mux.HandleFunc("DELETE /tools/{id}", s.handleDeleteTool)
	s.mux.HandleFunc("POST /tools/{id}/standard", s.handleToggleStandard)
	s.mux.HandleFunc("GET /standard-tools", s.handleStandardTools)

	s.mux.HandleFunc("GET /tool-types", s.handleListToolTypes)
	s.mux.HandleFunc("POST /tool-types", s.handleCreateToolType)
	s.mux.HandleFunc("GET /tool-types/{id}", s.handleEditToolType)
	s.mux.HandleFunc("POST /tool-types/{id}", s.handleUpdateToolType)
	s.mux.HandleFunc("DELETE /tool-types/{id}", s.handleDeleteToolType)
	s.mux.HandleFunc("POST /tool-types/{id}/toggle", s.handleToggleToolType)
	s.mux.HandleFunc("POST /tool-types/{id}/properties", s.handleAddProperty)
	s.mux.HandleFunc("DELETE /tool-types/{id}/properties/{pid}", s.handleRemoveProperty)

	s.mux.HandleFunc("GET /checkout", s.handleCheckoutPage)
	s.mux.HandleFunc("POST /checkout", s.handleCheckout)
	s.mux.HandleFunc("GET /checkin", s.handleCheckinPage)
	s.mux.HandleFunc("POST /checkin/scan", s.handleScan)
	s.mux.HandleFunc("POST /checkin/bulk", s.handleBulkReturn)
	s.mux.HandleFunc("POST /checkin/{id}/return", s.handleReturn)
	s.mux.HandleFunc("POST /checkin/refresh", s.handleRefreshOverdue)

	s.mux.HandleFunc("GET /categories", s.handleListCategories)
	s.mux.HandleFunc("POST /categories", s.handleCreateCategory)
	s.mux.HandleFunc("GET /categories/export", s.handleExportCategories)
	s.mux.HandleFunc("GET /categories/{id}", s.handleEditCategory)
	s.mux.HandleFunc("POST /categories/{id}", s.handleUpdateCategory)
	s.mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)
	s.mux.HandleFunc("POST /categories/{id}/toggle", s.handleToggleCategory)

	s.mux.HandleFunc("GET /locations", s.handleListLocations)
	s.mux.HandleFunc("POST /locations", s.handleCreateLocation)
	s.mux.HandleFunc("GET /locations/export", s.handleExportLocations)
	s.mux.HandleFunc("GET /locations/{id}", s.handleEditLocation)
	s.mux.HandleFunc("POST /locations/{id}", s.handleUpdateLocation)
	s.mux.HandleFunc("DELETE /locations/{id}", s.handleDeleteLocation)
	s.mux.HandleFunc("POST /locations/{id}/toggle", s.handleToggleLocation)
	s.mux.HandleFunc("POST /locations/{id}/photos", s.handleUploadPhoto)
	s.mux.HandleFunc("GET /locations/{id}/photo", s.handleGetPhoto)

	s.mux.HandleFunc("GET /reports", s.handleListReports)
	s.mux.HandleFunc("POST /reports", s.handleCreateReport)
	s.mux.HandleFunc("GET /reports/{id}", s.handleEditReport)
	s.mux.HandleFunc("POST /reports/{id}", s.handleUpdateReport)
	s.mux.HandleFunc("DELETE /reports/{id}", s.handleDeleteReport)
	s.mux.HandleFunc("POST /reports/{id}/duplicate", s.handleDuplicateReport)
	s.mux.HandleFunc("POST /reports/{id}/schedule", s.handleSaveSchedule)
	s.mux.HandleFunc("POST /reports/{id}/generate", s.handleGenerateReport)
	s.mux.HandleFunc("GET /reports/{id}/export", s.handleExportReport)

	s.mux.HandleFunc("GET /settings", s.handleSettings)
	s.mux.HandleFunc("POST /settings/{section}", s.handleSaveSection)
	s.mux.HandleFunc("POST /settings/reset", s.handleResetSettings)
	s.mux.HandleFunc("GET /settings/export", s.handleExportData)
	s.mux.HandleFunc("POST /settings/backups", s.handleCreateBackup)
	s.mux.HandleFunc("POST /settings/import", s.handleImportSettings)
	s.mux.HandleFunc("POST /settings/avatar", s.handleUploadAvatar)
	s.mux.HandleFunc("GET /settings/avatar", s.handleGetAvatar)
	s.mux.HandleFunc("GET /settings/logs", s.handleDownloadLogs)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestLogger logs each request with a request id and feeds the HTTP
// metrics. The route label is the matched mux pattern so ids stay out of it.
func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(r.Method, route, rec.status, elapsed)
		logger.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, append([]string{"base.html"}, files...)...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// page renders a full page, logging rather than returning render failures.
func (s *Server) page(w http.ResponseWriter, status int, data map[string]any, files ...string) {
	if err := s.renderPage(w, status, data, files...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) partial(w http.ResponseWriter, file string, data any) {
	if err := s.renderPartial(w, file, data); err != nil {
		s.logger.Error("render partial failed", "file", file, "error", err)
	}
}

// isHTMX reports whether the request came from an htmx swap.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends htmx clients an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidImport),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrNothingSelected):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrVisionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes an error response for err. Server errors are logged and the
// client only sees a generic message.
func (s *Server) fail(w http.ResponseWriter, err error, action string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error(action+" failed", "error", err)
		http.Error(w, "failed to "+action, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func ago(v any) string {
	switch t := v.(type) {
	case time.Time:
		return humanize.Time(t)
	case *time.Time:
		if t == nil {
			return "never"
		}
		return humanize.Time(*t)
	}
	return ""
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateOnly)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(time.DateOnly)
	}
	return ""
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// has reports whether v is one of the values in list.
func has(list []string, v string) bool {
	return slices.Contains(list, v)
}

func hasFormat(list []domain.ReportFormat, v domain.ReportFormat) bool {
	return slices.Contains(list, v)
}

func checked(b bool) template.HTMLAttr {
	if b {
		return "checked"
	}
	return ""
}

func selected(a, b string) template.HTMLAttr {
	if a == b {
		return "selected"
	}
	return ""
}
