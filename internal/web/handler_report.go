package web

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/export"
	"github.com/vbonduro/toolkeepr/internal/service"
)

// generatedBy is the actor recorded for reports run from the web pages.
const generatedBy = "Current User"

var reportFormats = []domain.ReportFormat{domain.FormatPDF, domain.FormatExcel, domain.FormatCSV, domain.FormatJSON}

var scheduleFrequencies = []domain.ScheduleFrequency{
	domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyMonthly,
	domain.FrequencyQuarterly, domain.FrequencyYearly,
}

func reportFilterFrom(r *http.Request) service.ReportFilter {
	q := r.URL.Query()
	return service.ReportFilter{Type: q.Get("type"), Category: q.Get("category"), Search: q.Get("q")}
}

func (s *Server) renderReports(w http.ResponseWriter, r *http.Request, status int, form map[string]string, errs domain.ValidationErrors) {
	ctx := r.Context()
	f := reportFilterFrom(r)
	reports, err := s.svc.Reports.List(ctx, f)
	if err != nil {
		s.fail(w, err, "list reports")
		return
	}
	if isHTMX(r) && status == http.StatusOK {
		s.partial(w, "partials/report_rows.html", reports)
		return
	}
	dash, err := s.svc.Reports.Dashboard(ctx)
	if err != nil {
		s.fail(w, err, "report dashboard")
		return
	}
	data := viewData("reports")
	data["Reports"] = reports
	data["Dashboard"] = dash
	data["Filter"] = f
	data["Types"] = domain.ReportTypes
	data["Categories"] = domain.ReportCategories
	data["Formats"] = reportFormats
	data["Form"] = form
	data["Errors"] = errs
	s.page(w, status, data, "pages/reports.html", "partials/report_rows.html")
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{"type": string(domain.ReportInventory), "category": "Operations", "isActive": "on"}
	s.renderReports(w, r, http.StatusOK, form, domain.ValidationErrors{})
}

func reportInput(r *http.Request) service.ReportInput {
	in := service.ReportInput{
		Name:        formText(r, "name"),
		Description: formText(r, "description"),
		Type:        domain.ReportType(formText(r, "type")),
		Category:    formText(r, "category"),
		Tags:        formList(r, "tags"),
		IsActive:    formBool(r, "isActive"),
	}
	for _, f := range r.PostForm["formats"] {
		in.Formats = append(in.Formats, domain.ReportFormat(f))
	}
	return in
}

func reportForm(rep *domain.Report) map[string]string {
	return map[string]string{
		"name":        rep.Name,
		"description": rep.Description,
		"type":        string(rep.Type),
		"category":    rep.Category,
		"tags":        strings.Join(rep.Tags, ", "),
		"isActive":    boolField(rep.IsActive),
		"enabled":     boolField(rep.IsScheduled),
		"frequency":   string(rep.Frequency),
		"recipients":  strings.Join(rep.Recipients, ", "),
	}
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	rep, err := s.svc.Reports.Create(r.Context(), reportInput(r))
	if err != nil {
		if v, ok := validationOf(err); ok {
			s.renderReports(w, r, http.StatusBadRequest, formValues(r), v)
			return
		}
		s.fail(w, err, "create report")
		return
	}
	redirect(w, r, "/reports/"+strconv.FormatInt(rep.ID, 10))
}

// renderReport shows one report with its edit and schedule forms and, after
// a generate, the result table.
func (s *Server) renderReport(w http.ResponseWriter, status int, rep *domain.Report, form map[string]string, errs domain.ValidationErrors, result *domain.ReportResult) {
	data := viewData("reports")
	data["Report"] = rep
	data["Result"] = result
	data["Types"] = domain.ReportTypes
	data["Categories"] = domain.ReportCategories
	data["Formats"] = reportFormats
	data["Frequencies"] = scheduleFrequencies
	data["Form"] = form
	data["Errors"] = errs
	s.page(w, status, data, "pages/report_detail.html", "partials/report_result.html")
}

func (s *Server) reportFromPath(w http.ResponseWriter, r *http.Request) (*domain.Report, bool) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return nil, false
	}
	rep, err := s.svc.Reports.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get report")
		return nil, false
	}
	return rep, true
}

func (s *Server) handleEditReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reportFromPath(w, r)
	if !ok {
		return
	}
	s.renderReport(w, http.StatusOK, rep, reportForm(rep), domain.ValidationErrors{}, nil)
}

func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reportFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Reports.Update(r.Context(), rep.ID, reportInput(r)); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderReport(w, http.StatusBadRequest, rep, formValues(r), v, nil)
			return
		}
		s.fail(w, err, "update report")
		return
	}
	redirect(w, r, "/reports/"+strconv.FormatInt(rep.ID, 10))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	if err := s.svc.Reports.Delete(r.Context(), id); err != nil {
		s.fail(w, err, "delete report")
		return
	}
	s.syncSchedules(r.Context())
	w.Header().Set("HX-Redirect", "/reports")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDuplicateReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	dup, err := s.svc.Reports.Duplicate(r.Context(), id)
	if err != nil {
		s.fail(w, err, "duplicate report")
		return
	}
	redirect(w, r, "/reports/"+strconv.FormatInt(dup.ID, 10))
}

func (s *Server) handleSaveSchedule(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reportFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	in := service.ScheduleInput{
		Enabled:    formBool(r, "enabled"),
		Frequency:  domain.ScheduleFrequency(formText(r, "frequency")),
		Recipients: service.ParseRecipients(r.FormValue("recipients")),
	}
	if _, err := s.svc.Reports.SaveSchedule(r.Context(), rep.ID, in); err != nil {
		if v, ok := validationOf(err); ok {
			form := reportForm(rep)
			for k, val := range formValues(r) {
				form[k] = val
			}
			form["enabled"] = boolField(in.Enabled)
			s.renderReport(w, http.StatusBadRequest, rep, form, v, nil)
			return
		}
		s.fail(w, err, "save schedule")
		return
	}
	s.syncSchedules(r.Context())
	redirect(w, r, "/reports/"+strconv.FormatInt(rep.ID, 10))
}

// syncSchedules rebuilds the scheduler's report entries. A failure only
// delays the change until the next periodic sync.
func (s *Server) syncSchedules(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Sync(ctx); err != nil {
		s.logger.Error("schedule sync failed", "error", err)
	}
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	res, err := s.svc.Reports.Generate(r.Context(), id, generatedBy)
	if err != nil {
		s.fail(w, err, "generate report")
		return
	}
	if isHTMX(r) {
		s.partial(w, "partials/report_result.html", res)
		return
	}
	rep, err := s.svc.Reports.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get report")
		return
	}
	s.renderReport(w, http.StatusOK, rep, reportForm(rep), domain.ValidationErrors{}, res)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	format := domain.ReportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = domain.FormatJSON
	}
	s.download(w, r, export.ContentType(format), "export report", func(ctx context.Context, w io.Writer) (string, error) {
		return s.svc.Reports.Export(ctx, id, format, w)
	})
}
