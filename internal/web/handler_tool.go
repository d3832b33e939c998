package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

// viewData starts the template data shared by every page.
func viewData(nav string) map[string]any {
	return map[string]any{
		"ActiveNav": nav,
		"Errors":    domain.ValidationErrors{},
		"Form":      map[string]string{},
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dash, err := s.svc.Tools.Dashboard(ctx)
	if err != nil {
		s.fail(w, err, "load dashboard")
		return
	}
	counts, err := s.svc.Circulation.Counts(ctx)
	if err != nil {
		s.fail(w, err, "load dashboard")
		return
	}
	data := viewData("dashboard")
	data["Dashboard"] = dash
	data["Circulation"] = counts
	s.page(w, http.StatusOK, data, "pages/dashboard.html")
}

// validationOf extracts field errors so a form can be re-rendered with them.
func validationOf(err error) (domain.ValidationErrors, bool) {
	var v domain.ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

func toolFilterFrom(r *http.Request) service.ToolFilter {
	q := r.URL.Query()
	f := service.ToolFilter{
		Search:   q.Get("q"),
		Status:   domain.ToolStatus(q.Get("status")),
		Type:     q.Get("type"),
		Standard: q.Get("standard"),
	}
	if f.Type == "all" {
		f.Type = ""
	}
	if f.Status == "all" {
		f.Status = ""
	}
	return f
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	f := toolFilterFrom(r)
	tools, err := s.svc.Tools.List(r.Context(), f)
	if err != nil {
		s.fail(w, err, "list tools")
		return
	}

	if isHTMX(r) {
		s.partial(w, "partials/tool_rows.html", tools)
		return
	}

	types, err := s.svc.ToolTypes.List(r.Context())
	if err != nil {
		s.fail(w, err, "list tools")
		return
	}
	data := viewData("tools")
	data["Tools"] = tools
	data["Types"] = types
	data["Filter"] = f
	data["Statuses"] = domain.ToolStatuses
	s.page(w, http.StatusOK, data, "pages/tools.html", "partials/tool_rows.html")
}

// renderToolForm shows the create/edit form; tool is nil when creating.
func (s *Server) renderToolForm(w http.ResponseWriter, r *http.Request, status int, tool *domain.Tool, form map[string]string, props map[string]string, errs domain.ValidationErrors) {
	ctx := r.Context()
	types, err := s.svc.ToolTypes.Active(ctx)
	if err != nil {
		s.fail(w, err, "load tool form")
		return
	}
	locations, err := s.svc.Locations.All(ctx)
	if err != nil {
		s.fail(w, err, "load tool form")
		return
	}
	propType, err := s.svc.ToolTypes.ByName(ctx, form["type"])
	if err != nil {
		s.fail(w, err, "load tool form")
		return
	}

	data := viewData("tools")
	data["Tool"] = tool
	data["Form"] = form
	data["Errors"] = errs
	data["Types"] = types
	data["Locations"] = locations
	data["Statuses"] = domain.ToolStatuses
	data["PropType"] = propType
	data["PropValues"] = props
	s.page(w, status, data, "pages/tool_form.html", "partials/tool_properties.html")
}

func (s *Server) handleNewTool(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{"type": r.URL.Query().Get("type"), "status": string(domain.ToolAvailable)}
	var props map[string]string
	if tt, err := s.svc.ToolTypes.ByName(r.Context(), form["type"]); err == nil {
		props = service.DefaultProperties(tt)
	}
	s.renderToolForm(w, r, http.StatusOK, nil, form, props, domain.ValidationErrors{})
}

// toolInput reads the tool form. Date fields that fail to parse are reported
// in the returned errors instead of reaching the service.
func toolInput(r *http.Request) (service.ToolInput, domain.ValidationErrors) {
	errs := domain.ValidationErrors{}
	in := service.ToolInput{
		Name:            formText(r, "name"),
		Type:            formText(r, "type"),
		Description:     formText(r, "description"),
		Location:        formText(r, "location"),
		Status:          domain.ToolStatus(formText(r, "status")),
		IsStandard:      formBool(r, "isStandard"),
		SerialNumber:    formText(r, "serialNumber"),
		Manufacturer:    formText(r, "manufacturer"),
		Model:           formText(r, "model"),
		PurchaseDate:    formDate(r, "purchaseDate", "Purchase date", errs),
		LastMaintenance: formDate(r, "lastMaintenance", "Last maintenance", errs),
		Notes:           formText(r, "notes"),
		Condition:       formText(r, "condition"),
		Properties:      formProperties(r),
	}
	return in, errs
}

func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	in, errs := toolInput(r)
	if len(errs) > 0 {
		s.renderToolForm(w, r, http.StatusBadRequest, nil, formValues(r), in.Properties, errs)
		return
	}
	tool, err := s.svc.Tools.Create(r.Context(), in)
	if err != nil {
		if v, ok := validationOf(err); ok {
			s.renderToolForm(w, r, http.StatusBadRequest, nil, formValues(r), in.Properties, v)
			return
		}
		s.fail(w, err, "create tool")
		return
	}
	s.logger.Info("tool created via web", "code", tool.Code)
	redirect(w, r, "/tools")
}

func toolForm(t *domain.Tool) map[string]string {
	return map[string]string{
		"name":            t.Name,
		"type":            t.Type,
		"description":     t.Description,
		"location":        t.Location,
		"status":          string(t.Status),
		"isStandard":      boolField(t.IsStandard),
		"serialNumber":    t.SerialNumber,
		"manufacturer":    t.Manufacturer,
		"model":           t.Model,
		"purchaseDate":    formatDate(t.PurchaseDate),
		"lastMaintenance": formatDate(t.LastMaintenance),
		"notes":           t.Notes,
		"condition":       t.Condition,
	}
}

func boolField(b bool) string {
	if b {
		return "on"
	}
	return ""
}

func (s *Server) handleEditTool(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool id", http.StatusBadRequest)
		return
	}
	tool, err := s.svc.Tools.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get tool")
		return
	}
	s.renderToolForm(w, r, http.StatusOK, tool, toolForm(tool), tool.Properties, domain.ValidationErrors{})
}

func (s *Server) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	tool, err := s.svc.Tools.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get tool")
		return
	}

	in, errs := toolInput(r)
	if len(errs) > 0 {
		s.renderToolForm(w, r, http.StatusBadRequest, tool, formValues(r), in.Properties, errs)
		return
	}
	if _, err := s.svc.Tools.Update(r.Context(), id, in); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderToolForm(w, r, http.StatusBadRequest, tool, formValues(r), in.Properties, v)
			return
		}
		s.fail(w, err, "update tool")
		return
	}
	redirect(w, r, "/tools")
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool id", http.StatusBadRequest)
		return
	}
	if err := s.svc.Tools.Delete(r.Context(), id); err != nil {
		s.fail(w, err, "delete tool")
		return
	}
	w.Header().Set("HX-Redirect", "/tools")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleToggleStandard(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool id", http.StatusBadRequest)
		return
	}
	tool, err := s.svc.Tools.ToggleStandard(r.Context(), id)
	if err != nil {
		s.fail(w, err, "toggle standard")
		return
	}
	if isHTMX(r) {
		s.partial(w, "partials/tool_rows.html", []*domain.Tool{tool})
		return
	}
	redirect(w, r, "/tools")
}

// handleToolProperties returns the property inputs for the type chosen in
// the tool form, filled with the type's defaults.
func (s *Server) handleToolProperties(w http.ResponseWriter, r *http.Request) {
	tt, err := s.svc.ToolTypes.ByName(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, err, "load properties")
		return
	}
	var values map[string]string
	if tt != nil {
		values = service.DefaultProperties(tt)
	}
	s.partial(w, "partials/tool_properties.html", map[string]any{
		"PropType":   tt,
		"PropValues": values,
		"Errors":     domain.ValidationErrors{},
	})
}

// standardTypeKeys are the type tabs of the standard tools page.
var standardTypeKeys = []string{"all", "measuringtape", "level", "hammer", "screwdriver", "wrench", "pliers", "drill"}

func (s *Server) handleStandardTools(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("type")
	if key == "" {
		key = "all"
	}
	tools, err := s.svc.Tools.Standard(r.Context(), key)
	if err != nil {
		s.fail(w, err, "list standard tools")
		return
	}
	if isHTMX(r) {
		s.partial(w, "partials/tool_rows.html", tools)
		return
	}
	data := viewData("standard")
	data["Tools"] = tools
	data["TypeKey"] = key
	data["TypeKeys"] = standardTypeKeys
	s.page(w, http.StatusOK, data, "pages/standard_tools.html", "partials/tool_rows.html")
}
