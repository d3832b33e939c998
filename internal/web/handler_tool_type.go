package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

func (s *Server) renderToolTypes(w http.ResponseWriter, r *http.Request, status int, form map[string]string, errs domain.ValidationErrors) {
	types, err := s.svc.ToolTypes.List(r.Context())
	if err != nil {
		s.fail(w, err, "list tool types")
		return
	}
	data := viewData("tool-types")
	data["Types"] = types
	data["Form"] = form
	data["Errors"] = errs
	s.page(w, status, data, "pages/tool_types.html")
}

func (s *Server) handleListToolTypes(w http.ResponseWriter, r *http.Request) {
	s.renderToolTypes(w, r, http.StatusOK, map[string]string{}, domain.ValidationErrors{})
}

func toolTypeInput(r *http.Request) service.ToolTypeInput {
	return service.ToolTypeInput{
		Name:        formText(r, "name"),
		Category:    formText(r, "category"),
		Description: formText(r, "description"),
		IsActive:    formBool(r, "isActive"),
	}
}

func (s *Server) handleCreateToolType(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	tt, err := s.svc.ToolTypes.Create(r.Context(), toolTypeInput(r))
	if err != nil {
		if v, ok := validationOf(err); ok {
			s.renderToolTypes(w, r, http.StatusBadRequest, formValues(r), v)
			return
		}
		s.fail(w, err, "create tool type")
		return
	}
	redirect(w, r, "/tool-types/"+strconv.FormatInt(tt.ID, 10))
}

func (s *Server) renderToolTypeForm(w http.ResponseWriter, status int, tt *domain.ToolType, form map[string]string, errs domain.ValidationErrors) {
	data := viewData("tool-types")
	data["Type"] = tt
	data["Form"] = form
	data["Errors"] = errs
	data["Kinds"] = domain.PropertyKinds
	s.page(w, status, data, "pages/tool_type_form.html", "partials/property_list.html")
}

func toolTypeForm(tt *domain.ToolType) map[string]string {
	return map[string]string{
		"name":        tt.Name,
		"category":    tt.Category,
		"description": tt.Description,
		"isActive":    boolField(tt.IsActive),
	}
}

func (s *Server) handleEditToolType(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool type id", http.StatusBadRequest)
		return
	}
	tt, err := s.svc.ToolTypes.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get tool type")
		return
	}
	s.renderToolTypeForm(w, http.StatusOK, tt, toolTypeForm(tt), domain.ValidationErrors{})
}

func (s *Server) handleUpdateToolType(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool type id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	tt, err := s.svc.ToolTypes.Update(r.Context(), id, toolTypeInput(r))
	if err != nil {
		if v, ok := validationOf(err); ok {
			current, gerr := s.svc.ToolTypes.Get(r.Context(), id)
			if gerr != nil {
				s.fail(w, gerr, "get tool type")
				return
			}
			s.renderToolTypeForm(w, http.StatusBadRequest, current, formValues(r), v)
			return
		}
		s.fail(w, err, "update tool type")
		return
	}
	redirect(w, r, "/tool-types/"+strconv.FormatInt(tt.ID, 10))
}

func (s *Server) handleDeleteToolType(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool type id", http.StatusBadRequest)
		return
	}
	if err := s.svc.ToolTypes.Delete(r.Context(), id); err != nil {
		s.fail(w, err, "delete tool type")
		return
	}
	w.Header().Set("HX-Redirect", "/tool-types")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleToggleToolType(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool type id", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.ToolTypes.ToggleActive(r.Context(), id); err != nil {
		s.fail(w, err, "toggle tool type")
		return
	}
	redirect(w, r, "/tool-types")
}

func (s *Server) handleAddProperty(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool type id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	in := service.PropertyInput{
		Name:         formText(r, "propName"),
		Label:        formText(r, "propLabel"),
		Kind:         domain.PropertyKind(formText(r, "propKind")),
		Required:     formBool(r, "propRequired"),
		Options:      r.FormValue("propOptions"),
		Unit:         formText(r, "propUnit"),
		DefaultValue: formText(r, "propDefault"),
	}
	tt, err := s.svc.ToolTypes.AddProperty(r.Context(), id, in)
	if err != nil {
		v, ok := validationOf(err)
		if !ok {
			s.fail(w, err, "add property")
			return
		}
		current, gerr := s.svc.ToolTypes.Get(r.Context(), id)
		if gerr != nil {
			s.fail(w, gerr, "get tool type")
			return
		}
		if isHTMX(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			s.partial(w, "partials/property_list.html", map[string]any{"Type": current, "Errors": v, "Form": formValues(r), "Kinds": domain.PropertyKinds})
			return
		}
		s.renderToolTypeForm(w, http.StatusBadRequest, current, toolTypeForm(current), v)
		return
	}
	if isHTMX(r) {
		s.partial(w, "partials/property_list.html", map[string]any{"Type": tt, "Errors": domain.ValidationErrors{}, "Form": map[string]string{}, "Kinds": domain.PropertyKinds})
		return
	}
	redirect(w, r, "/tool-types/"+strconv.FormatInt(tt.ID, 10))
}

func (s *Server) handleRemoveProperty(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid tool type id", http.StatusBadRequest)
		return
	}
	pid, err := strconv.ParseInt(r.PathValue("pid"), 10, 64)
	if err != nil {
		http.Error(w, "invalid property id", http.StatusBadRequest)
		return
	}
	tt, err := s.svc.ToolTypes.RemoveProperty(r.Context(), id, pid)
	if err != nil {
		s.fail(w, err, "remove property")
		return
	}
	s.partial(w, "partials/property_list.html", map[string]any{"Type": tt, "Errors": domain.ValidationErrors{}, "Form": map[string]string{}, "Kinds": domain.PropertyKinds})
}
