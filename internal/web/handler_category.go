package web

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

func categoryFilterFrom(r *http.Request) service.CategoryFilter {
	q := r.URL.Query()
	return service.CategoryFilter{Status: service.StatusFilter(q.Get("status")), Search: q.Get("q")}
}

func (s *Server) renderCategories(w http.ResponseWriter, r *http.Request, status int, editing *domain.Category, form map[string]string, errs domain.ValidationErrors) {
	ctx := r.Context()
	f := categoryFilterFrom(r)
	cats, err := s.svc.Categories.List(ctx, f)
	if err != nil {
		s.fail(w, err, "list categories")
		return
	}
	if isHTMX(r) && status == http.StatusOK && editing == nil {
		s.partial(w, "partials/category_rows.html", cats)
		return
	}
	stats, err := s.svc.Categories.Stats(ctx)
	if err != nil {
		s.fail(w, err, "category stats")
		return
	}
	all, err := s.svc.Categories.All(ctx)
	if err != nil {
		s.fail(w, err, "list categories")
		return
	}
	data := viewData("categories")
	data["Categories"] = cats
	data["Parents"] = all
	data["Stats"] = stats
	data["Filter"] = f
	data["Editing"] = editing
	data["Form"] = form
	data["Errors"] = errs
	s.page(w, status, data, "pages/categories.html", "partials/category_rows.html")
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{"color": "#1976d2", "isActive": "on"}
	s.renderCategories(w, r, http.StatusOK, nil, form, domain.ValidationErrors{})
}

func categoryInput(r *http.Request) service.CategoryInput {
	return service.CategoryInput{
		Name:        formText(r, "name"),
		Description: formText(r, "description"),
		Color:       formText(r, "color"),
		Icon:        formText(r, "icon"),
		IsActive:    formBool(r, "isActive"),
		Parent:      formText(r, "parent"),
	}
}

func categoryForm(c *domain.Category) map[string]string {
	return map[string]string{
		"name":        c.Name,
		"description": c.Description,
		"color":       c.Color,
		"icon":        c.Icon,
		"isActive":    boolField(c.IsActive),
		"parent":      c.Parent,
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Categories.Create(r.Context(), categoryInput(r)); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderCategories(w, r, http.StatusBadRequest, nil, formValues(r), v)
			return
		}
		s.fail(w, err, "create category")
		return
	}
	redirect(w, r, "/categories")
}

func (s *Server) handleEditCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get category")
		return
	}
	s.renderCategories(w, r, http.StatusOK, c, categoryForm(c), domain.ValidationErrors{})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Categories.Update(r.Context(), id, categoryInput(r)); err != nil {
		if v, ok := validationOf(err); ok {
			c, gerr := s.svc.Categories.Get(r.Context(), id)
			if gerr != nil {
				s.fail(w, gerr, "get category")
				return
			}
			s.renderCategories(w, r, http.StatusBadRequest, c, formValues(r), v)
			return
		}
		s.fail(w, err, "update category")
		return
	}
	redirect(w, r, "/categories")
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), id); err != nil {
		s.fail(w, err, "delete category")
		return
	}
	w.Header().Set("HX-Redirect", "/categories")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Categories.ToggleActive(r.Context(), id); err != nil {
		s.fail(w, err, "toggle category")
		return
	}
	redirect(w, r, "/categories")
}

func (s *Server) handleExportCategories(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "application/json", "export categories", s.svc.Categories.Export)
}

// download buffers an export so a failure can still produce an error status,
// then serves it as an attachment under the name the exporter returns.
func (s *Server) download(w http.ResponseWriter, r *http.Request, contentType, action string, export func(context.Context, io.Writer) (string, error)) {
	var buf bytes.Buffer
	name, err := export(r.Context(), &buf)
	if err != nil {
		s.fail(w, err, action)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write download failed", "file", name, "error", err)
	}
}
