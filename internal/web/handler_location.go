package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

func locationFilterFrom(r *http.Request) service.LocationFilter {
	q := r.URL.Query()
	return service.LocationFilter{
		Type:   q.Get("type"),
		Status: service.StatusFilter(q.Get("status")),
		Search: q.Get("q"),
	}
}

func (s *Server) renderLocations(w http.ResponseWriter, r *http.Request, status int, editing *domain.Location, form map[string]string, errs domain.ValidationErrors) {
	ctx := r.Context()
	f := locationFilterFrom(r)
	locs, err := s.svc.Locations.List(ctx, f)
	if err != nil {
		s.fail(w, err, "list locations")
		return
	}
	if isHTMX(r) && status == http.StatusOK && editing == nil {
		s.partial(w, "partials/location_rows.html", locs)
		return
	}
	stats, err := s.svc.Locations.Stats(ctx)
	if err != nil {
		s.fail(w, err, "location stats")
		return
	}
	data := viewData("locations")
	data["Locations"] = locs
	data["Stats"] = stats
	data["Filter"] = f
	data["Types"] = domain.LocationTypes
	data["Editing"] = editing
	data["Form"] = form
	data["Errors"] = errs
	s.page(w, status, data, "pages/locations.html", "partials/location_rows.html")
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{"type": string(domain.LocationRoom), "accessLevel": string(domain.AccessPublic), "isActive": "on"}
	s.renderLocations(w, r, http.StatusOK, nil, form, domain.ValidationErrors{})
}

// locationInput reads the location form. Coordinates are optional but must
// come as a parseable pair when given.
func locationInput(r *http.Request) (service.LocationInput, domain.ValidationErrors) {
	errs := domain.ValidationErrors{}
	in := service.LocationInput{
		Name:              formText(r, "name"),
		Description:       formText(r, "description"),
		Type:              domain.LocationType(formText(r, "type")),
		Address:           formText(r, "address"),
		Capacity:          formInt(r, "capacity"),
		IsActive:          formBool(r, "isActive"),
		Parent:            formText(r, "parent"),
		ResponsiblePerson: formText(r, "responsiblePerson"),
		ContactInfo:       formText(r, "contactInfo"),
		AccessLevel:       domain.AccessLevel(formText(r, "accessLevel")),
		Features:          formList(r, "features"),
	}
	lat, lng := formText(r, "lat"), formText(r, "lng")
	if lat != "" || lng != "" {
		la, err1 := strconv.ParseFloat(lat, 64)
		lo, err2 := strconv.ParseFloat(lng, 64)
		if err1 != nil || err2 != nil {
			errs.Add("coordinates", "Coordinates must be a latitude and longitude")
		} else {
			in.Coordinates = &domain.Coordinates{Lat: la, Lng: lo}
		}
	}
	return in, errs
}

func locationForm(l *domain.Location) map[string]string {
	form := map[string]string{
		"name":              l.Name,
		"description":       l.Description,
		"type":              string(l.Type),
		"address":           l.Address,
		"capacity":          strconv.Itoa(l.Capacity),
		"isActive":          boolField(l.IsActive),
		"parent":            l.Parent,
		"responsiblePerson": l.ResponsiblePerson,
		"contactInfo":       l.ContactInfo,
		"accessLevel":       string(l.AccessLevel),
	}
	if l.Coordinates != nil {
		form["lat"] = strconv.FormatFloat(l.Coordinates.Lat, 'f', -1, 64)
		form["lng"] = strconv.FormatFloat(l.Coordinates.Lng, 'f', -1, 64)
	}
	for i, f := range l.Features {
		if i > 0 {
			form["features"] += ", "
		}
		form["features"] += f
	}
	return form
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	in, errs := locationInput(r)
	if len(errs) > 0 {
		s.renderLocations(w, r, http.StatusBadRequest, nil, formValues(r), errs)
		return
	}
	if _, err := s.svc.Locations.Create(r.Context(), in); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderLocations(w, r, http.StatusBadRequest, nil, formValues(r), v)
			return
		}
		s.fail(w, err, "create location")
		return
	}
	redirect(w, r, "/locations")
}

func (s *Server) handleEditLocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}
	loc, err := s.svc.Locations.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get location")
		return
	}
	s.renderLocations(w, r, http.StatusOK, loc, locationForm(loc), domain.ValidationErrors{})
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	loc, err := s.svc.Locations.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get location")
		return
	}
	in, errs := locationInput(r)
	if len(errs) > 0 {
		s.renderLocations(w, r, http.StatusBadRequest, loc, formValues(r), errs)
		return
	}
	if _, err := s.svc.Locations.Update(r.Context(), id, in); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderLocations(w, r, http.StatusBadRequest, loc, formValues(r), v)
			return
		}
		s.fail(w, err, "update location")
		return
	}
	redirect(w, r, "/locations")
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}
	if err := s.svc.Locations.Delete(r.Context(), id); err != nil {
		s.fail(w, err, "delete location")
		return
	}
	w.Header().Set("HX-Redirect", "/locations")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleToggleLocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Locations.ToggleActive(r.Context(), id); err != nil {
		s.fail(w, err, "toggle location")
		return
	}
	redirect(w, r, "/locations")
}

func (s *Server) handleExportLocations(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, "application/json", "export locations", s.svc.Locations.Export)
}
