package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

const recentReturnsLimit = 10

func (s *Server) renderCheckout(w http.ResponseWriter, r *http.Request, status int, form map[string]string, errs domain.ValidationErrors) {
	ctx := r.Context()
	tools, err := s.svc.Circulation.Available(ctx, r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, err, "list available tools")
		return
	}
	counts, err := s.svc.Circulation.Counts(ctx)
	if err != nil {
		s.fail(w, err, "count checkouts")
		return
	}
	data := viewData("checkout")
	data["Tools"] = tools
	data["Counts"] = counts
	data["Query"] = r.URL.Query().Get("q")
	data["Selected"] = form["toolId"]
	data["Form"] = form
	data["Errors"] = errs
	s.page(w, status, data, "pages/checkout.html", "partials/available_tools.html")
}

func (s *Server) handleCheckoutPage(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		tools, err := s.svc.Circulation.Available(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			s.fail(w, err, "list available tools")
			return
		}
		s.partial(w, "partials/available_tools.html", map[string]any{"Tools": tools, "Selected": ""})
		return
	}
	form := map[string]string{"toolId": r.URL.Query().Get("tool")}
	s.renderCheckout(w, r, http.StatusOK, form, domain.ValidationErrors{})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	toolID, err := strconv.ParseInt(formText(r, "toolId"), 10, 64)
	if err != nil {
		s.renderCheckout(w, r, http.StatusBadRequest, formValues(r), domain.ValidationErrors{"toolId": "Select a tool to check out"})
		return
	}
	in := service.CheckoutInput{
		ToolID:         toolID,
		EmployeeName:   formText(r, "employeeName"),
		EmployeeID:     formText(r, "employeeId"),
		ExpectedReturn: formText(r, "expectedReturn"),
		Notes:          formText(r, "notes"),
	}
	c, err := s.svc.Circulation.Checkout(r.Context(), in)
	if err != nil {
		if v, ok := validationOf(err); ok {
			s.renderCheckout(w, r, http.StatusBadRequest, formValues(r), v)
			return
		}
		s.fail(w, err, "check out tool")
		return
	}
	s.logger.Info("tool checked out via web", "tool", c.ToolCode, "employee_id", c.EmployeeID)
	redirect(w, r, "/checkout")
}

func checkinFilterFrom(r *http.Request) service.CheckinFilter {
	q := r.URL.Query()
	return service.CheckinFilter{Status: q.Get("status"), Search: q.Get("q")}
}

// renderCheckin lists the open checkouts. Open refreshes overdue flags first,
// so the page always shows current status.
func (s *Server) renderCheckin(w http.ResponseWriter, r *http.Request, status int, scanned *domain.Checkout, errs domain.ValidationErrors) {
	ctx := r.Context()
	f := checkinFilterFrom(r)
	open, err := s.svc.Circulation.Open(ctx, f)
	if err != nil {
		s.fail(w, err, "list checkouts")
		return
	}
	if isHTMX(r) && status == http.StatusOK && scanned == nil {
		s.partial(w, "partials/checkin_rows.html", open)
		return
	}
	returns, err := s.svc.Circulation.RecentReturns(ctx, recentReturnsLimit)
	if err != nil {
		s.fail(w, err, "list returns")
		return
	}
	counts, err := s.svc.Circulation.Counts(ctx)
	if err != nil {
		s.fail(w, err, "count checkouts")
		return
	}
	data := viewData("checkin")
	data["Checkouts"] = open
	data["Returns"] = returns
	data["Counts"] = counts
	data["Filter"] = f
	data["Scanned"] = scanned
	data["Conditions"] = service.ReturnConditions
	data["Errors"] = errs
	s.page(w, status, data, "pages/checkin.html", "partials/checkin_rows.html")
}

func (s *Server) handleCheckinPage(w http.ResponseWriter, r *http.Request) {
	s.renderCheckin(w, r, http.StatusOK, nil, domain.ValidationErrors{})
}

func (s *Server) handleRefreshOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Circulation.RefreshOverdue(r.Context())
	if err != nil {
		s.fail(w, err, "refresh overdue")
		return
	}
	s.logger.Info("overdue refreshed", "marked", n)
	redirect(w, r, "/checkin")
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid checkout id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	in := service.ReturnInput{
		Condition:           formText(r, "condition"),
		DamageNotes:         formText(r, "damageNotes"),
		MaintenanceRequired: formBool(r, "maintenanceRequired"),
		ReturnedBy:          formText(r, "returnedBy"),
		InspectedBy:         formText(r, "inspectedBy"),
	}
	if _, err := s.svc.Circulation.Return(r.Context(), id, in); err != nil {
		if v, ok := validationOf(err); ok {
			s.renderCheckin(w, r, http.StatusBadRequest, nil, v)
			return
		}
		s.fail(w, err, "return tool")
		return
	}
	redirect(w, r, "/checkin")
}

func (s *Server) handleBulkReturn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	in := service.BulkReturnInput{
		CheckoutIDs: formIDs(r, "checkoutIds"),
		ReturnedBy:  formText(r, "returnedBy"),
		InspectedBy: formText(r, "inspectedBy"),
	}
	records, err := s.svc.Circulation.BulkReturn(r.Context(), in)
	if err != nil {
		if v, ok := validationOf(err); ok {
			s.renderCheckin(w, r, http.StatusBadRequest, nil, v)
			return
		}
		if len(records) > 0 {
			s.logger.Warn("bulk return partly applied", "returned", len(records), "selected", len(in.CheckoutIDs))
		}
		s.fail(w, err, "bulk return")
		return
	}
	s.logger.Info("bulk return via web", "count", len(records))
	redirect(w, r, "/checkin")
}

// handleScan looks a tool code up among the open checkouts and shows the
// return form for it.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	code := formText(r, "code")
	if code == "" {
		s.renderCheckin(w, r, http.StatusBadRequest, nil, domain.ValidationErrors{"code": "Enter a tool code"})
		return
	}
	c, err := s.svc.Circulation.FindOpenByToolCode(r.Context(), code)
	if err != nil {
		s.fail(w, err, "scan tool")
		return
	}
	s.renderCheckin(w, r, http.StatusOK, c, domain.ValidationErrors{})
}
