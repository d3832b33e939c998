package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

// reportWindow is the range a generated report summarises.
const reportWindow = 90 * 24 * time.Hour

const dateLayout = "2006-01-02"

// checkoutHistory is the read side of store.CheckoutStore used by reports.
type checkoutHistory interface {
	ListAll(ctx context.Context) ([]*domain.Checkout, error)
	ListReturns(ctx context.Context, limit int) ([]*domain.ReturnRecord, error)
}

// reportSources are the read sides a report is generated from.
type reportSources struct {
	tools      toolLister
	types      toolTypeLister
	checkouts  checkoutHistory
	activities activityRepository
}

// reportData is one consistent read of everything reports draw on.
type reportData struct {
	tools      []*domain.Tool
	types      []*domain.ToolType
	checkouts  []*domain.Checkout
	returns    []*domain.ReturnRecord
	activities []*domain.Activity
}

// auditLimit caps how many activity entries an audit report lists.
const auditLimit = 500

func (src reportSources) load(ctx context.Context) (*reportData, error) {
	var d reportData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.tools, err = src.tools.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.types, err = src.types.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.checkouts, err = src.checkouts.ListAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.returns, err = src.checkouts.ListReturns(ctx, 0)
		return err
	})
	g.Go(func() (err error) {
		d.activities, err = src.activities.ListRecent(ctx, auditLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load report data: %w", err)
	}
	return &d, nil
}

// build fills columns, rows, filters and key metrics of res for report type t.
func (d *reportData) build(t domain.ReportType, res *domain.ReportResult) {
	switch t {
	case domain.ReportInventory:
		d.inventory(res)
	case domain.ReportCheckout:
		d.checkout(res)
	case domain.ReportUsage:
		d.usage(res)
	case domain.ReportMaintenance:
		d.maintenance(res)
	case domain.ReportCompliance:
		d.compliance(res)
	case domain.ReportAnalytics:
		d.analytics(res)
	case domain.ReportFinancial:
		d.financial(res, res.GeneratedAt)
	case domain.ReportAudit:
		d.audit(res)
	}
	res.RecordCount = len(res.Rows)
	res.Summary.TotalRecords = len(res.Rows)
}

func metric(label string, v any) domain.Metric {
	return domain.Metric{Label: label, Value: fmt.Sprint(v)}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func (d *reportData) inventory(res *domain.ReportResult) {
	res.Columns = []string{"Code", "Name", "Type", "Location", "Status", "Standard"}
	st := DashboardStatsOf(d.tools)
	for _, t := range d.tools {
		res.Rows = append(res.Rows, []string{t.Code, t.Name, t.Type, t.Location, t.Status.Label(), yesNo(t.IsStandard)})
	}
	res.Summary.Filters = []string{"All Tools", "All Locations"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Total Items", st.TotalTools),
		metric("Available", st.AvailableTools),
		metric("Checked Out", st.InUseTools),
		metric("Maintenance", st.MaintenanceTools),
	}
}

func (d *reportData) checkout(res *domain.ReportResult) {
	res.Columns = []string{"Tool", "Tool Name", "Employee", "Employee ID", "Checked Out", "Expected Return", "Returned", "Status"}
	open, overdue, returned := 0, 0, 0
	for _, c := range d.checkouts {
		res.Rows = append(res.Rows, []string{
			c.ToolCode, c.ToolName, c.EmployeeName, c.EmployeeID,
			c.CheckedOutAt.Format(dateLayout), c.ExpectedReturn.Format(dateLayout), formatDate(c.ReturnedAt), string(c.Status),
		})
		switch {
		case c.ReturnedAt != nil:
			returned++
		case c.Status == domain.CheckoutOverdue:
			overdue++
			open++
		default:
			open++
		}
	}
	res.Summary.Filters = []string{"All Checkouts"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Total Checkouts", len(d.checkouts)),
		metric("Open", open),
		metric("Overdue", overdue),
		metric("Returned", returned),
	}
}

func (d *reportData) usage(res *domain.ReportResult) {
	res.Columns = []string{"Code", "Name", "Type", "Times Checked Out", "Last Checked Out"}
	counts := make(map[int64]int)
	for _, c := range d.checkouts {
		counts[c.ToolID]++
	}
	used, mostUsed, best := 0, "", 0
	for _, t := range d.tools {
		n := counts[t.ID]
		if n > 0 {
			used++
		}
		if n > best {
			best, mostUsed = n, t.Name
		}
		res.Rows = append(res.Rows, []string{t.Code, t.Name, t.Type, strconv.Itoa(n), formatDate(t.LastCheckedOut)})
	}
	sort.SliceStable(res.Rows, func(i, j int) bool {
		a, _ := strconv.Atoi(res.Rows[i][3])
		b, _ := strconv.Atoi(res.Rows[j][3])
		return a > b
	})
	res.Summary.Filters = []string{"All Tools"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Tools Used", used),
		metric("Total Checkouts", len(d.checkouts)),
		metric("Most Used", mostUsed),
	}
}

func (d *reportData) maintenance(res *domain.ReportResult) {
	res.Columns = []string{"Code", "Name", "Status", "Last Maintenance", "Condition", "Notes"}
	inMaintenance := 0
	for _, t := range d.tools {
		if t.Status != domain.ToolMaintenance {
			continue
		}
		inMaintenance++
		res.Rows = append(res.Rows, []string{t.Code, t.Name, t.Status.Label(), formatDate(t.LastMaintenance), t.Condition, t.Notes})
	}
	flagged, damaged := 0, 0
	for _, r := range d.returns {
		if r.MaintenanceRequired {
			flagged++
		}
		if r.ReturnCondition == "damaged" {
			damaged++
		}
	}
	res.Summary.Filters = []string{"Maintenance"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("In Maintenance", inMaintenance),
		metric("Flagged On Return", flagged),
		metric("Returned Damaged", damaged),
	}
}

// compliance lists every tool of a known type with the required properties it is missing.
func (d *reportData) compliance(res *domain.ReportResult) {
	res.Columns = []string{"Code", "Name", "Type", "Missing Properties", "Compliant"}
	byName := make(map[string]*domain.ToolType, len(d.types))
	for _, tt := range d.types {
		byName[tt.Name] = tt
	}
	compliant, checked := 0, 0
	for _, t := range d.tools {
		tt, ok := byName[t.Type]
		if !ok {
			continue
		}
		checked++
		var missing []string
		for _, p := range tt.Properties {
			if p.Required && strings.TrimSpace(t.Properties[p.Name]) == "" {
				missing = append(missing, p.Label)
			}
		}
		if len(missing) == 0 {
			compliant++
		}
		res.Rows = append(res.Rows, []string{t.Code, t.Name, t.Type, strings.Join(missing, ", "), yesNo(len(missing) == 0)})
	}
	rate := 0
	if checked > 0 {
		rate = int(math.Round(float64(compliant) / float64(checked) * 100))
	}
	res.Summary.Filters = []string{"Typed Tools"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Compliant", compliant),
		metric("Non-compliant", checked-compliant),
		metric("Compliance Rate", fmt.Sprintf("%d%%", rate)),
	}
}

// analytics breaks the inventory down by category, derived through tool types.
func (d *reportData) analytics(res *domain.ReportResult) {
	res.Columns = []string{"Category", "Tool Types", "Tools", "Available", "In Use"}
	type row struct{ types, tools, available, inUse int }
	rows := make(map[string]*row)
	category := make(map[string]string, len(d.types))
	get := func(name string) *row {
		r, ok := rows[name]
		if !ok {
			r = &row{}
			rows[name] = r
		}
		return r
	}
	for _, tt := range d.types {
		category[tt.Name] = tt.Category
		get(tt.Category).types++
	}
	for _, t := range d.tools {
		name, ok := category[t.Type]
		if !ok {
			name = "Uncategorized"
		}
		r := get(name)
		r.tools++
		switch t.Status {
		case domain.ToolAvailable:
			r.available++
		case domain.ToolInUse:
			r.inUse++
		}
	}
	names := make([]string, 0, len(rows))
	for n := range rows {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		r := rows[n]
		res.Rows = append(res.Rows, []string{n, strconv.Itoa(r.types), strconv.Itoa(r.tools), strconv.Itoa(r.available), strconv.Itoa(r.inUse)})
	}
	res.Summary.Filters = []string{"All Categories"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Categories", len(rows)),
		metric("Tool Types", len(d.types)),
		metric("Tools", len(d.tools)),
	}
}

// financial reports asset age, the only cost driver the inventory records.
func (d *reportData) financial(res *domain.ReportResult, at time.Time) {
	res.Columns = []string{"Code", "Name", "Manufacturer", "Model", "Purchase Date", "Age (days)"}
	dated, totalAge, oldest, oldestAge := 0, 0, "", -1
	for _, t := range d.tools {
		age := ""
		if t.PurchaseDate != nil {
			days := int(at.Sub(*t.PurchaseDate).Hours() / 24)
			age = strconv.Itoa(days)
			dated++
			totalAge += days
			if days > oldestAge {
				oldestAge, oldest = days, t.Name
			}
		}
		res.Rows = append(res.Rows, []string{t.Code, t.Name, t.Manufacturer, t.Model, formatDate(t.PurchaseDate), age})
	}
	avg := 0
	if dated > 0 {
		avg = totalAge / dated
	}
	res.Summary.Filters = []string{"All Tools"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Tools With Purchase Date", dated),
		metric("Average Age (days)", avg),
		metric("Oldest Tool", oldest),
	}
}

func (d *reportData) audit(res *domain.ReportResult) {
	res.Columns = []string{"Time", "Type", "Action", "Subject", "User", "Details"}
	users := make(map[string]struct{})
	for _, a := range d.activities {
		users[a.Actor] = struct{}{}
		res.Rows = append(res.Rows, []string{
			a.CreatedAt.Format(time.RFC3339), string(a.Kind), a.Action, a.Subject, a.Actor, a.Details,
		})
	}
	res.Summary.Filters = []string{"All Activity"}
	res.Summary.KeyMetrics = []domain.Metric{
		metric("Entries", len(d.activities)),
		metric("Users", len(users)),
	}
}
