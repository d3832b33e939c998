package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/metrics"
)

var employeeIDPattern = regexp.MustCompile(`^[A-Z]{3}\d{3}$`)

// ReturnConditions are the conditions a tool can be handed back in.
var ReturnConditions = []string{"excellent", "good", "fair", "poor", "damaged"}

// checkoutRepository is the subset of store.CheckoutStore that CirculationService requires.
type checkoutRepository interface {
	Open(ctx context.Context, c *domain.Checkout) (*domain.Checkout, error)
	GetByID(ctx context.Context, id int64) (*domain.Checkout, error)
	ListOpen(ctx context.Context) ([]*domain.Checkout, error)
	SetStatus(ctx context.Context, id int64, status domain.CheckoutStatus) (bool, error)
	Close(ctx context.Context, r *domain.ReturnRecord, status domain.CheckoutStatus) (*domain.ReturnRecord, error)
	ListReturns(ctx context.Context, limit int) ([]*domain.ReturnRecord, error)
}

// toolTypeFinder looks up a tool type by name.
type toolTypeFinder interface {
	GetByName(ctx context.Context, name string) (*domain.ToolType, error)
}

type CheckoutInput struct {
	ToolID       int64
	EmployeeName string
	EmployeeID   string
	// ExpectedReturn is a YYYY-MM-DD date.
	ExpectedReturn string
	Notes          string
}

type ReturnInput struct {
	Condition           string
	DamageNotes         string
	MaintenanceRequired bool
	ReturnedBy          string
	InspectedBy         string
}

type BulkReturnInput struct {
	CheckoutIDs []int64
	ReturnedBy  string
	InspectedBy string
}

// CheckinFilter narrows the open checkouts. Status is "all", "checked-out"
// or "overdue".
type CheckinFilter struct {
	Status string
	Search string
}

type CirculationCounts struct {
	CheckedOut   int
	Overdue      int
	Open         int
	ReturnsToday int
}

// CirculationService checks tools out to employees and takes them back.
type CirculationService struct {
	checkouts  checkoutRepository
	tools      toolRepository
	types      toolTypeFinder
	activities activityRepository
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewCirculationService(
	checkouts checkoutRepository,
	tools toolRepository,
	types toolTypeFinder,
	activities activityRepository,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CirculationService {
	return &CirculationService{
		checkouts:  checkouts,
		tools:      tools,
		types:      types,
		activities: activities,
		metrics:    m,
		logger:     logger,
		now:        now,
	}
}

// Available lists the tools that can be checked out, optionally narrowed by
// a search over code, name, type and location.
func (s *CirculationService) Available(ctx context.Context, search string) ([]*domain.Tool, error) {
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	out := make([]*domain.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Status == domain.ToolAvailable && containsFold(search, t.Code, t.Name, t.Type, t.Location) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ValidateCheckout checks the check-out form. The expected return day may
// not be before the day of at.
func ValidateCheckout(in CheckoutInput, at time.Time) (time.Time, domain.ValidationErrors) {
	errs := domain.ValidationErrors{}
	validateLength(errs, "employeeName", "Employee name", in.EmployeeName, 2, 100)
	id := strings.TrimSpace(in.EmployeeID)
	if id == "" {
		errs.Add("employeeId", "Employee ID is required")
	} else if !employeeIDPattern.MatchString(id) {
		errs.Add("employeeId", "Employee ID must look like ABC123")
	}

	var due time.Time
	raw := strings.TrimSpace(in.ExpectedReturn)
	if raw == "" {
		errs.Add("expectedReturn", "Expected return date is required")
		return due, errs
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		errs.Add("expectedReturn", "Expected return date must be YYYY-MM-DD")
		return due, errs
	}
	today := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		errs.Add("expectedReturn", "Expected return date cannot be in the past")
	}
	// Due at the end of the chosen day.
	due = day.Add(24*time.Hour - time.Second)
	return due, errs
}

// Checkout lends an available tool to an employee. A tool that is not
// available is refused with ErrConflict.
func (s *CirculationService) Checkout(ctx context.Context, in CheckoutInput) (*domain.Checkout, error) {
	at := s.now()
	due, errs := ValidateCheckout(in, at)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	tool, err := s.tools.GetByID(ctx, in.ToolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	if tool == nil {
		return nil, notFound("tool", in.ToolID)
	}
	if tool.Status != domain.ToolAvailable {
		return nil, fmt.Errorf("tool %s is %s: %w", tool.Code, tool.Status, domain.ErrConflict)
	}

	category := ""
	if tt, err := s.types.GetByName(ctx, tool.Type); err != nil {
		return nil, fmt.Errorf("failed to get tool type: %w", err)
	} else if tt != nil {
		category = tt.Category
	}

	s.logger.Info("checkout started", "tool_id", tool.ID, "employee_id", in.EmployeeID)
	// The store re-checks availability while claiming the tool, so a
	// concurrent checkout of the same tool fails with ErrConflict.
	c, err := s.checkouts.Open(ctx, &domain.Checkout{
		ToolID:         tool.ID,
		ToolCode:       tool.Code,
		ToolName:       tool.Name,
		Category:       category,
		Location:       tool.Location,
		Condition:      tool.Condition,
		EmployeeName:   strings.TrimSpace(in.EmployeeName),
		EmployeeID:     strings.TrimSpace(in.EmployeeID),
		CheckedOutAt:   at,
		ExpectedReturn: due,
		Notes:          strings.TrimSpace(in.Notes),
		Status:         domain.CheckoutOpen,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CheckedOut()
	recordActivity(ctx, s.activities, s.logger, &domain.Activity{
		Kind: domain.ActivityCheckout, Action: "Tool checked out", Subject: tool.Name,
		Actor: c.EmployeeName, Details: tool.Code, CreatedAt: at,
	})
	s.logger.Info("checkout complete", "checkout_id", c.ID, "tool_code", tool.Code)
	return c, nil
}

// RefreshOverdue marks open checkouts past their expected return as overdue
// and returns how many changed.
func (s *CirculationService) RefreshOverdue(ctx context.Context) (int, error) {
	open, err := s.checkouts.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	at := s.now()
	changed := 0
	for _, c := range open {
		if c.Status != domain.CheckoutOpen || !c.ExpectedReturn.Before(at) {
			continue
		}
		ok, err := s.checkouts.SetStatus(ctx, c.ID, domain.CheckoutOverdue)
		if err != nil {
			return changed, fmt.Errorf("failed to mark checkout %d overdue: %w", c.ID, err)
		}
		if ok {
			changed++
		}
	}
	if changed > 0 {
		s.logger.Info("overdue checkouts refreshed", "count", changed)
	}
	return changed, nil
}

// Open lists the open checkouts after refreshing their overdue status.
func (s *CirculationService) Open(ctx context.Context, f CheckinFilter) ([]*domain.Checkout, error) {
	if _, err := s.RefreshOverdue(ctx); err != nil {
		return nil, err
	}
	open, err := s.checkouts.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCheckouts(open, f), nil
}

func FilterCheckouts(checkouts []*domain.Checkout, f CheckinFilter) []*domain.Checkout {
	out := make([]*domain.Checkout, 0, len(checkouts))
	for _, c := range checkouts {
		if f.Status != "" && f.Status != "all" && string(c.Status) != f.Status {
			continue
		}
		if !containsFold(f.Search, c.ToolCode, c.ToolName, c.EmployeeName, c.EmployeeID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func ValidateReturn(in ReturnInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	if !slices.Contains(ReturnConditions, strings.ToLower(strings.TrimSpace(in.Condition))) {
		errs.Add("condition", "Return condition is required")
	}
	if strings.TrimSpace(in.ReturnedBy) == "" {
		errs.Add("returnedBy", "Returned by is required")
	}
	return errs
}

// Return closes one open checkout.
func (s *CirculationService) Return(ctx context.Context, checkoutID int64, in ReturnInput) (*domain.ReturnRecord, error) {
	if err := ValidateReturn(in).Err(); err != nil {
		return nil, err
	}
	c, err := s.checkouts.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}
	if c == nil || c.ReturnedAt != nil {
		return nil, notFound("open checkout", checkoutID)
	}
	return s.close(ctx, c, in)
}

// BulkReturn closes every selected checkout in good condition. When a return
// fails part way the records already closed are returned with the error.
func (s *CirculationService) BulkReturn(ctx context.Context, in BulkReturnInput) ([]*domain.ReturnRecord, error) {
	if len(in.CheckoutIDs) == 0 {
		return nil, domain.ErrNothingSelected
	}
	ret := ReturnInput{Condition: "good", ReturnedBy: in.ReturnedBy, InspectedBy: in.InspectedBy}
	if err := ValidateReturn(ret).Err(); err != nil {
		return nil, err
	}

	// Every selection must be open before any is closed, so a stale page
	// fails the whole batch instead of half of it.
	selected := make([]*domain.Checkout, 0, len(in.CheckoutIDs))
	seen := make(map[int64]bool, len(in.CheckoutIDs))
	for _, id := range in.CheckoutIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, err := s.checkouts.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get checkout: %w", err)
		}
		if c == nil || c.ReturnedAt != nil {
			return nil, notFound("open checkout", id)
		}
		selected = append(selected, c)
	}

	records := make([]*domain.ReturnRecord, 0, len(selected))
	for _, c := range selected {
		r, err := s.close(ctx, c, ret)
		if err != nil {
			s.logger.Error("bulk return stopped", "returned", len(records), "selected", len(selected), "error", err)
			return records, err
		}
		records = append(records, r)
	}
	s.logger.Info("bulk return complete", "count", len(records))
	return records, nil
}

// FindOpenByToolCode resolves a scanned tool code, ignoring case, to its open checkout.
func (s *CirculationService) FindOpenByToolCode(ctx context.Context, code string) (*domain.Checkout, error) {
	open, err := s.checkouts.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	for _, c := range open {
		if strings.EqualFold(c.ToolCode, code) {
			return c, nil
		}
	}
	return nil, notFound("checked out tool", code)
}

func (s *CirculationService) close(ctx context.Context, c *domain.Checkout, in ReturnInput) (*domain.ReturnRecord, error) {
	at := s.now()
	condition := strings.ToLower(strings.TrimSpace(in.Condition))
	r, err := s.checkouts.Close(ctx, &domain.ReturnRecord{
		CheckoutID:          c.ID,
		ToolCode:            c.ToolCode,
		ToolName:            c.ToolName,
		EmployeeName:        c.EmployeeName,
		EmployeeID:          c.EmployeeID,
		CheckedOutAt:        c.CheckedOutAt,
		ReturnedAt:          at,
		ReturnCondition:     condition,
		DamageNotes:         strings.TrimSpace(in.DamageNotes),
		MaintenanceRequired: in.MaintenanceRequired,
		ReturnedBy:          strings.TrimSpace(in.ReturnedBy),
		InspectedBy:         strings.TrimSpace(in.InspectedBy),
	}, domain.CheckoutReturned)
	if err != nil {
		return nil, fmt.Errorf("failed to close checkout %d: %w", c.ID, err)
	}

	tool, err := s.tools.GetByID(ctx, c.ToolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	if tool == nil {
		s.logger.Warn("returned tool no longer exists", "checkout_id", c.ID, "tool_code", c.ToolCode)
	} else {
		tool.Status = domain.ToolAvailable
		if in.MaintenanceRequired {
			tool.Status = domain.ToolMaintenance
		}
		tool.CheckedOutBy = ""
		tool.Condition = condition
		tool.UpdatedAt = at
		if err := s.tools.Update(ctx, tool); err != nil {
			return nil, fmt.Errorf("failed to release tool: %w", err)
		}
	}

	s.metrics.Returned(condition)
	recordActivity(ctx, s.activities, s.logger, &domain.Activity{
		Kind: domain.ActivityCheckin, Action: "Tool returned", Subject: c.ToolName,
		Actor: r.ReturnedBy, Details: c.ToolCode, CreatedAt: at,
	})
	if in.MaintenanceRequired {
		recordActivity(ctx, s.activities, s.logger, &domain.Activity{
			Kind: domain.ActivityMaintenance, Action: "Maintenance required", Subject: c.ToolName,
			Actor: r.ReturnedBy, Details: r.DamageNotes, CreatedAt: at,
		})
	}
	s.logger.Info("tool returned", "checkout_id", c.ID, "tool_code", c.ToolCode, "maintenance", in.MaintenanceRequired)
	return r, nil
}

// RecentReturns lists the latest returns, newest first.
func (s *CirculationService) RecentReturns(ctx context.Context, limit int) ([]*domain.ReturnRecord, error) {
	return s.checkouts.ListReturns(ctx, limit)
}

func (s *CirculationService) Counts(ctx context.Context) (CirculationCounts, error) {
	var counts CirculationCounts
	open, err := s.checkouts.ListOpen(ctx)
	if err != nil {
		return counts, err
	}
	counts.Open = len(open)
	for _, c := range open {
		switch c.Status {
		case domain.CheckoutOpen:
			counts.CheckedOut++
		case domain.CheckoutOverdue:
			counts.Overdue++
		}
	}

	returns, err := s.checkouts.ListReturns(ctx, 0)
	if err != nil {
		return counts, err
	}
	at := s.now()
	for _, r := range returns {
		if sameDay(r.ReturnedAt, at) {
			counts.ReturnsToday++
		}
	}
	return counts, nil
}

// DaysOverdue is the whole number of days, rounded up, since expected. It is
// zero or negative when expected has not passed.
func DaysOverdue(expected, at time.Time) int {
	return int(math.Ceil(at.Sub(expected).Hours() / 24))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
