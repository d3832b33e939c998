package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

// recentActivityLimit is how many activities the dashboard shows.
const recentActivityLimit = 5

type ToolInput struct {
	Name            string
	Type            string
	Description     string
	Location        string
	Status          domain.ToolStatus
	IsStandard      bool
	SerialNumber    string
	Manufacturer    string
	Model           string
	PurchaseDate    *time.Time
	LastMaintenance *time.Time
	Notes           string
	Condition       string
	Properties      map[string]string
}

type ToolFilter struct {
	Search string
	// Status, Type and Standard are ignored when empty. Standard is
	// "standard" or "non-standard".
	Status   domain.ToolStatus
	Type     string
	Standard string
}

// openCheckouts reports whether a tool is currently lent out.
type openCheckouts interface {
	HasOpen(ctx context.Context, toolID int64) (bool, error)
}

type ToolService struct {
	tools      toolRepository
	types      toolTypeRepository
	checkouts  openCheckouts
	activities activityRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewToolService(tools toolRepository, types toolTypeRepository, checkouts openCheckouts, activities activityRepository, logger *slog.Logger) *ToolService {
	return &ToolService{
		tools:      tools,
		types:      types,
		checkouts:  checkouts,
		activities: activities,
		logger:     logger,
		now:        now,
	}
}

func (s *ToolService) List(ctx context.Context, f ToolFilter) ([]*domain.Tool, error) {
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return FilterTools(tools, f), nil
}

func FilterTools(tools []*domain.Tool, f ToolFilter) []*domain.Tool {
	out := make([]*domain.Tool, 0, len(tools))
	for _, t := range tools {
		if !containsFold(f.Search, t.Name, t.Code, t.Description) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Standard == "standard" && !t.IsStandard || f.Standard == "non-standard" && t.IsStandard {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TypeKey is the compact form of a type name used by the standard tools
// filter: lower case with spaces removed.
func TypeKey(typeName string) string {
	return strings.ReplaceAll(strings.ToLower(typeName), " ", "")
}

// Standard lists standard tools whose type key equals key, or all of them
// when key is "all" or empty.
func (s *ToolService) Standard(ctx context.Context, key string) ([]*domain.Tool, error) {
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	out := make([]*domain.Tool, 0, len(tools))
	for _, t := range tools {
		if !t.IsStandard {
			continue
		}
		if key != "" && key != "all" && TypeKey(t.Type) != key {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *ToolService) Get(ctx context.Context, id int64) (*domain.Tool, error) {
	t, err := s.tools.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	if t == nil {
		return nil, notFound("tool", id)
	}
	return t, nil
}

// NextToolCode picks the code for a new tool of the given type: the first
// letter of the type upper-cased (T when there is none) followed by the next
// free three digit number among codes with that prefix.
func NextToolCode(typeName string, existing []*domain.Tool) string {
	prefix := "T"
	for _, r := range strings.TrimSpace(typeName) {
		prefix = string(unicode.ToUpper(r))
		break
	}
	codes := make([]string, 0, len(existing))
	for _, t := range existing {
		codes = append(codes, t.Code)
	}
	return nextCode(prefix, codes, 3)
}

func ValidateTool(in ToolInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	validateLength(errs, "name", "Name", in.Name, 2, 100)
	if strings.TrimSpace(in.Type) == "" {
		errs.Add("type", "Tool type is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		errs.Add("location", "Location is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		errs.Add("status", "Choose a status")
	}
	return errs
}

// resolveProperties starts from the defaults of the tool's type and overlays
// the submitted values that belong to its schema. Tools of an unknown type
// keep what was submitted.
func (s *ToolService) resolveProperties(ctx context.Context, typeName string, submitted map[string]string) (map[string]string, domain.ValidationErrors, error) {
	tt, err := s.types.GetByName(ctx, typeName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get tool type: %w", err)
	}
	if tt == nil {
		props := make(map[string]string, len(submitted))
		for k, v := range submitted {
			props[k] = v
		}
		return props, domain.ValidationErrors{}, nil
	}

	props := DefaultProperties(tt)
	for _, p := range tt.Properties {
		if v, ok := submitted[p.Name]; ok && strings.TrimSpace(v) != "" {
			props[p.Name] = strings.TrimSpace(v)
		}
	}
	return props, ValidateProperties(tt, props), nil
}

func (s *ToolService) Create(ctx context.Context, in ToolInput) (*domain.Tool, error) {
	errs := ValidateTool(in)
	props, propErrs, err := s.resolveProperties(ctx, in.Type, in.Properties)
	if err != nil {
		return nil, err
	}
	for f, msg := range propErrs {
		errs.Add(f, msg)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	existing, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	status := in.Status
	if status == "" {
		status = domain.ToolAvailable
	}

	at := s.now()
	t := &domain.Tool{
		Code:            NextToolCode(in.Type, existing),
		Status:          status,
		Properties:      props,
		CreatedAt:       at,
		UpdatedAt:       at,
		PurchaseDate:    in.PurchaseDate,
		LastMaintenance: in.LastMaintenance,
	}
	applyToolInput(t, in)
	t, err = s.tools.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tool created", "tool_id", t.ID, "code", t.Code)
	s.record(ctx, domain.ActivityCreated, "Tool added", t.Name, "Admin", t.Code)
	return t, nil
}

func applyToolInput(t *domain.Tool, in ToolInput) {
	t.Name = strings.TrimSpace(in.Name)
	t.Type = strings.TrimSpace(in.Type)
	t.Description = strings.TrimSpace(in.Description)
	t.Location = strings.TrimSpace(in.Location)
	t.IsStandard = in.IsStandard
	t.SerialNumber = in.SerialNumber
	t.Manufacturer = in.Manufacturer
	t.Model = in.Model
	t.Notes = in.Notes
	t.Condition = in.Condition
}

// Update applies the form to the tool. When the type changes the properties
// are reset to the new type's defaults before submitted values are applied.
func (s *ToolService) Update(ctx context.Context, id int64, in ToolInput) (*domain.Tool, error) {
	errs := ValidateTool(in)
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkStatusChange(ctx, t, in.Status, errs); err != nil {
		return nil, err
	}

	submitted := in.Properties
	if strings.TrimSpace(in.Type) == t.Type {
		submitted = make(map[string]string, len(t.Properties)+len(in.Properties))
		for k, v := range t.Properties {
			submitted[k] = v
		}
		for k, v := range in.Properties {
			submitted[k] = v
		}
	}
	props, propErrs, err := s.resolveProperties(ctx, in.Type, submitted)
	if err != nil {
		return nil, err
	}
	for f, msg := range propErrs {
		errs.Add(f, msg)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	applyToolInput(t, in)
	if in.Status != "" {
		t.Status = in.Status
	}
	t.PurchaseDate = in.PurchaseDate
	t.LastMaintenance = in.LastMaintenance
	t.Properties = props
	t.UpdatedAt = s.now()
	if err := s.tools.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tool: %w", err)
	}
	s.logger.Info("tool updated", "tool_id", id)
	kind, action := domain.ActivityUpdate, "Tool updated"
	if t.Status == domain.ToolMaintenance {
		kind, action = domain.ActivityMaintenance, "Maintenance scheduled"
	}
	s.record(ctx, kind, action, t.Name, "Admin", t.Code)
	return t, nil
}

// checkStatusChange keeps in-use owned by check-out and check-in: a lent
// tool keeps its status until it is returned, and no edit can put a tool in
// use without a checkout.
func (s *ToolService) checkStatusChange(ctx context.Context, t *domain.Tool, to domain.ToolStatus, errs domain.ValidationErrors) error {
	if to == "" || to == t.Status {
		return nil
	}
	lent, err := s.checkouts.HasOpen(ctx, t.ID)
	if err != nil {
		return err
	}
	switch {
	case lent:
		errs.Add("status", "Status cannot change while the tool is checked out; return it first")
	case to == domain.ToolInUse:
		errs.Add("status", "Use check-out to put a tool in use")
	}
	return nil
}

func (s *ToolService) Delete(ctx context.Context, id int64) error {
	if err := s.tools.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tool %d: %w", id, err)
	}
	s.logger.Info("tool deleted", "tool_id", id)
	return nil
}

// ToggleStandard marks or unmarks the tool as standard.
func (s *ToolService) ToggleStandard(ctx context.Context, id int64) (*domain.Tool, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.IsStandard = !t.IsStandard
	t.UpdatedAt = s.now()
	if err := s.tools.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to toggle tool: %w", err)
	}
	s.logger.Info("tool standard toggled", "tool_id", id, "standard", t.IsStandard)
	return t, nil
}

// Dashboard bundles the dashboard cards.
type Dashboard struct {
	Stats          domain.DashboardStats
	ByType         []domain.ToolTypeCount
	RecentActivity []*domain.Activity
}

func (s *ToolService) Dashboard(ctx context.Context) (*Dashboard, error) {
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	recent, err := s.activities.ListRecent(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Stats:          DashboardStatsOf(tools),
		ByType:         CountByType(tools),
		RecentActivity: recent,
	}, nil
}

func DashboardStatsOf(tools []*domain.Tool) domain.DashboardStats {
	st := domain.DashboardStats{TotalTools: len(tools)}
	for _, t := range tools {
		if t.IsStandard {
			st.StandardTools++
		}
		switch t.Status {
		case domain.ToolAvailable:
			st.AvailableTools++
		case domain.ToolInUse:
			st.InUseTools++
		case domain.ToolMaintenance:
			st.MaintenanceTools++
		}
	}
	return st
}

// CountByType breaks the tools down by type name, sorted by name.
func CountByType(tools []*domain.Tool) []domain.ToolTypeCount {
	byType := make(map[string]*domain.ToolTypeCount)
	for _, t := range tools {
		c, ok := byType[t.Type]
		if !ok {
			c = &domain.ToolTypeCount{Type: t.Type}
			byType[t.Type] = c
		}
		c.Count++
		switch t.Status {
		case domain.ToolAvailable:
			c.Available++
		case domain.ToolInUse:
			c.InUse++
		}
	}
	out := make([]domain.ToolTypeCount, 0, len(byType))
	for _, c := range byType {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func (s *ToolService) RecentActivity(ctx context.Context, limit int) ([]*domain.Activity, error) {
	return s.activities.ListRecent(ctx, limit)
}

// record stores an activity entry. Failures are logged and otherwise ignored.
func (s *ToolService) record(ctx context.Context, kind domain.ActivityKind, action, subject, actor, details string) {
	recordActivity(ctx, s.activities, s.logger, &domain.Activity{
		Kind: kind, Action: action, Subject: subject, Actor: actor, Details: details, CreatedAt: s.now(),
	})
}

func recordActivity(ctx context.Context, activities activityRepository, logger *slog.Logger, a *domain.Activity) {
	if _, err := activities.Create(ctx, a); err != nil {
		logger.Error("failed to record activity", "action", a.Action, "error", err)
	}
}
