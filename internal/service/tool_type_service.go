package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

// toolTypeRepository is the subset of store.ToolTypeStore that ToolTypeService requires.
type toolTypeRepository interface {
	Create(ctx context.Context, tt *domain.ToolType) (*domain.ToolType, error)
	GetByID(ctx context.Context, id int64) (*domain.ToolType, error)
	GetByName(ctx context.Context, name string) (*domain.ToolType, error)
	List(ctx context.Context) ([]*domain.ToolType, error)
	Update(ctx context.Context, tt *domain.ToolType) error
	Delete(ctx context.Context, id int64) error
	AddProperty(ctx context.Context, toolTypeID int64, p *domain.ToolTypeProperty) (*domain.ToolTypeProperty, error)
	RemoveProperty(ctx context.Context, toolTypeID, propertyID int64) error
}

type ToolTypeInput struct {
	Name        string
	Category    string
	Description string
	IsActive    bool
}

// PropertyInput is the add-property form. Options is the raw comma-separated list.
type PropertyInput struct {
	Name         string
	Label        string
	Kind         domain.PropertyKind
	Required     bool
	Options      string
	Unit         string
	DefaultValue string
}

type ToolTypeService struct {
	types  toolTypeRepository
	tools  toolRepository
	logger *slog.Logger
}

func NewToolTypeService(types toolTypeRepository, tools toolRepository, logger *slog.Logger) *ToolTypeService {
	return &ToolTypeService{types: types, tools: tools, logger: logger}
}

func (s *ToolTypeService) List(ctx context.Context) ([]*domain.ToolType, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool types: %w", err)
	}
	return types, nil
}

// Active lists the tool types offered on tool forms.
func (s *ToolTypeService) Active(ctx context.Context) ([]*domain.ToolType, error) {
	types, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ToolType, 0, len(types))
	for _, tt := range types {
		if tt.IsActive {
			out = append(out, tt)
		}
	}
	return out, nil
}

func (s *ToolTypeService) Get(ctx context.Context, id int64) (*domain.ToolType, error) {
	tt, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool type: %w", err)
	}
	if tt == nil {
		return nil, notFound("tool type", id)
	}
	return tt, nil
}

// ByName returns the tool type with the given name, or nil when none exists.
func (s *ToolTypeService) ByName(ctx context.Context, name string) (*domain.ToolType, error) {
	tt, err := s.types.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool type: %w", err)
	}
	return tt, nil
}

func ValidateToolType(in ToolTypeInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	validateLength(errs, "name", "Name", in.Name, 2, 100)
	if strings.TrimSpace(in.Category) == "" {
		errs.Add("category", "Category is required")
	}
	if len(in.Description) > 300 {
		errs.Add("description", "Description must be at most 300 characters")
	}
	return errs
}

// Create adds a tool type with no properties.
func (s *ToolTypeService) Create(ctx context.Context, in ToolTypeInput) (*domain.ToolType, error) {
	if err := ValidateToolType(in).Err(); err != nil {
		return nil, err
	}
	existing, err := s.types.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool types: %w", err)
	}
	codes := make([]string, 0, len(existing))
	for _, tt := range existing {
		codes = append(codes, tt.Code)
	}

	tt, err := s.types.Create(ctx, &domain.ToolType{
		Code:        nextCode("TT", codes, 3),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		IsActive:    in.IsActive,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tool type created", "tool_type_id", tt.ID, "code", tt.Code)
	return tt, nil
}

// Update edits the tool type's fields; its properties are kept.
func (s *ToolTypeService) Update(ctx context.Context, id int64, in ToolTypeInput) (*domain.ToolType, error) {
	if err := ValidateToolType(in).Err(); err != nil {
		return nil, err
	}
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tt.Name = strings.TrimSpace(in.Name)
	tt.Category = strings.TrimSpace(in.Category)
	tt.Description = strings.TrimSpace(in.Description)
	tt.IsActive = in.IsActive
	if err := s.types.Update(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to update tool type: %w", err)
	}
	s.logger.Info("tool type updated", "tool_type_id", id)
	return tt, nil
}

// Delete refuses with ErrConflict while any tool still names this type.
func (s *ToolTypeService) Delete(ctx context.Context, id int64) error {
	tt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.tools.CountByType(ctx, tt.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("tool type %q has %d tools: %w", tt.Name, n, domain.ErrConflict)
	}
	if err := s.types.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tool type %d: %w", id, err)
	}
	s.logger.Info("tool type deleted", "tool_type_id", id)
	return nil
}

func (s *ToolTypeService) ToggleActive(ctx context.Context, id int64) (*domain.ToolType, error) {
	tt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tt.IsActive = !tt.IsActive
	if err := s.types.Update(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to toggle tool type: %w", err)
	}
	s.logger.Info("tool type toggled", "tool_type_id", id, "active", tt.IsActive)
	return tt, nil
}

// ParseOptions splits a comma-separated option list, trimming each entry and
// dropping empty ones.
func ParseOptions(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func ValidateProperty(in PropertyInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	if strings.TrimSpace(in.Name) == "" {
		errs.Add("name", "Property name is required")
	}
	if strings.TrimSpace(in.Label) == "" {
		errs.Add("label", "Property label is required")
	}
	if in.Kind != "" && !in.Kind.Valid() {
		errs.Add("kind", "Choose a property type")
	}
	if in.Kind == domain.PropertySelect && len(ParseOptions(in.Options)) == 0 {
		errs.Add("options", "Select properties need at least one option")
	}
	return errs
}

func (s *ToolTypeService) AddProperty(ctx context.Context, toolTypeID int64, in PropertyInput) (*domain.ToolType, error) {
	if err := ValidateProperty(in).Err(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, toolTypeID); err != nil {
		return nil, err
	}

	kind := in.Kind
	if kind == "" {
		kind = domain.PropertyText
	}
	p := &domain.ToolTypeProperty{
		Name:         strings.TrimSpace(in.Name),
		Label:        strings.TrimSpace(in.Label),
		Kind:         kind,
		Required:     in.Required,
		Unit:         strings.TrimSpace(in.Unit),
		DefaultValue: strings.TrimSpace(in.DefaultValue),
	}
	if kind == domain.PropertySelect {
		p.Options = ParseOptions(in.Options)
	}
	if _, err := s.types.AddProperty(ctx, toolTypeID, p); err != nil {
		return nil, err
	}
	s.logger.Info("property added", "tool_type_id", toolTypeID, "property", p.Name)
	return s.Get(ctx, toolTypeID)
}

func (s *ToolTypeService) RemoveProperty(ctx context.Context, toolTypeID, propertyID int64) (*domain.ToolType, error) {
	if err := s.types.RemoveProperty(ctx, toolTypeID, propertyID); err != nil {
		return nil, fmt.Errorf("failed to remove property %d: %w", propertyID, err)
	}
	s.logger.Info("property removed", "tool_type_id", toolTypeID, "property_id", propertyID)
	return s.Get(ctx, toolTypeID)
}

// DefaultProperties returns the default value of every property of tt that has one.
func DefaultProperties(tt *domain.ToolType) map[string]string {
	out := make(map[string]string)
	if tt == nil {
		return out
	}
	for _, p := range tt.Properties {
		if p.DefaultValue != "" {
			out[p.Name] = p.DefaultValue
		}
	}
	return out
}

// ValidateProperties checks tool property values against the schema of tt.
// Errors are keyed "properties.<name>".
func ValidateProperties(tt *domain.ToolType, values map[string]string) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	if tt == nil {
		return errs
	}
	for _, p := range tt.Properties {
		field := "properties." + p.Name
		v := strings.TrimSpace(values[p.Name])
		if v == "" {
			if p.Required {
				errs.Add(field, p.Label+" is required")
			}
			continue
		}
		switch p.Kind {
		case domain.PropertyNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				errs.Add(field, p.Label+" must be a number")
			}
		case domain.PropertyDate:
			if _, err := time.Parse("2006-01-02", v); err != nil {
				errs.Add(field, p.Label+" must be a date (YYYY-MM-DD)")
			}
		case domain.PropertyBoolean:
			if _, err := strconv.ParseBool(v); err != nil {
				errs.Add(field, p.Label+" must be true or false")
			}
		case domain.PropertySelect:
			if !slices.Contains(p.Options, v) {
				errs.Add(field, p.Label+" must be one of "+strings.Join(p.Options, ", "))
			}
		}
	}
	return errs
}
