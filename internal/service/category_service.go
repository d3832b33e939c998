package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/export"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// categoryRepository is the subset of store.CategoryStore that CategoryService requires.
type categoryRepository interface {
	Create(ctx context.Context, c *domain.Category) (*domain.Category, error)
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id int64) error
}

// toolLister is the read side of store.ToolStore used to derive counts.
type toolLister interface {
	List(ctx context.Context) ([]*domain.Tool, error)
}

// toolTypeLister is the read side of store.ToolTypeStore used to derive counts.
type toolTypeLister interface {
	List(ctx context.Context) ([]*domain.ToolType, error)
}

// CategoryInput is the category form.
type CategoryInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	IsActive    bool
	Parent      string
}

type CategoryFilter struct {
	Status StatusFilter
	Search string
}

type CategoryService struct {
	categories categoryRepository
	tools      toolLister
	toolTypes  toolTypeLister
	logger     *slog.Logger
	now        func() time.Time
}

func NewCategoryService(categories categoryRepository, tools toolLister, toolTypes toolTypeLister, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		tools:      tools,
		toolTypes:  toolTypes,
		logger:     logger,
		now:        now,
	}
}

// All returns every category with its derived tool count.
func (s *CategoryService) All(ctx context.Context) ([]*domain.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	types, err := s.toolTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool types: %w", err)
	}
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	typeCategory := make(map[string]string, len(types))
	for _, tt := range types {
		typeCategory[tt.Name] = tt.Category
	}
	counts := make(map[string]int)
	for _, t := range tools {
		if cat, ok := typeCategory[t.Type]; ok {
			counts[cat]++
		}
	}
	for _, c := range cats {
		c.ToolCount = counts[c.Name]
	}
	return cats, nil
}

func (s *CategoryService) List(ctx context.Context, f CategoryFilter) ([]*domain.Category, error) {
	cats, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCategories(cats, f), nil
}

// FilterCategories keeps the categories matching the status and search of f.
func FilterCategories(cats []*domain.Category, f CategoryFilter) []*domain.Category {
	out := make([]*domain.Category, 0, len(cats))
	for _, c := range cats {
		if f.Status.Match(c.IsActive) && containsFold(f.Search, c.Name, c.Description) {
			out = append(out, c)
		}
	}
	return out
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if c == nil {
		return nil, notFound("category", id)
	}
	return c, nil
}

// ValidateCategory checks in against the form rules. Names must be unique
// ignoring case among existing, except for the record with id excludeID.
func ValidateCategory(in CategoryInput, existing []*domain.Category, excludeID int64) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	validateLength(errs, "name", "Name", in.Name, 2, 50)
	validateLength(errs, "description", "Description", in.Description, 0, 200)
	if !hexColor.MatchString(in.Color) {
		errs.Add("color", "Color must be a hex value like #1976d2")
	}
	if strings.TrimSpace(in.Icon) == "" {
		errs.Add("icon", "Icon is required")
	}

	name := strings.TrimSpace(in.Name)
	for _, c := range existing {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			errs.Add("name", "A category with this name already exists")
			break
		}
	}
	return errs
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	existing, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if err := ValidateCategory(in, existing, 0).Err(); err != nil {
		return nil, err
	}

	at := s.now()
	c, err := s.categories.Create(ctx, &domain.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Color:       in.Color,
		Icon:        in.Icon,
		IsActive:    in.IsActive,
		Parent:      strings.TrimSpace(in.Parent),
		CreatedAt:   at,
		UpdatedAt:   at,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if err := ValidateCategory(in, existing, id).Err(); err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Description = strings.TrimSpace(in.Description)
	c.Color = in.Color
	c.Icon = in.Icon
	c.IsActive = in.IsActive
	c.Parent = strings.TrimSpace(in.Parent)
	c.UpdatedAt = s.now()
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	s.logger.Info("category updated", "category_id", id)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	s.logger.Info("category deleted", "category_id", id)
	return nil
}

// ToggleActive flips the active flag and bumps the last-modified time.
func (s *CategoryService) ToggleActive(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = !c.IsActive
	c.UpdatedAt = s.now()
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to toggle category: %w", err)
	}
	s.logger.Info("category toggled", "category_id", id, "active", c.IsActive)
	return c, nil
}

func (s *CategoryService) Stats(ctx context.Context) (domain.CategoryStats, error) {
	cats, err := s.All(ctx)
	if err != nil {
		return domain.CategoryStats{}, err
	}
	return CategoryStatsOf(cats, s.now()), nil
}

// CategoryStatsOf derives the summary cards over the full list. On equal
// tool counts the later category is reported as most used.
func CategoryStatsOf(cats []*domain.Category, at time.Time) domain.CategoryStats {
	var st domain.CategoryStats
	st.TotalCategories = len(cats)
	weekAgo := at.AddDate(0, 0, -7)
	best := -1
	for _, c := range cats {
		if c.IsActive {
			st.ActiveCategories++
		}
		st.TotalTools += c.ToolCount
		if c.ToolCount >= best {
			best = c.ToolCount
			st.MostUsedCategory = c.Name
		}
		if c.CreatedAt.After(weekAgo) {
			st.RecentlyAdded++
		}
	}
	return st
}

// Export writes every category as JSON and returns the download file name.
func (s *CategoryService) Export(ctx context.Context, w io.Writer) (string, error) {
	cats, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	if cats == nil {
		cats = []*domain.Category{}
	}
	if err := export.JSON(w, cats); err != nil {
		return "", err
	}
	return exportFileName("categories", s.now()), nil
}
