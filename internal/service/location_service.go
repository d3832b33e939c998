package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/export"
	"github.com/vbonduro/toolkeepr/internal/vision"
)

// ErrVisionUnavailable is returned by photo intake when no vision backend is configured.
var ErrVisionUnavailable = errors.New("vision analysis is not configured")

// defaultCoordinates are assigned to fixed (non-vehicle) locations created
// without coordinates.
var defaultCoordinates = domain.Coordinates{Lat: 40.7128, Lng: -74.0060}

// locationRepository is the subset of store.LocationStore that LocationService requires.
type locationRepository interface {
	Create(ctx context.Context, l *domain.Location) (*domain.Location, error)
	GetByID(ctx context.Context, id int64) (*domain.Location, error)
	List(ctx context.Context) ([]*domain.Location, error)
	Update(ctx context.Context, l *domain.Location) error
	Delete(ctx context.Context, id int64) error
}

// photoRepository is the subset of store.PhotoStore that LocationService requires.
type photoRepository interface {
	Create(ctx context.Context, locationID int64, storageKey, mimeType string, uploadedAt time.Time) (*domain.Photo, error)
	GetLatestByLocationID(ctx context.Context, locationID int64) (*domain.Photo, error)
	ListKeysByLocation(ctx context.Context, locationID int64) ([]string, error)
}

// toolRepository is the subset of store.ToolStore the services require.
type toolRepository interface {
	Create(ctx context.Context, t *domain.Tool) (*domain.Tool, error)
	GetByID(ctx context.Context, id int64) (*domain.Tool, error)
	GetByCode(ctx context.Context, code string) (*domain.Tool, error)
	List(ctx context.Context) ([]*domain.Tool, error)
	CountByType(ctx context.Context, typeName string) (int, error)
	Update(ctx context.Context, t *domain.Tool) error
	Delete(ctx context.Context, id int64) error
}

type LocationInput struct {
	Name              string
	Description       string
	Type              domain.LocationType
	Address           string
	Capacity          int
	IsActive          bool
	Coordinates       *domain.Coordinates
	Parent            string
	ResponsiblePerson string
	ContactInfo       string
	AccessLevel       domain.AccessLevel
	Features          []string
}

type LocationFilter struct {
	// Type is a location type or "all"/"" for every type.
	Type   string
	Status StatusFilter
	Search string
}

type LocationService struct {
	locations locationRepository
	photos    photoRepository
	tools     toolRepository
	visionAPI vision.VisionAnalyzer
	blobs     blobstore.Store
	logger    *slog.Logger
	now       func() time.Time
}

func NewLocationService(
	locations locationRepository,
	photos photoRepository,
	tools toolRepository,
	visionAPI vision.VisionAnalyzer,
	blobs blobstore.Store,
	logger *slog.Logger,
) *LocationService {
	return &LocationService{
		locations: locations,
		photos:    photos,
		tools:     tools,
		visionAPI: visionAPI,
		blobs:     blobs,
		logger:    logger,
		now:       now,
	}
}

// All returns every location with its current tool count.
func (s *LocationService) All(ctx context.Context) ([]*domain.Location, error) {
	locs, err := s.locations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	counts := make(map[string]int)
	for _, t := range tools {
		counts[t.Location]++
	}
	for _, l := range locs {
		l.CurrentToolCount = counts[l.Name]
	}
	return locs, nil
}

func (s *LocationService) List(ctx context.Context, f LocationFilter) ([]*domain.Location, error) {
	locs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return FilterLocations(locs, f), nil
}

func FilterLocations(locs []*domain.Location, f LocationFilter) []*domain.Location {
	out := make([]*domain.Location, 0, len(locs))
	for _, l := range locs {
		if f.Type != "" && f.Type != "all" && string(l.Type) != f.Type {
			continue
		}
		if !f.Status.Match(l.IsActive) {
			continue
		}
		if !containsFold(f.Search, l.Code, l.Name, l.Description, l.Address, l.ResponsiblePerson) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Get returns the location with its current tool count.
func (s *LocationService) Get(ctx context.Context, id int64) (*domain.Location, error) {
	l, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	if l == nil {
		return nil, notFound("location", id)
	}
	tools, err := s.tools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	for _, t := range tools {
		if t.Location == l.Name {
			l.CurrentToolCount++
		}
	}
	return l, nil
}

func ValidateLocation(in LocationInput) domain.ValidationErrors {
	errs := domain.ValidationErrors{}
	validateLength(errs, "name", "Name", in.Name, 2, 100)
	validateLength(errs, "description", "Description", in.Description, 0, 300)
	if !in.Type.Valid() {
		errs.Add("type", "Choose a location type")
	}
	if in.Capacity < 1 || in.Capacity > 1000 {
		errs.Add("capacity", "Capacity must be between 1 and 1000")
	}
	if strings.TrimSpace(in.ResponsiblePerson) == "" {
		errs.Add("responsiblePerson", "Responsible person is required")
	}
	if !in.AccessLevel.Valid() {
		errs.Add("accessLevel", "Choose an access level")
	}
	return errs
}

// QRCode builds the label printed for a location: QR_<NAME>_<nnn>, with the
// name upper-cased and stripped of whitespace and nnn taken from the code.
func QRCode(name, code string) string {
	compact := strings.Join(strings.Fields(name), "")
	return fmt.Sprintf("QR_%s_%s", strings.ToUpper(compact), strings.TrimPrefix(code, "LOC"))
}

func (s *LocationService) Create(ctx context.Context, in LocationInput) (*domain.Location, error) {
	if err := ValidateLocation(in).Err(); err != nil {
		return nil, err
	}
	existing, err := s.locations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	codes := make([]string, 0, len(existing))
	for _, l := range existing {
		codes = append(codes, l.Code)
	}
	code := nextCode("LOC", codes, 3)

	coords := in.Coordinates
	if coords == nil && in.Type != domain.LocationVehicle {
		c := defaultCoordinates
		coords = &c
	}

	at := s.now()
	l, err := s.locations.Create(ctx, &domain.Location{
		Code:              code,
		Name:              strings.TrimSpace(in.Name),
		Description:       strings.TrimSpace(in.Description),
		Type:              in.Type,
		Address:           in.Address,
		Capacity:          in.Capacity,
		IsActive:          in.IsActive,
		Coordinates:       coords,
		Parent:            in.Parent,
		ResponsiblePerson: strings.TrimSpace(in.ResponsiblePerson),
		ContactInfo:       in.ContactInfo,
		AccessLevel:       in.AccessLevel,
		QRCode:            QRCode(in.Name, code),
		Features:          in.Features,
		CreatedAt:         at,
		UpdatedAt:         at,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("location created", "location_id", l.ID, "code", l.Code)
	return l, nil
}

// Update applies the form to the location. The code, QR code and creation
// time are kept.
func (s *LocationService) Update(ctx context.Context, id int64, in LocationInput) (*domain.Location, error) {
	if err := ValidateLocation(in).Err(); err != nil {
		return nil, err
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	l.Name = strings.TrimSpace(in.Name)
	l.Description = strings.TrimSpace(in.Description)
	l.Type = in.Type
	l.Address = in.Address
	l.Capacity = in.Capacity
	l.IsActive = in.IsActive
	if in.Coordinates != nil {
		l.Coordinates = in.Coordinates
	}
	l.Parent = in.Parent
	l.ResponsiblePerson = strings.TrimSpace(in.ResponsiblePerson)
	l.ContactInfo = in.ContactInfo
	l.AccessLevel = in.AccessLevel
	l.Features = in.Features
	l.UpdatedAt = s.now()
	if err := s.locations.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	s.logger.Info("location updated", "location_id", id)
	return l, nil
}

// Delete removes the location and its stored photos.
func (s *LocationService) Delete(ctx context.Context, id int64) error {
	keys, err := s.photos.ListKeysByLocation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list photos: %w", err)
	}
	if err := s.locations.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete location %d: %w", id, err)
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Error("failed to delete photo file", "storage_key", key, "error", err)
		}
	}
	s.logger.Info("location deleted", "location_id", id, "photos_removed", len(keys))
	return nil
}

func (s *LocationService) ToggleActive(ctx context.Context, id int64) (*domain.Location, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.IsActive = !l.IsActive
	l.UpdatedAt = s.now()
	if err := s.locations.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to toggle location: %w", err)
	}
	s.logger.Info("location toggled", "location_id", id, "active", l.IsActive)
	return l, nil
}

func (s *LocationService) Stats(ctx context.Context) (domain.LocationStats, error) {
	locs, err := s.All(ctx)
	if err != nil {
		return domain.LocationStats{}, err
	}
	return LocationStatsOf(locs), nil
}

// LocationStatsOf derives the summary cards. On equal tool counts the later
// location is reported as most used.
func LocationStatsOf(locs []*domain.Location) domain.LocationStats {
	var st domain.LocationStats
	st.TotalLocations = len(locs)
	occupied := 0
	best := -1
	for _, l := range locs {
		if l.IsActive {
			st.ActiveLocations++
		}
		st.TotalCapacity += l.Capacity
		occupied += l.CurrentToolCount
		if l.CurrentToolCount >= best {
			best = l.CurrentToolCount
			st.MostUsedLocation = l.Name
		}
	}
	if st.TotalCapacity > 0 {
		st.OccupancyRate = int(math.Round(float64(occupied) / float64(st.TotalCapacity) * 100))
	}
	st.AvailableSpots = st.TotalCapacity - occupied
	return st
}

// OccupancyBand names the colour used for an occupancy percentage.
func OccupancyBand(percent float64) string {
	switch {
	case percent >= 90:
		return "warn"
	case percent >= 70:
		return "accent"
	default:
		return "primary"
	}
}

func (s *LocationService) Export(ctx context.Context, w io.Writer) (string, error) {
	locs, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	if locs == nil {
		locs = []*domain.Location{}
	}
	if err := export.JSON(w, locs); err != nil {
		return "", err
	}
	return exportFileName("locations", s.now()), nil
}

// UploadPhoto analyzes a shelf photo, stores it and creates every detected
// tool at the location with status available.
func (s *LocationService) UploadPhoto(ctx context.Context, locationID int64, imageData []byte, mimeType string) (*domain.Photo, []*domain.Tool, error) {
	s.logger.Info("upload photo started", "location_id", locationID, "mime_type", mimeType, "bytes", len(imageData))

	if s.visionAPI == nil {
		return nil, nil, ErrVisionUnavailable
	}
	loc, err := s.Get(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("vision analysis started", "location_id", locationID)
	result, err := s.visionAPI.Analyze(ctx, bytes.NewReader(imageData), mimeType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyze image: %w", err)
	}
	s.logger.Info("vision analysis complete", "location_id", locationID, "tools_detected", len(result.Tools))

	storageKey, err := s.blobs.Save(ctx, fmt.Sprintf("photos/location_%d", locationID), mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "location_id", locationID, "storage_key", storageKey)

	photo, err := s.photos.Create(ctx, locationID, storageKey, mimeType, s.now())
	if err != nil {
		_ = s.blobs.Delete(ctx, storageKey)
		return nil, nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	existing, err := s.tools.List(ctx)
	if err != nil {
		return photo, nil, fmt.Errorf("failed to list tools: %w", err)
	}

	created := make([]*domain.Tool, 0, len(result.Tools))
	for _, detected := range result.Tools {
		at := s.now()
		tool, err := s.tools.Create(ctx, &domain.Tool{
			Code:      NextToolCode(detected.Type, existing),
			Name:      detected.Name,
			Type:      detected.Type,
			Location:  loc.Name,
			Status:    domain.ToolAvailable,
			Notes:     detected.Notes,
			CreatedAt: at,
			UpdatedAt: at,
		})
		if err != nil {
			s.logger.Error("failed to create tool", "name", detected.Name, "error", err)
			continue
		}
		existing = append(existing, tool)
		created = append(created, tool)
	}

	s.logger.Info("upload photo complete", "location_id", locationID, "tools_stored", len(created))
	return photo, created, nil
}

// LatestPhoto opens the most recent photo of a location. The caller closes
// the reader.
func (s *LocationService) LatestPhoto(ctx context.Context, locationID int64) (io.ReadCloser, string, error) {
	photo, err := s.photos.GetLatestByLocationID(ctx, locationID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get photo: %w", err)
	}
	if photo == nil {
		return nil, "", notFound("photo for location", locationID)
	}
	rc, mimeType, err := s.blobs.Get(ctx, photo.StorageKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, "", notFound("photo", photo.StorageKey)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open photo: %w", err)
	}
	return rc, mimeType, nil
}
