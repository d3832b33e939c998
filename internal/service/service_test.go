package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
	"github.com/vbonduro/toolkeepr/internal/db"
	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/store"
	"github.com/vbonduro/toolkeepr/internal/vision"
)

// fixed is a second-aligned UTC instant so values round-trip through SQLite unchanged.
var fixed = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixed }

// stubVision is a minimal VisionAnalyzer for tests.
type stubVision struct {
	result *vision.AnalysisResult
	err    error
}

func (s *stubVision) Analyze(_ context.Context, _ io.Reader, _ string) (*vision.AnalysisResult, error) {
	return s.result, s.err
}

type stubBlob struct {
	data     []byte
	mimeType string
	opts     blobstore.PutOptions
	modified time.Time
	seekable bool
}

// stubBlobStore is an in-memory blobstore.Store for tests.
type stubBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]stubBlob
	seq     int
	saveErr error
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{blobs: make(map[string]stubBlob)}
}

func (s *stubBlobStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	key := fmt.Sprintf("%s/%d%s", prefix, s.seq, blobstore.MimeTypeToExt(mimeType))
	s.blobs[key] = stubBlob{data: data, mimeType: mimeType, modified: fixed}
	return key, nil
}

func (s *stubBlobStore) Put(_ context.Context, key string, r io.Reader, opts blobstore.PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seekable := r.(io.Seeker)
	s.blobs[key] = stubBlob{data: data, mimeType: opts.ContentType, opts: opts, modified: fixed, seekable: seekable}
	return nil
}

func (s *stubBlobStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, "", blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), b.mimeType, nil
}

func (s *stubBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return blobstore.ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *stubBlobStore) List(_ context.Context, prefix string) ([]blobstore.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []blobstore.Info
	for k, b := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, blobstore.Info{Key: k, Size: int64(len(b.data)), LastModified: b.modified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *stubBlobStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// testEnv wires every service to one private database.
type testEnv struct {
	db          *sql.DB
	vision      *stubVision
	blobs       *stubBlobStore
	categories  *CategoryService
	locations   *LocationService
	toolTypes   *ToolTypeService
	tools       *ToolService
	circulation *CirculationService
	reports     *ReportService
	settings    *SettingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	toolStore := store.NewToolStore(d)
	typeStore := store.NewToolTypeStore(d)
	activityStore := store.NewActivityStore(d)
	checkoutStore := store.NewCheckoutStore(d)
	reportStore := store.NewReportStore(d)
	env := &testEnv{
		db:     d,
		vision: &stubVision{result: &vision.AnalysisResult{}},
		blobs:  newStubBlobStore(),
	}
	env.categories = NewCategoryService(store.NewCategoryStore(d), toolStore, typeStore, logger)
	env.locations = NewLocationService(store.NewLocationStore(d), store.NewPhotoStore(d), toolStore, env.vision, env.blobs, logger)
	env.toolTypes = NewToolTypeService(typeStore, toolStore, logger)
	env.tools = NewToolService(toolStore, typeStore, checkoutStore, activityStore, logger)
	env.circulation = NewCirculationService(checkoutStore, toolStore, typeStore, activityStore, nil, logger)
	env.reports = NewReportService(reportStore, toolStore, typeStore, checkoutStore, activityStore, env.blobs, nil, logger)
	env.settings = NewSettingsService(store.NewSettingsStore(d), toolStore, reportStore, env.blobs, nil, "", logger)

	env.categories.now = fixedClock
	env.locations.now = fixedClock
	env.tools.now = fixedClock
	env.circulation.now = fixedClock
	env.reports.now = fixedClock
	env.settings.now = fixedClock
	return env
}

// addTool creates a tool with the given name and type at the Main Shop.
func (e *testEnv) addTool(t *testing.T, name, typeName string) *domain.Tool {
	t.Helper()
	tool, err := e.tools.Create(context.Background(), ToolInput{Name: name, Type: typeName, Location: "Main Shop"})
	require.NoError(t, err)
	return tool
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("", "anything"))
	assert.True(t, containsFold("  ", "anything"))
	assert.True(t, containsFold("DRILL", "Cordless drill"))
	assert.True(t, containsFold("d00", "Hammer", "D001"))
	assert.False(t, containsFold("saw", "Hammer", "H001"))
}

func TestNextCode(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  string
	}{
		{"empty", nil, "LOC001"},
		{"highest plus one", []string{"LOC001", "LOC007", "LOC003"}, "LOC008"},
		{"other prefixes ignored", []string{"RPT009", "LOC002"}, "LOC003"},
		{"unparsable suffix skipped", []string{"LOCX", "LOC004"}, "LOC005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextCode("LOC", tt.codes, 3))
		})
	}
}

func TestValidateLength(t *testing.T) {
	errs := domain.ValidationErrors{}
	validateLength(errs, "a", "A", "  ", 2, 10)
	validateLength(errs, "b", "B", "x", 2, 10)
	validateLength(errs, "c", "C", "ééé", 2, 3)
	validateLength(errs, "d", "D", "abcd", 2, 3)
	assert.Equal(t, "A is required", errs["a"])
	assert.Equal(t, "B must be at least 2 characters", errs["b"])
	assert.NotContains(t, errs, "c")
	assert.Equal(t, "D must be at most 3 characters", errs["d"])
}

func TestStatusFilterMatch(t *testing.T) {
	assert.True(t, StatusAll.Match(true))
	assert.True(t, StatusAll.Match(false))
	assert.True(t, StatusActive.Match(true))
	assert.False(t, StatusActive.Match(false))
	assert.True(t, StatusInactive.Match(false))
	assert.False(t, StatusInactive.Match(true))
	assert.True(t, StatusFilter("bogus").Match(false))
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "categories-export-2024-03-15.json", exportFileName("categories", fixed))
}
