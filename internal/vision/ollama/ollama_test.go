package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaAnalyze(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    gotReq.Model,
			"response": "Cordless Drill | Drill |\nHand Saw | Saw | rusty",
		})
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava")

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	result, err := analyzer.Analyze(context.Background(), bytes.NewReader(imageData), "image/jpeg")

	require.NoError(t, err)
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "Cordless Drill", result.Tools[0].Name)
	assert.Equal(t, "Drill", result.Tools[0].Type)
	assert.Equal(t, "Hand Saw", result.Tools[1].Name)
	assert.Equal(t, "rusty", result.Tools[1].Notes)

	assert.Equal(t, "llava", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.Len(t, gotReq.Images, 1)
}

func TestOllamaAnalyzeNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	analyzer := NewOllamaAnalyzer(url, "llava")
	_, err := analyzer.Analyze(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")

	assert.Error(t, err)
}

func TestOllamaAnalyzeInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava")
	_, err := analyzer.Analyze(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")

	assert.Error(t, err)
}

func TestOllamaAnalyzeReadError(t *testing.T) {
	analyzer := NewOllamaAnalyzer("http://localhost:11434", "llava")

	_, err := analyzer.Analyze(context.Background(), errReader{}, "image/jpeg")
	assert.Error(t, err)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
