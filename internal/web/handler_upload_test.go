package web

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffImage(t *testing.T) {
	webp := append([]byte("RIFF\x10\x00\x00\x00WEBPVP8 "), make([]byte, 8)...)
	tests := []struct {
		name   string
		data   []byte
		want   string
		wantOK bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00}, "image/jpeg", true},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00"), "image/png", true},
		{"gif87", []byte("GIF87a\x01\x00"), "image/gif", true},
		{"gif89", []byte("GIF89a\x01\x00"), "image/gif", true},
		{"webp", webp, "image/webp", true},
		{"wav container", append([]byte("RIFF\x10\x00\x00\x00WAVE"), make([]byte, 8)...), "", false},
		{"webp tag without riff", []byte("XXXX\x10\x00\x00\x00WEBP"), "", false},
		{"pdf", []byte("%PDF-1.7\n"), "", false},
		{"truncated", []byte{0xFF, 0xD8}, "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sniffImage(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "upload.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestOpenUpload(t *testing.T) {
	t.Run("reads the named field", func(t *testing.T) {
		r := multipartRequest(t, "file", []byte(`{"profile":{}}`))
		f, err := openUpload(httptest.NewRecorder(), r, "file", 1<<10)
		require.NoError(t, err)
		defer f.Close()
	})

	t.Run("missing field", func(t *testing.T) {
		r := multipartRequest(t, "other", []byte("x"))
		_, err := openUpload(httptest.NewRecorder(), r, "file", 1<<10)
		assert.ErrorIs(t, err, errUploadMissing)
	})

	t.Run("not multipart", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("a=b"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err := openUpload(httptest.NewRecorder(), r, "file", 1<<10)
		require.Error(t, err)
		assert.False(t, errors.Is(err, errUploadMissing))
	})
}

func TestUploadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"missing", errUploadMissing, http.StatusBadRequest},
		{"malformed", errors.New("multipart: NextPart: EOF"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			uploadError(rec, tt.err, "image")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
