package web

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
)

const (
	maxPhotoSize  = 25 << 20
	maxAvatarSize = 5 << 20
	maxImportSize = 10 << 20
)

// imageSignature matches a file header at a fixed offset.
type imageSignature struct {
	mime   string
	offset int
	magic  []byte
}

// Shelf photos are limited to formats both vision backends accept.
var imageSignatures = []imageSignature{
	{"image/jpeg", 0, []byte{0xFF, 0xD8, 0xFF}},
	{"image/png", 0, []byte("\x89PNG\r\n\x1a\n")},
	{"image/gif", 0, []byte("GIF87a")},
	{"image/gif", 0, []byte("GIF89a")},
	{"image/webp", 8, []byte("WEBP")},
}

// sniffImage returns the MIME type of a supported shelf photo.
func sniffImage(data []byte) (string, bool) {
	for _, sig := range imageSignatures {
		end := sig.offset + len(sig.magic)
		if len(data) < end || !bytes.Equal(data[sig.offset:end], sig.magic) {
			continue
		}
		if sig.mime == "image/webp" && !bytes.HasPrefix(data, []byte("RIFF")) {
			continue
		}
		return sig.mime, true
	}
	return "", false
}

var errUploadMissing = errors.New("file required")

// openUpload caps the request body at limit and returns the named multipart
// file. The caller closes it.
func openUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errUploadMissing
	}
	return file, nil
}

// uploadError answers a failed openUpload.
func uploadError(w http.ResponseWriter, err error, what string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		http.Error(w, what+" too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, errUploadMissing):
		http.Error(w, what+" required", http.StatusBadRequest)
	default:
		http.Error(w, "failed to parse form", http.StatusBadRequest)
	}
}

// handleUploadPhoto stores a shelf photo for a location and answers with the
// rows of the tools the vision backend registered from it.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}

	file, err := openUpload(w, r, "image", maxPhotoSize)
	if err != nil {
		uploadError(w, err, "image")
		return
	}
	defer closeWithLog(file, "shelf photo", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read shelf photo failed", "location_id", locationID, "error", err)
		http.Error(w, "failed to read image", http.StatusInternalServerError)
		return
	}
	mimeType, ok := sniffImage(data)
	if !ok {
		http.Error(w, "image must be JPEG, PNG, GIF or WebP", http.StatusBadRequest)
		return
	}

	_, tools, err := s.svc.Locations.UploadPhoto(r.Context(), locationID, data, mimeType)
	if err != nil {
		s.fail(w, err, "process shelf photo")
		return
	}
	s.partial(w, "partials/tool_rows.html", tools)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}

	rc, mimeType, err := s.svc.Locations.LatestPhoto(r.Context(), locationID)
	if err != nil {
		s.fail(w, err, "load shelf photo")
		return
	}
	defer closeWithLog(rc, "shelf photo", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write shelf photo failed", "location_id", locationID, "error", err)
	}
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	file, err := openUpload(w, r, "avatar", maxAvatarSize)
	if err != nil {
		uploadError(w, err, "avatar")
		return
	}
	defer closeWithLog(file, "avatar", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read avatar failed", "error", err)
		http.Error(w, "failed to read avatar", http.StatusInternalServerError)
		return
	}
	mimeType, ok := sniffImage(data)
	if !ok {
		http.Error(w, "avatar must be JPEG, PNG, GIF or WebP", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.Settings.SaveAvatar(r.Context(), data, mimeType); err != nil {
		s.fail(w, err, "save avatar")
		return
	}
	redirect(w, r, "/settings")
}

func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	rc, mimeType, err := s.svc.Settings.Avatar(r.Context())
	if err != nil {
		s.fail(w, err, "load avatar")
		return
	}
	defer closeWithLog(rc, "avatar", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, no-cache")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write avatar failed", "error", err)
	}
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("close failed", "resource", label, "error", err)
	}
}
