package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeTypeRoundTrip(t *testing.T) {
	for _, mt := range []string{"image/png", "image/jpeg", "image/webp", "application/json", "text/csv"} {
		assert.Equal(t, mt, ExtToMimeType("x/y"+MimeTypeToExt(mt)), mt)
	}
	assert.Equal(t, "image/jpeg", ExtToMimeType("photos/a.JPEG"))
	assert.Equal(t, "application/octet-stream", ExtToMimeType("noext"))
}
