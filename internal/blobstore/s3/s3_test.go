package s3

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
)

// fakeS3 is an in-memory subset of the S3 REST API: HEAD, GET, PUT, DELETE
// and ListObjectsV2 with one object per page.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	sse         string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req.URL.Query().Get("prefix"), req.URL.Query().Get("continuation-token")), nil
	}

	switch req.Method {
	case http.MethodHead:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, "", nil), nil
		}
		return respond(http.StatusOK, "", http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
		}), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeChunked(body)
		}
		f.objects[key] = fakeObject{
			body:        body,
			contentType: req.Header.Get("Content-Type"),
			sse:         req.Header.Get("X-Amz-Server-Side-Encryption"),
		}
		return respond(http.StatusOK, "", http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound,
				`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(obj.body)), Header: http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
		}}, nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, "", nil), nil
	}
	return respond(http.StatusNotImplemented, "", nil), nil
}

func (f *fakeS3) list(prefix, token string) *http.Response {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	if len(keys) > 1 {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%s</NextContinuationToken>", keys[0])
		keys = keys[:1]
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>",
			k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}})
}

func respond(status int, body string, h http.Header) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: h}
}

// decodeChunked strips aws-chunked framing: <hex>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeChunked(b []byte) []byte {
	var out []byte
	r := bufio.NewReader(bytes.NewReader(b))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || n == 0 {
			return out
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}

func newTestStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	return newTestStoreAt(t, "https://s3.test.local")
}

func newTestStoreAt(t *testing.T, endpoint string) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]fakeObject)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &Store{client: client, bucket: "toolkeepr"}, fake
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestS3StoreSaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	key, err := store.Save(ctx, "photos/location_3", "image/png", bytes.NewReader([]byte("png bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "photos/location_3/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	rc, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
	assert.Equal(t, "image/png", mimeType)
}

func TestS3StorePutEncrypted(t *testing.T) {
	store, fake := newTestStore(t)

	err := store.Put(context.Background(), "backups/toolkeepr-backup-1.json", strings.NewReader("{}"),
		blobstore.PutOptions{ContentType: "application/json", Encrypt: true})
	require.NoError(t, err)

	assert.Equal(t, "AES256", fake.objects["backups/toolkeepr-backup-1.json"].sse)
}

// streamOnly hides the Seek method of the wrapped reader.
type streamOnly struct{ io.Reader }

func TestS3StorePutStreamOverPlainHTTP(t *testing.T) {
	store, fake := newTestStoreAt(t, "http://minio.test.local:9000")

	body := "code,name\nD001,Cordless Drill\n"
	err := store.Put(context.Background(), "reports/rpt001/inventory.csv", streamOnly{strings.NewReader(body)},
		blobstore.PutOptions{ContentType: "text/csv"})
	require.NoError(t, err)

	obj := fake.objects["reports/rpt001/inventory.csv"]
	assert.Equal(t, body, string(obj.body))
	assert.Equal(t, "text/csv", obj.contentType)
}

func TestS3StoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.Get(context.Background(), "nope.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestS3StoreDelete(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "reports/a.csv", strings.NewReader("a,b"), blobstore.PutOptions{}))
	require.NoError(t, store.Delete(ctx, "reports/a.csv"))
	assert.Empty(t, fake.objects)

	assert.ErrorIs(t, store.Delete(ctx, "reports/a.csv"), blobstore.ErrNotFound)
}

func TestS3StoreListPaginates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"backups/3.json", "backups/1.json", "backups/2.json", "photos/x.jpg"} {
		require.NoError(t, store.Put(ctx, key, strings.NewReader("x"), blobstore.PutOptions{}))
	}

	infos, err := store.List(ctx, "backups/")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "backups/1.json", infos[0].Key)
	assert.Equal(t, "backups/3.json", infos[2].Key)
	assert.Equal(t, int64(1), infos[0].Size)
	assert.Equal(t, 2024, infos[0].LastModified.Year())
}
