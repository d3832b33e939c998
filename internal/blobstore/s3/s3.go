// Package s3 stores blobs in an S3-compatible bucket (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/vbonduro/toolkeepr/internal/blobstore"
)

// Store keeps every blob in a single bucket; keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

type Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional; set for MinIO and other S3-compatible servers
	// AccessKeyID and SecretAccessKey are optional; the default credential
	// chain is used when they are empty.
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := strings.Trim(prefix, "/") + "/" + uuid.NewString() + blobstore.MimeTypeToExt(mimeType)
	if err := s.Put(ctx, key, r, blobstore.PutOptions{ContentType: mimeType}); err != nil {
		return "", err
	}
	return key, nil
}

// Put uploads r to key. Encrypt requests SSE-S3 (AES256) on the object.
// A body that cannot seek is buffered first: the SDK has to rewind the body
// to sign and size it when the endpoint is plain HTTP.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blobstore.PutOptions) error {
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		body = bytes.NewReader(data)
	}
	input := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: body}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.Encrypt {
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)})
	if err != nil {
		if isNotFound(err) {
			return nil, "", blobstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get %s: %w", storageKey, err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = blobstore.ExtToMimeType(storageKey)
	}
	return out.Body, contentType, nil
}

// Delete removes the object. S3 deletes are silent about missing keys, so a
// HEAD runs first to report ErrNotFound like the local store does.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)}); err != nil {
		if isNotFound(err) {
			return blobstore.ErrNotFound
		}
		return fmt.Errorf("failed to head %s: %w", storageKey, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(storageKey)}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", storageKey, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]blobstore.Info, error) {
	var infos []blobstore.Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket), Prefix: aws.String(prefix), ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			infos = append(infos, blobstore.Info{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
