// Package storage uploads profile images and returns their public URL.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ImageStore persists an uploaded image.
type ImageStore interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error)
}

// File is one uploaded multipart part.
type File struct {
	Filename string
	Body     io.Reader
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client        S3API
	bucket        string
	prefix        string
	publicBaseURL string
	timeout       time.Duration
}

// NewS3Store uploads under prefix/folder. publicBaseURL defaults to the
// virtual-hosted bucket URL.
func NewS3Store(client S3API, bucket, region, prefix, publicBaseURL string, timeout time.Duration) *S3Store {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &S3Store{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		timeout:       timeout,
	}
}

func (s *S3Store) Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("storage: empty upload")
	}

	key := path.Join(s.prefix, folder, uuid.New().String()+strings.ToLower(path.Ext(filename)))
	contentType := http.DetectContentType(data)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: s3 put %s: %w", key, err)
	}
	return s.publicBaseURL + "/" + key, nil
}

// DataURLStore keeps images inline as data: URLs. Used when no bucket is
// configured so local runs still show pictures.
type DataURLStore struct {
	MaxBytes int64
}

func (s DataURLStore) Upload(_ context.Context, _, _ string, body io.Reader) (string, error) {
	limit := s.MaxBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("storage: image exceeds %d bytes", limit)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("storage: empty upload")
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
