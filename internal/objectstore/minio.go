package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"lectern/internal/config"
)

// MinioClient implements Client against any S3-compatible endpoint.
type MinioClient struct {
	api    *minio.Client
	bucket string
}

// NewMinio constructs a client from object store configuration.
func NewMinio(cfg config.ObjectStore) (*MinioClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("object store endpoint required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("object store bucket required")
	}

	api, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &MinioClient{api: api, bucket: cfg.Bucket}, nil
}

func (c *MinioClient) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, &StorageError{Op: "stat", Key: key, Err: err}
	}
	return true, nil
}

func (c *MinioClient) Size(ctx context.Context, key string) (int64, error) {
	info, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, &StorageError{Op: "stat", Key: key, Err: err}
	}
	return info.Size, nil
}

func (c *MinioClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	// GetObject defers the request until the first read; surface missing
	// objects and transport errors here instead of mid-copy.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return obj, nil
}

func (c *MinioClient) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := c.api.PutObject(ctx, c.bucket, key, body, size, opts); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (c *MinioClient) Delete(ctx context.Context, key string) error {
	if err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (c *MinioClient) SignedReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := c.api.PresignedGetObject(ctx, c.bucket, key, ttl, nil)
	if err != nil {
		return "", &StorageError{Op: "presign", Key: key, Err: err}
	}
	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404
}
