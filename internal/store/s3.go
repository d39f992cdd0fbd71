package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// S3Config holds S3/MinIO connection settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Gateway implements Gateway against an S3-compatible store.
type S3Gateway struct {
	client *minio.Client
	bucket string
}

// NewS3Gateway connects to the configured S3/MinIO endpoint.
func NewS3Gateway(cfg S3Config) (*S3Gateway, error) {
	endpoint := cfg.Endpoint
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	log.Info().
		Str("endpoint", endpoint).
		Str("bucket", cfg.Bucket).
		Msg("Object store gateway initialized")

	return &S3Gateway{client: client, bucket: cfg.Bucket}, nil
}

// Get downloads the object at key. Missing keys map to ErrNotFound.
func (g *S3Gateway) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Downloaded object")
	return data, nil
}

// Put uploads data under key with the given content type.
func (g *S3Gateway) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Uploaded object")
	return nil
}
