package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"conspect/internal/config"
	"conspect/internal/services"
)

// AudioKey returns the object key for a task's intermediate audio upload.
func AudioKey(taskID string) string {
	return path.Join("temp", taskID, "audio.wav")
}

// DocumentKey returns the object key for a task's final document.
func DocumentKey(taskID string) string {
	return path.Join("pdfs", taskID+".pdf")
}

// Client stores pipeline artifacts in an S3-compatible bucket.
type Client struct {
	api      *minio.Client
	endpoint string
	bucket   string
	useSSL   bool
}

// NewClient constructs an artifact store client from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Storage.Endpoint)
	bucket := strings.TrimSpace(cfg.Storage.Bucket)
	if endpoint == "" {
		return nil, fmt.Errorf("artifact store: endpoint is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("artifact store: bucket is required")
	}

	api, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
		Region: cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact store: init client: %w", err)
	}

	return &Client{
		api:      api,
		endpoint: endpoint,
		bucket:   bucket,
		useSSL:   cfg.Storage.UseSSL,
	}, nil
}

// Upload stores the local file under key and returns the object URI.
func (c *Client) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := c.api.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeForKey(key),
	})
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "put object",
			fmt.Sprintf("store %q", key), err)
	}
	return c.ObjectURI(key), nil
}

// Remove deletes the object under key. Missing objects are not an error.
func (c *Client) Remove(ctx context.Context, key string) error {
	err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("artifact store: remove %q: %w", key, err)
	}
	return nil
}

// PresignedGetURL returns a time-limited download URL for the object.
func (c *Client) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = time.Hour
	}
	signed, err := c.api.PresignedGetObject(ctx, c.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("artifact store: presign %q: %w", key, err)
	}
	return signed.String(), nil
}

// ObjectURI returns the canonical https URI for an object key. The
// transcription API reads the intermediate audio through this URI.
func (c *Client) ObjectURI(key string) string {
	scheme := "https"
	if !c.useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.endpoint, c.bucket, key)
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".wav":
		return "audio/wav"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
