package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
)

// ErrObjectNotFound is returned by GetJSON when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Archive stores JSON documents in one bucket.
type Archive struct {
	client Client
	bucket string
	prefix string

	mu      sync.Mutex
	ensured bool
}

// NewArchive creates an archive writing under prefix in bucket.
func NewArchive(client Client, bucket, prefix string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key of a run report: <prefix>/<yyyy>/<mm>/<id>.json.
func (a *Archive) Key(runID string, at time.Time) string {
	at = at.UTC()
	return path.Join(a.prefix, fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), runID+".json")
}

// PutJSON uploads v as an indented JSON document, creating the bucket on first use.
func (a *Archive) PutJSON(ctx context.Context, key string, v any) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// GetJSON downloads key and decodes it into v.
func (a *Archive) GetJSON(ctx context.Context, key string, v any) error {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return a.notFound(key, err)
	}
	defer obj.Close()

	// minio reports a missing key on the first read
	if err := json.NewDecoder(obj).Decode(v); err != nil {
		return a.notFound(key, err)
	}
	return nil
}

func (a *Archive) notFound(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return fmt.Errorf("downloading %s: %w", key, err)
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ensured {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", a.bucket, err)
		}
	}

	a.ensured = true
	return nil
}
