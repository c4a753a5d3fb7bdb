//go:build gcp

package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSConfig configures a GCS-backed Archiver.
type GCSConfig struct {
	Bucket string
	Prefix string
}

// GCSArchiver mirrors S3Archiver against Google Cloud Storage. Gated behind
// the "gcp" build tag, matching pkg/artifacts/gcs_store.go, since most
// deployments only need one cloud-storage backend compiled in.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSArchiver(ctx context.Context, cfg GCSConfig) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: create GCS client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *GCSArchiver) Archive(ctx context.Context, id string, body []byte) (string, error) {
	sum := sha256.Sum256(body)
	objectPath := fmt.Sprintf("%s%s/%s.json", a.prefix, id, hex.EncodeToString(sum[:]))
	obj := a.client.Bucket(a.bucket).Object(objectPath)
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("archive: gcs write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: gcs close %s: %w", objectPath, err)
	}
	return "gs://" + a.bucket + "/" + objectPath, nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}
