package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3-backed Archiver.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for S3-compatible services (MinIO, LocalStack)
	Prefix   string
}

// S3Archiver stores approval webhook bodies in S3, keyed by id and content
// hash, so duplicate deliveries for the same approval don't re-upload.
// Adapted from pkg/artifacts.S3Store's content-addressed layout.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("archive: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, id string, body []byte) (string, error) {
	sum := sha256.Sum256(body)
	key := fmt.Sprintf("%s%s/%s.json", a.prefix, id, hex.EncodeToString(sum[:]))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}
