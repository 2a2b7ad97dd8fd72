package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"idproof/internal/platform/config"
)

// S3Backend stores objects in Amazon S3 or any S3-compatible service
// (MinIO, R2). Objects are keyed by their content-addressed ref under a
// configurable prefix.
type S3Backend struct {
	client *s3.S3
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Backend creates an S3 storage backend from config. A custom Endpoint
// selects path-style addressing for S3-compatible services.
func NewS3Backend(cfg config.StorageConfig, log *slog.Logger) (*S3Backend, error) {
	awsCfg := aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}

	return &S3Backend{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
		log:    log,
	}, nil
}

func (b *S3Backend) Put(ctx context.Context, data []byte, mediaType string) (Ref, error) {
	ref := ComputeRef(data)
	key := b.objectKey(ref)

	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mediaType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	b.log.Debug("stored object",
		slog.String("ref", string(ref)),
		slog.String("bucket", b.bucket),
		slog.Int("size", len(data)),
	)
	return ref, nil
}

func (b *S3Backend) Get(ctx context.Context, ref Ref) ([]byte, string, error) {
	key := b.objectKey(ref)

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}

	mediaType := ""
	if result.ContentType != nil {
		mediaType = *result.ContentType
	}
	return data, mediaType, nil
}

func (b *S3Backend) objectKey(ref Ref) string {
	return path.Join(b.prefix, string(ref))
}
