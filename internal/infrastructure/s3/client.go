package s3infra

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/domain"
)

// commitMessageKey is the object metadata key carrying the write's description.
const commitMessageKey = "commit-message"

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store is the content store for rendered releases and their JSON mirrors.
type Store struct {
	client API
	bucket string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// NewStore creates a Store with the given S3 client and bucket name.
func NewStore(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// PutFile decodes base64Content and writes it under filePath. The commit
// message is kept as object metadata so writes stay auditable.
func (s *Store) PutFile(ctx context.Context, filePath, base64Content, commitMessage string) error {
	decoded, err := base64.StdEncoding.DecodeString(base64Content)
	if err != nil {
		return fmt.Errorf("decode base64: %w", domain.ErrBadRequest)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(filePath),
		Body:        bytes.NewReader(decoded),
		ContentType: aws.String(detectContentType(filePath)),
		Metadata:    map[string]string{commitMessageKey: commitMessage},
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %v: %w", filePath, err, domain.ErrUpstream)
	}
	return nil
}

// URL returns the object location for filePath.
func (s *Store) URL(filePath string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, filePath)
}

func detectContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// NopStore accepts every write and only logs it. Used when no bucket is configured.
type NopStore struct{}

func (NopStore) PutFile(_ context.Context, filePath, _ string, commitMessage string) error {
	slog.Info("content store disabled, write skipped", "path", filePath, "message", commitMessage)
	return nil
}
