package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/pkg/config"
)

// MinioStore keeps objects in an S3-compatible service.
type MinioStore struct {
	client        *minio.Client
	publicBaseURL string
	logger        *zap.Logger
}

// NewMinioStore connects to the endpoint and makes sure every bucket exists.
// Only the previews bucket is readable anonymously; listing files stay private.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
		Region: cfg.Minio.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.Minio.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, client.EndpointURL().Host)
	}
	store := &MinioStore{client: client, publicBaseURL: base, logger: logger}

	for _, bucket := range []string{cfg.FilesBucket, cfg.PreviewsBucket} {
		if err := store.ensureBucket(ctx, bucket, cfg.Minio.Region); err != nil {
			return nil, err
		}
	}
	policy, err := publicReadPolicy(cfg.PreviewsBucket)
	if err != nil {
		return nil, err
	}
	if err := client.SetBucketPolicy(ctx, cfg.PreviewsBucket, policy); err != nil {
		return nil, fmt.Errorf("set policy on bucket %s: %w", cfg.PreviewsBucket, err)
	}
	return store, nil
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

// publicReadPolicy allows anonymous GetObject on every key of bucket, nothing else.
func publicReadPolicy(bucket string) (string, error) {
	doc := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode bucket policy: %w", err)
	}
	return string(raw), nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, bucket, region string) error {
	err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err == nil {
		s.logger.Info("bucket created", zap.String("bucket", bucket))
		return nil
	}
	exists, existsErr := s.client.BucketExists(ctx, bucket)
	if existsErr == nil && exists {
		return nil
	}
	return fmt.Errorf("create bucket %s: %w", bucket, err)
}

// Put uploads r. A negative size streams with multipart upload.
func (s *MinioStore) Put(ctx context.Context, bucket, objectPath string, r io.Reader, size int64, contentType string) (string, error) {
	cleaned, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	if size <= 0 {
		size = -1
	}
	if _, err := s.client.PutObject(ctx, bucket, cleaned, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return cleaned, nil
}

// Get streams an object. Stat runs first so a missing key maps to ErrObjectNotFound.
func (s *MinioStore) Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, ObjectInfo, error) {
	cleaned, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	stat, err := s.client.StatObject(ctx, bucket, cleaned, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	obj, err := s.client.GetObject(ctx, bucket, cleaned, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object: %w", err)
	}
	return obj, ObjectInfo{
		Bucket:      bucket,
		Path:        cleaned,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}

// Remove deletes an object; removing a missing key is not an error.
func (s *MinioStore) Remove(ctx context.Context, bucket, objectPath string) error {
	cleaned, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, bucket, cleaned, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PublicURL returns the direct object URL on the public endpoint.
func (s *MinioStore) PublicURL(bucket, objectPath string) string {
	return publicURL(s.publicBaseURL, bucket, objectPath)
}
