package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore persists objects on disk; each bucket is a sub-directory of the
// base directory.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, publicBaseURL string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Put copies from r into bucket/objectPath and returns the stored path.
func (s *LocalStore) Put(ctx context.Context, bucket, objectPath string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, cleaned, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	return cleaned, nil
}

// Get opens bucket/objectPath for reading.
func (s *LocalStore) Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	full, cleaned, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("open object: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	info := ObjectInfo{
		Bucket:      bucket,
		Path:        cleaned,
		Size:        stat.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(cleaned)),
		ModTime:     stat.ModTime(),
	}
	if info.ContentType == "" {
		info.ContentType = "application/octet-stream"
	}
	return file, info, nil
}

// Remove deletes bucket/objectPath if present.
func (s *LocalStore) Remove(ctx context.Context, bucket, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, _, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL joins the configured public base with bucket and path.
func (s *LocalStore) PublicURL(bucket, objectPath string) string {
	return publicURL(s.publicBaseURL, bucket, objectPath)
}

// Root exposes the base directory so the router can serve public buckets.
func (s *LocalStore) Root(bucket string) string {
	return filepath.Join(s.baseDir, bucket)
}

func (s *LocalStore) resolve(bucket, objectPath string) (string, string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\.`) {
		return "", "", fmt.Errorf("invalid bucket %q", bucket)
	}
	cleaned, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(cleaned)), cleaned, nil
}

func publicURL(base, bucket, objectPath string) string {
	segments := strings.Split(strings.TrimPrefix(objectPath, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", base, url.PathEscape(bucket), strings.Join(segments, "/"))
}
