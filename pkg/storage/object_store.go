package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Get when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket      string
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ObjectStore is the bucket/path blob contract used for listing files and
// preview images.
type ObjectStore interface {
	Put(ctx context.Context, bucket, objectPath string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, bucket, objectPath string) (io.ReadCloser, ObjectInfo, error)
	Remove(ctx context.Context, bucket, objectPath string) error
	PublicURL(bucket, objectPath string) string
}

// ObjectPath namespaces an upload under its owner:
// <userID>/<unix>_<random>.<ext>. The original name only contributes its extension.
func ObjectPath(userID, filename string, now time.Time) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id required")
	}
	suffix, err := randomSuffix(6)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if len(ext) > 10 || strings.ContainsAny(ext, " /") {
		ext = ""
	}
	return fmt.Sprintf("%s/%d_%s%s", userID, now.Unix(), suffix, ext), nil
}

func cleanObjectPath(objectPath string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(objectPath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return cleaned, nil
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate object suffix: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
