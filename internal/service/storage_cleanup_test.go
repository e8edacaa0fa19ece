package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/pkg/jobs"
	"github.com/noah-isme/edumarket-api/pkg/storage"
)

type removerStub struct {
	removed []string
	fail    map[string]error
}

func (r *removerStub) Remove(ctx context.Context, bucket, objectPath string) error {
	if err, ok := r.fail[objectPath]; ok {
		return err
	}
	r.removed = append(r.removed, bucket+"/"+objectPath)
	return nil
}

func TestStorageCleanerRemovesAllObjects(t *testing.T) {
	store := &removerStub{fail: map[string]error{"u1/gone.png": storage.ErrObjectNotFound}}
	cleaner := NewStorageCleaner(store, nil, nil, 3)

	err := cleaner.Handle(context.Background(), jobs.Job{ID: "j1", Type: JobTypeStorageCleanup, Payload: []ObjectRef{
		{Bucket: "files", Path: "u1/1_abc.pdf"},
		{Bucket: "previews", Path: "u1/gone.png"},
		{Bucket: "previews", Path: ""},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"files/u1/1_abc.pdf"}, store.removed)
}

func TestStorageCleanerReturnsErrorForRetry(t *testing.T) {
	store := &removerStub{fail: map[string]error{"u1/a.pdf": errors.New("minio unavailable")}}
	metrics := NewMetricsService()
	cleaner := NewStorageCleaner(store, metrics, nil, 1)

	err := cleaner.Handle(context.Background(), jobs.Job{Payload: []ObjectRef{{Bucket: "files", Path: "u1/a.pdf"}, {Bucket: "previews", Path: "u1/b.png"}}, Attempt: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "files/u1/a.pdf")
	assert.Equal(t, []string{"previews/u1/b.png"}, store.removed)
	assert.Contains(t, scrape(t, metrics), "storage_cleanup_failures_total 1")
}

func TestStorageCleanerIgnoresUnknownPayload(t *testing.T) {
	cleaner := NewStorageCleaner(&removerStub{}, nil, nil, 0)
	assert.NoError(t, cleaner.Handle(context.Background(), jobs.Job{Payload: "nope"}))
}
