package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/pkg/jobs"
	"github.com/noah-isme/edumarket-api/pkg/storage"
)

// JobTypeStorageCleanup removes the objects of a deleted listing.
const JobTypeStorageCleanup = "storage.cleanup"

// ObjectRef addresses one stored object.
type ObjectRef struct {
	Bucket string
	Path   string
}

type objectRemover interface {
	Remove(ctx context.Context, bucket, objectPath string) error
}

// StorageCleaner is the queue handler behind JobTypeStorageCleanup.
type StorageCleaner struct {
	store      objectRemover
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewStorageCleaner constructs a cleaner. maxRetries must match the queue so
// the last failed attempt can be counted.
func NewStorageCleaner(store objectRemover, metrics *MetricsService, logger *zap.Logger, maxRetries int) *StorageCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageCleaner{store: store, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle removes every object in the job payload. Missing objects count as removed.
func (c *StorageCleaner) Handle(ctx context.Context, job jobs.Job) error {
	refs, ok := job.Payload.([]ObjectRef)
	if !ok {
		c.logger.Error("unexpected cleanup payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := c.Remove(ctx, refs); err != nil {
		if job.Attempt >= c.maxRetries {
			c.metrics.RecordCleanupFailure()
		}
		return err
	}
	return nil
}

// Remove deletes refs synchronously and joins the failures.
func (c *StorageCleaner) Remove(ctx context.Context, refs []ObjectRef) error {
	var errs []error
	for _, ref := range refs {
		if ref.Path == "" {
			continue
		}
		if err := c.store.Remove(ctx, ref.Bucket, ref.Path); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			errs = append(errs, fmt.Errorf("remove %s/%s: %w", ref.Bucket, ref.Path, err))
		}
	}
	return errors.Join(errs...)
}
