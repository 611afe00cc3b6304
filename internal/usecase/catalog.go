package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/ports"
)

// Catalog is the persisted list of recordings and their backing files.
type Catalog struct {
	recordings ports.RecordingStore
	files      ports.FileStore
	deletions  ports.DeletionQueue
	logger     *zap.Logger
	now        func() time.Time
}

func NewCatalog(
	recordings ports.RecordingStore,
	files ports.FileStore,
	deletions ports.DeletionQueue,
	logger *zap.Logger,
) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		recordings: recordings,
		files:      files,
		deletions:  deletions,
		logger:     logger.Named("catalog"),
		now:        time.Now,
	}
}

// Create records a finished capture.
func (c *Catalog) Create(ctx context.Context, filename string, duration time.Duration) (domain.Recording, error) {
	return c.Adopt(ctx, filename, duration, c.now())
}

// Adopt records an existing file with an explicit creation time.
func (c *Catalog) Adopt(ctx context.Context, filename string, duration time.Duration, createdAt time.Time) (domain.Recording, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.Recording{}, &domain.ValidationError{Field: "filename", Message: "is required"}
	}
	if duration < 0 {
		return domain.Recording{}, &domain.ValidationError{Field: "duration", Message: "must not be negative"}
	}
	if _, err := c.files.Resolve(filename); err != nil {
		return domain.Recording{}, err
	}

	rec := domain.Recording{
		Filename:  filename,
		Duration:  duration,
		CreatedAt: createdAt,
	}
	if err := c.recordings.Insert(ctx, &rec); err != nil {
		return domain.Recording{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return rec, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (domain.Recording, error) {
	rec, err := c.recordings.Get(ctx, id)
	if err != nil {
		return domain.Recording{}, storeError(err)
	}
	return rec, nil
}

// List returns every recording, newest first.
func (c *Catalog) List(ctx context.Context) ([]domain.Recording, error) {
	recs, err := c.recordings.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return recs, nil
}

// Rename sets the custom name; a blank name restores the default.
func (c *Catalog) Rename(ctx context.Context, id string, name string) (domain.Recording, error) {
	name = strings.TrimSpace(name)
	var custom *string
	if name != "" {
		if err := validate.Var(name, "max=200"); err != nil {
			return domain.Recording{}, &domain.ValidationError{Field: "name", Message: "must be at most 200 characters"}
		}
		custom = &name
	}
	if err := c.recordings.Rename(ctx, id, custom); err != nil {
		return domain.Recording{}, storeError(err)
	}
	return c.Get(ctx, id)
}

// Delete removes the backing file and the catalog entry. A file that
// cannot be removed is queued for the next reconciliation. If it can be
// neither removed nor queued the entry is kept and the queue error returned,
// so the file is never left on disk without a row or a pending deletion.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	rec, err := c.recordings.Get(ctx, id)
	if err != nil {
		return storeError(err)
	}

	if err := c.files.Remove(rec.Filename); err != nil {
		c.logger.Warn("recording file delete failed, queued for retry", zap.String("filename", rec.Filename), zap.Error(err))
		if qErr := c.deletions.Enqueue(ctx, rec.Filename); qErr != nil {
			c.logger.Error("failed to queue file deletion, keeping recording", zap.String("filename", rec.Filename), zap.Error(qErr))
			return storeError(qErr)
		}
	}

	if err := c.recordings.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	c.logger.Info("recording deleted", zap.String("id", id), zap.String("filename", rec.Filename))
	return nil
}

// storeError keeps ErrNotFound visible and marks everything else as a
// persistence failure.
func storeError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}
