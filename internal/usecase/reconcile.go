package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/ports"
)

// Reconciler brings the recordings directory and the catalog back in
// agreement after a crash or a failed insert or delete.
type Reconciler struct {
	recordings ports.RecordingStore
	files      ports.FileStore
	deletions  ports.DeletionQueue
	prober     ports.DurationProber
	catalog    *Catalog
	logger     *zap.Logger
	minAge     time.Duration
	now        func() time.Time
}

func NewReconciler(
	recordings ports.RecordingStore,
	files ports.FileStore,
	deletions ports.DeletionQueue,
	prober ports.DurationProber,
	catalog *Catalog,
	logger *zap.Logger,
	minAge time.Duration,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		recordings: recordings,
		files:      files,
		deletions:  deletions,
		prober:     prober,
		catalog:    catalog,
		logger:     logger.Named("reconcile"),
		minAge:     minAge,
		now:        time.Now,
	}
}

// Sweep retries queued file deletions, adopts audio files that have no
// catalog entry and reports entries whose file is gone. Files younger
// than the minimum age are skipped since a capture may still own them.
func (r *Reconciler) Sweep(ctx context.Context) (domain.ReconcileReport, error) {
	var report domain.ReconcileReport

	pending, err := r.deletions.Pending(ctx)
	if err != nil {
		return report, storeError(err)
	}
	stillQueued := make(map[string]struct{})
	for _, name := range pending {
		if err := r.files.Remove(name); err != nil {
			stillQueued[name] = struct{}{}
			r.logger.Warn("queued file delete failed again", zap.String("filename", name), zap.Error(err))
			if qErr := r.deletions.Enqueue(ctx, name); qErr != nil {
				return report, storeError(qErr)
			}
			report.DeletesPending++
			continue
		}
		if err := r.deletions.Clear(ctx, name); err != nil {
			return report, storeError(err)
		}
		report.DeletesRetried++
	}

	recs, err := r.recordings.List(ctx)
	if err != nil {
		return report, storeError(err)
	}
	known := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		known[rec.Filename] = struct{}{}
	}

	files, err := r.files.List()
	if err != nil {
		return report, err
	}
	present := make(map[string]struct{}, len(files))
	cutoff := r.now().Add(-r.minAge)
	for _, file := range files {
		present[file.Name] = struct{}{}
		if _, ok := known[file.Name]; ok {
			continue
		}
		if _, ok := stillQueued[file.Name]; ok {
			continue
		}
		if file.ModTime.After(cutoff) {
			continue
		}
		rec, err := r.adopt(ctx, file)
		if err != nil {
			return report, err
		}
		report.Adopted = append(report.Adopted, rec)
	}

	for _, rec := range recs {
		if _, ok := present[rec.Filename]; !ok {
			report.MissingFiles = append(report.MissingFiles, rec)
		}
	}

	r.logger.Info("reconciliation finished",
		zap.Int("adopted", len(report.Adopted)),
		zap.Int("deletes_retried", report.DeletesRetried),
		zap.Int("deletes_pending", report.DeletesPending),
		zap.Int("missing_files", len(report.MissingFiles)),
	)
	return report, nil
}

func (r *Reconciler) adopt(ctx context.Context, file domain.StoredFile) (domain.Recording, error) {
	var duration time.Duration
	if r.prober != nil {
		path, err := r.files.Resolve(file.Name)
		if err == nil {
			duration, err = r.prober.Duration(ctx, path)
		}
		if err != nil {
			r.logger.Warn("could not probe orphaned recording", zap.String("filename", file.Name), zap.Error(err))
			duration = 0
		}
	}
	rec, err := r.catalog.Adopt(ctx, file.Name, duration, file.ModTime)
	if err != nil {
		return domain.Recording{}, err
	}
	r.logger.Info("adopted orphaned recording", zap.String("filename", file.Name), zap.String("id", rec.ID))
	return rec, nil
}
