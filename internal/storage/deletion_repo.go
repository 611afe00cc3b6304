package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DeletionRepo tracks recording files whose removal failed.
// It implements ports.DeletionQueue.
type DeletionRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewDeletionRepo(db *sql.DB) *DeletionRepo {
	return &DeletionRepo{db: db, now: time.Now}
}

// Enqueue records a filename; re-enqueueing bumps the attempt counter.
func (r *DeletionRepo) Enqueue(ctx context.Context, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_file_deletions (filename, queued_at, attempts) VALUES (?, ?, 1)
		 ON CONFLICT (filename) DO UPDATE SET attempts = attempts + 1`,
		filename, toUnix(r.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to queue file deletion: %w", err)
	}
	return nil
}

func (r *DeletionRepo) Pending(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT filename FROM pending_file_deletions ORDER BY queued_at ASC, filename ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query pending deletions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan pending deletion: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *DeletionRepo) Clear(ctx context.Context, filename string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM pending_file_deletions WHERE filename = ?", filename); err != nil {
		return fmt.Errorf("failed to clear pending deletion: %w", err)
	}
	return nil
}
