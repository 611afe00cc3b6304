package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rightskeeper/internal/domain"
)

const recordingColumns = "id, filename, duration_ns, created_at, custom_name, incident_id"

// RecordingRepo provides methods for recording operations.
// It implements ports.RecordingStore.
type RecordingRepo struct {
	db *sql.DB
}

// NewRecordingRepo creates a new RecordingRepo.
func NewRecordingRepo(db *sql.DB) *RecordingRepo {
	return &RecordingRepo{db: db}
}

// Insert stores a new recording, generating an ID when none is set.
func (r *RecordingRepo) Insert(ctx context.Context, rec *domain.Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO recordings ("+recordingColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Filename, int64(rec.Duration), toUnix(rec.CreatedAt),
		nullableString(rec.CustomName), nullableString(rec.IncidentID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recording: %w", err)
	}
	return nil
}

// Get returns a recording by ID or domain.ErrNotFound.
func (r *RecordingRepo) Get(ctx context.Context, id string) (domain.Recording, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+recordingColumns+" FROM recordings WHERE id = ?", id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Recording{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Recording{}, fmt.Errorf("failed to query recording: %w", err)
	}
	return rec, nil
}

func (r *RecordingRepo) List(ctx context.Context) ([]domain.Recording, error) {
	return r.query(ctx, "SELECT "+recordingColumns+" FROM recordings ORDER BY created_at DESC, id ASC")
}

func (r *RecordingRepo) ListByIncident(ctx context.Context, incidentID string) ([]domain.Recording, error) {
	return r.query(ctx,
		"SELECT "+recordingColumns+" FROM recordings WHERE incident_id = ? ORDER BY created_at DESC, id ASC",
		incidentID,
	)
}

// Rename sets or clears the custom display name.
func (r *RecordingRepo) Rename(ctx context.Context, id string, name *string) error {
	return r.execOne(ctx, "rename recording", "UPDATE recordings SET custom_name = ? WHERE id = ?", nullableString(name), id)
}

func (r *RecordingRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete recording", "DELETE FROM recordings WHERE id = ?", id)
}

// Link attaches the recording to an incident. A single UPDATE both sets the
// new owner and drops any previous one.
func (r *RecordingRepo) Link(ctx context.Context, recordingID string, incidentID string) error {
	return r.execOne(ctx, "link recording", "UPDATE recordings SET incident_id = ? WHERE id = ?", incidentID, recordingID)
}

func (r *RecordingRepo) Unlink(ctx context.Context, recordingID string) error {
	return r.execOne(ctx, "unlink recording", "UPDATE recordings SET incident_id = NULL WHERE id = ?", recordingID)
}

func (r *RecordingRepo) execOne(ctx context.Context, op string, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RecordingRepo) query(ctx context.Context, query string, args ...any) ([]domain.Recording, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var recordings []domain.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recordings: %w", err)
	}
	return recordings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (domain.Recording, error) {
	var (
		rec        domain.Recording
		durationNS int64
		createdAt  int64
		customName sql.NullString
		incidentID sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Filename, &durationNS, &createdAt, &customName, &incidentID); err != nil {
		return domain.Recording{}, err
	}
	rec.Duration = time.Duration(durationNS)
	rec.CreatedAt = fromUnix(createdAt)
	rec.CustomName = stringPtr(customName)
	rec.IncidentID = stringPtr(incidentID)
	return rec, nil
}
