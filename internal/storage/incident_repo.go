package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rightskeeper/internal/domain"
)

const incidentColumns = "id, title, occurred_at, location, notes, officer_info, agency, last_edited_at"

// IncidentRepo provides methods for incident operations.
// It implements ports.IncidentStore.
type IncidentRepo struct {
	db *sql.DB
}

// NewIncidentRepo creates a new IncidentRepo.
func NewIncidentRepo(db *sql.DB) *IncidentRepo {
	return &IncidentRepo{db: db}
}

func (r *IncidentRepo) Insert(ctx context.Context, incident *domain.Incident) error {
	if err := checkIncidentTimes(*incident); err != nil {
		return err
	}
	if incident.ID == "" {
		incident.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO incidents ("+incidentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		incident.ID, incident.Title, toUnix(incident.Date), incident.Location, incident.Notes,
		incident.OfficerInfo, incident.Agency, toUnix(incident.LastEditedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

func (r *IncidentRepo) Get(ctx context.Context, id string) (domain.Incident, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+incidentColumns+" FROM incidents WHERE id = ?", id)
	incident, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Incident{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Incident{}, fmt.Errorf("failed to query incident: %w", err)
	}
	return incident, nil
}

func (r *IncidentRepo) Update(ctx context.Context, incident domain.Incident) error {
	if err := checkIncidentTimes(incident); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE incidents SET title = ?, occurred_at = ?, location = ?, notes = ?,
		 officer_info = ?, agency = ?, last_edited_at = ? WHERE id = ?`,
		incident.Title, toUnix(incident.Date), incident.Location, incident.Notes,
		incident.OfficerInfo, incident.Agency, toUnix(incident.LastEditedAt), incident.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the incident; the foreign key detaches its recordings.
func (r *IncidentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM incidents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns incidents newest first. Search is a literal substring match
// over title or notes that ignores case, Unicode letters included.
func (r *IncidentRepo) List(ctx context.Context, filter domain.IncidentFilter) ([]domain.Incident, error) {
	query := "SELECT " + incidentColumns + " FROM incidents"
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		query += " WHERE instr(fold(title), fold(?)) > 0 OR instr(fold(notes), fold(?)) > 0"
		args = append(args, search, search)
	}
	query += " ORDER BY occurred_at DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var incidents []domain.Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}
	return incidents, nil
}

func scanIncident(row rowScanner) (domain.Incident, error) {
	var (
		incident   domain.Incident
		occurredAt int64
		lastEdited int64
	)
	err := row.Scan(&incident.ID, &incident.Title, &occurredAt, &incident.Location, &incident.Notes,
		&incident.OfficerInfo, &incident.Agency, &lastEdited)
	if err != nil {
		return domain.Incident{}, err
	}
	incident.Date = fromUnix(occurredAt)
	incident.LastEditedAt = fromUnix(lastEdited)
	return incident, nil
}

func checkIncidentTimes(incident domain.Incident) error {
	if err := checkStorable("date", incident.Date); err != nil {
		return err
	}
	return checkStorable("lastEditedAt", incident.LastEditedAt)
}
