package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/ports"
	"rightskeeper/internal/report"
)

// DefaultIncidentTitle replaces an empty incident title.
const DefaultIncidentTitle = "Untitled Incident"

// IncidentInput carries user-editable incident fields.
type IncidentInput struct {
	Title       string
	Date        time.Time
	Location    string
	Notes       string
	OfficerInfo string
	Agency      string
}

// Incidents manages incident reports and their attached recordings.
type Incidents struct {
	incidents  ports.IncidentStore
	recordings ports.RecordingStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewIncidents(incidents ports.IncidentStore, recordings ports.RecordingStore, logger *zap.Logger) *Incidents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Incidents{
		incidents:  incidents,
		recordings: recordings,
		logger:     logger.Named("incidents"),
		now:        time.Now,
	}
}

// Create stores a new incident. A zero date means now.
func (s *Incidents) Create(ctx context.Context, input IncidentInput) (domain.Incident, error) {
	incident := domain.Incident{
		Title:       input.Title,
		Date:        input.Date,
		Location:    input.Location,
		Notes:       input.Notes,
		OfficerInfo: input.OfficerInfo,
		Agency:      input.Agency,
	}
	if incident.Date.IsZero() {
		incident.Date = s.now()
	}
	normalizeIncident(&incident)
	incident.LastEditedAt = incident.Date

	if err := validationError(validate.Struct(incident)); err != nil {
		return domain.Incident{}, err
	}
	if err := checkIncidentDate(incident.Date); err != nil {
		return domain.Incident{}, err
	}
	if err := s.incidents.Insert(ctx, &incident); err != nil {
		return domain.Incident{}, storeError(err)
	}
	s.logger.Info("incident created", zap.String("id", incident.ID))
	return incident, nil
}

// Edit applies mutate to a stored incident and saves it. The last-edited
// time always advances, even when mutate changes nothing.
func (s *Incidents) Edit(ctx context.Context, id string, mutate func(*domain.Incident)) (domain.Incident, error) {
	current, err := s.incidents.Get(ctx, id)
	if err != nil {
		return domain.Incident{}, storeError(err)
	}

	edited := current
	if mutate != nil {
		mutate(&edited)
	}
	edited.ID = current.ID
	if edited.Date.IsZero() {
		edited.Date = current.Date
	}
	normalizeIncident(&edited)
	edited.LastEditedAt = latest(s.now(), current.LastEditedAt, edited.Date)

	if err := validationError(validate.Struct(edited)); err != nil {
		return domain.Incident{}, err
	}
	if err := checkIncidentDate(edited.Date); err != nil {
		return domain.Incident{}, err
	}
	if err := s.incidents.Update(ctx, edited); err != nil {
		return domain.Incident{}, storeError(err)
	}
	return edited, nil
}

// Update replaces every editable field with input.
func (s *Incidents) Update(ctx context.Context, id string, input IncidentInput) (domain.Incident, error) {
	return s.Edit(ctx, id, func(incident *domain.Incident) {
		incident.Title = input.Title
		incident.Date = input.Date
		incident.Location = input.Location
		incident.Notes = input.Notes
		incident.OfficerInfo = input.OfficerInfo
		incident.Agency = input.Agency
	})
}

func (s *Incidents) Get(ctx context.Context, id string) (domain.Incident, error) {
	incident, err := s.incidents.Get(ctx, id)
	if err != nil {
		return domain.Incident{}, storeError(err)
	}
	return incident, nil
}

// List returns incidents by date, newest first, optionally filtered by a
// case-insensitive search over title and notes.
func (s *Incidents) List(ctx context.Context, search string) ([]domain.Incident, error) {
	incidents, err := s.incidents.List(ctx, domain.IncidentFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		return nil, storeError(err)
	}
	return incidents, nil
}

// Delete removes an incident. Its recordings are detached and kept.
func (s *Incidents) Delete(ctx context.Context, id string) error {
	if err := s.incidents.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.logger.Info("incident deleted", zap.String("id", id))
	return nil
}

// AttachRecording links a recording to an incident, moving it from any
// incident it was attached to before.
func (s *Incidents) AttachRecording(ctx context.Context, incidentID string, recordingID string) error {
	if _, err := s.incidents.Get(ctx, incidentID); err != nil {
		return storeError(err)
	}
	if err := s.recordings.Link(ctx, recordingID, incidentID); err != nil {
		return storeError(err)
	}
	return nil
}

func (s *Incidents) DetachRecording(ctx context.Context, recordingID string) error {
	if err := s.recordings.Unlink(ctx, recordingID); err != nil {
		return storeError(err)
	}
	return nil
}

// Recordings lists the recordings attached to an incident.
func (s *Incidents) Recordings(ctx context.Context, incidentID string) ([]domain.Recording, error) {
	recs, err := s.recordings.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, storeError(err)
	}
	return recs, nil
}

// Export renders the incident report to w and returns the suggested file name.
func (s *Incidents) Export(ctx context.Context, id string, format report.Format, w io.Writer) (string, error) {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	recs, err := s.Recordings(ctx, id)
	if err != nil {
		return "", err
	}

	doc := report.FromIncident(incident, recs, s.now())
	if err := report.Render(w, doc, format); err != nil {
		return "", fmt.Errorf("failed to render incident report: %w", err)
	}
	return report.FileName(incident, format), nil
}

func normalizeIncident(incident *domain.Incident) {
	incident.Title = strings.TrimSpace(incident.Title)
	if incident.Title == "" {
		incident.Title = DefaultIncidentTitle
	}
	incident.Location = strings.TrimSpace(incident.Location)
	incident.OfficerInfo = strings.TrimSpace(incident.OfficerInfo)
	incident.Agency = strings.TrimSpace(incident.Agency)
}

func latest(first time.Time, rest ...time.Time) time.Time {
	out := first
	for _, t := range rest {
		if t.After(out) {
			out = t
		}
	}
	return out
}
