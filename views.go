package main

import (
	"time"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/report"
	"rightskeeper/internal/usecase"
)

// stateUnavailable is reported when the backend failed to start.
const stateUnavailable = "unavailable"

type StatusView struct {
	State           string    `json:"state"`
	Active          bool      `json:"active"`
	ElapsedMs       int64     `json:"elapsedMs"`
	Levels          []float64 `json:"levels"`
	PlayingID       string    `json:"playingId,omitempty"`
	LastRecordingID string    `json:"lastRecordingId,omitempty"`
	Message         string    `json:"message,omitempty"`
}

type RecordingView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	DurationMs int64     `json:"durationMs"`
	Duration   string    `json:"duration"`
	CreatedAt  time.Time `json:"createdAt"`
	Renamed    bool      `json:"renamed"`
	IncidentID string    `json:"incidentId,omitempty"`
}

type StopView struct {
	Saved     bool          `json:"saved"`
	Recording RecordingView `json:"recording"`
}

type IncidentView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	Notes        string    `json:"notes"`
	OfficerInfo  string    `json:"officerInfo"`
	Agency       string    `json:"agency"`
	LastEditedAt time.Time `json:"lastEditedAt"`
}

// IncidentDetail is an incident together with its attached recordings.
type IncidentDetail struct {
	Incident   IncidentView    `json:"incident"`
	Recordings []RecordingView `json:"recordings"`
}

// IncidentForm is the editable part of an incident as sent by the UI.
// A zero date means "now" on create and "unchanged" on update.
type IncidentForm struct {
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Notes       string    `json:"notes"`
	OfficerInfo string    `json:"officerInfo"`
	Agency      string    `json:"agency"`
}

func (f IncidentForm) input() usecase.IncidentInput {
	return usecase.IncidentInput{
		Title:       f.Title,
		Date:        f.Date,
		Location:    f.Location,
		Notes:       f.Notes,
		OfficerInfo: f.OfficerInfo,
		Agency:      f.Agency,
	}
}

func statusView(status domain.CaptureStatus) StatusView {
	levels := status.Levels
	if levels == nil {
		levels = []float64{}
	}
	return StatusView{
		State:           string(status.State),
		Active:          status.Active,
		ElapsedMs:       status.Elapsed.Milliseconds(),
		Levels:          levels,
		PlayingID:       status.PlayingID,
		LastRecordingID: status.LastRecordingID,
	}
}

func recordingView(rec domain.Recording) RecordingView {
	view := RecordingView{
		ID:         rec.ID,
		Name:       rec.DisplayName(),
		Filename:   rec.Filename,
		DurationMs: rec.Duration.Milliseconds(),
		Duration:   report.FormatDuration(rec.Duration),
		CreatedAt:  rec.CreatedAt,
		Renamed:    rec.CustomName != nil,
	}
	if rec.IncidentID != nil {
		view.IncidentID = *rec.IncidentID
	}
	return view
}

func recordingViews(recs []domain.Recording) []RecordingView {
	out := make([]RecordingView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordingView(rec))
	}
	return out
}

func incidentView(incident domain.Incident) IncidentView {
	return IncidentView{
		ID:           incident.ID,
		Title:        incident.Title,
		Date:         incident.Date,
		Location:     incident.Location,
		Notes:        incident.Notes,
		OfficerInfo:  incident.OfficerInfo,
		Agency:       incident.Agency,
		LastEditedAt: incident.LastEditedAt,
	}
}
