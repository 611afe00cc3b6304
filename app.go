package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"rightskeeper/internal/bootstrap"
	"rightskeeper/internal/content"
	"rightskeeper/internal/domain"
	"rightskeeper/internal/report"
)

const (
	eventSession   = "rightskeeper:session"
	eventLevels    = "rightskeeper:levels"
	eventRecording = "rightskeeper:recording"
	eventError     = "rightskeeper:error"
)

// App is the Wails application root.
type App struct {
	ctx  context.Context
	emit func(ctx context.Context, name string, data ...interface{})

	services *bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.attach(services)

	if services.Config.Reconcile.OnStartup {
		if _, err := services.Reconciler.Sweep(ctx); err != nil {
			services.Logger.Warn("startup reconciliation failed", zap.Error(err))
			a.SessionError(domain.ErrorCodePersistence, err.Error())
		}
	}
	a.SessionStateChanged(domain.CaptureStateIdle, domain.SessionReasonReady)
}

func (a *App) attach(services bootstrap.Services) {
	a.services = &services
}

func (a *App) shutdown(ctx context.Context) {
	if a.services == nil {
		return
	}
	if err := a.services.Close(ctx); err != nil {
		a.services.Logger.Error("shutdown failed", zap.Error(err))
	}
}

// StartRecording begins capturing evidence audio.
func (a *App) StartRecording() (StatusView, error) {
	if err := a.requireReady(); err != nil {
		return StatusView{}, err
	}
	if err := a.services.Engine.Start(a.context()); err != nil {
		return StatusView{}, err
	}
	return a.GetStatus(), nil
}

// StopRecording ends the recording and saves it to the catalog.
func (a *App) StopRecording() (StopView, error) {
	if err := a.requireReady(); err != nil {
		return StopView{}, err
	}
	result, err := a.services.Engine.Stop(a.context())
	if err != nil {
		return StopView{}, err
	}
	return StopView{Saved: result.Saved, Recording: recordingView(result.Recording)}, nil
}

// AbortRecording discards an in-progress recording.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Engine.Abort(); err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

func (a *App) PlayRecording(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Engine.Play(a.context(), id)
}

func (a *App) StopPlayback() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Engine.StopPlayback(); err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
		return err
	}
	return nil
}

// GetStatus returns the current capture status.
func (a *App) GetStatus() StatusView {
	if a.services == nil {
		if a.bootErr != nil {
			return StatusView{State: stateUnavailable, Levels: []float64{}, Message: a.bootErr.Error()}
		}
		return StatusView{State: string(domain.CaptureStateIdle), Levels: []float64{}}
	}
	return statusView(a.services.Engine.Status())
}

// ListRecordings returns all recordings, newest first.
func (a *App) ListRecordings() ([]RecordingView, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	recs, err := a.services.Catalog.List(a.context())
	if err != nil {
		return nil, err
	}
	return recordingViews(recs), nil
}

// RenameRecording sets a custom name. A blank name restores the default.
func (a *App) RenameRecording(id string, name string) (RecordingView, error) {
	if err := a.requireReady(); err != nil {
		return RecordingView{}, err
	}
	rec, err := a.services.Catalog.Rename(a.context(), id, name)
	if err != nil {
		return RecordingView{}, a.reportInvalid(err)
	}
	return recordingView(rec), nil
}

func (a *App) DeleteRecording(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Catalog.Delete(a.context(), id)
}

func (a *App) CreateIncident(form IncidentForm) (IncidentView, error) {
	if err := a.requireReady(); err != nil {
		return IncidentView{}, err
	}
	incident, err := a.services.Incidents.Create(a.context(), form.input())
	if err != nil {
		return IncidentView{}, a.reportInvalid(err)
	}
	return incidentView(incident), nil
}

func (a *App) UpdateIncident(id string, form IncidentForm) (IncidentView, error) {
	if err := a.requireReady(); err != nil {
		return IncidentView{}, err
	}
	incident, err := a.services.Incidents.Update(a.context(), id, form.input())
	if err != nil {
		return IncidentView{}, a.reportInvalid(err)
	}
	return incidentView(incident), nil
}

// GetIncident returns an incident with its attached recordings.
func (a *App) GetIncident(id string) (IncidentDetail, error) {
	if err := a.requireReady(); err != nil {
		return IncidentDetail{}, err
	}
	ctx := a.context()
	incident, err := a.services.Incidents.Get(ctx, id)
	if err != nil {
		return IncidentDetail{}, err
	}
	recs, err := a.services.Incidents.Recordings(ctx, id)
	if err != nil {
		return IncidentDetail{}, err
	}
	return IncidentDetail{Incident: incidentView(incident), Recordings: recordingViews(recs)}, nil
}

// ListIncidents returns incidents newest first, optionally filtered by a
// case-insensitive search over title and notes.
func (a *App) ListIncidents(search string) ([]IncidentView, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	incidents, err := a.services.Incidents.List(a.context(), search)
	if err != nil {
		return nil, err
	}
	out := make([]IncidentView, 0, len(incidents))
	for _, incident := range incidents {
		out = append(out, incidentView(incident))
	}
	return out, nil
}

func (a *App) DeleteIncident(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Incidents.Delete(a.context(), id)
}

func (a *App) AttachRecording(incidentID string, recordingID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Incidents.AttachRecording(a.context(), incidentID, recordingID)
}

func (a *App) DetachRecording(recordingID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Incidents.DetachRecording(a.context(), recordingID)
}

// ExportIncident writes the incident report into the exports directory
// and returns the written path.
func (a *App) ExportIncident(id string, format string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	path, err := a.exportIncident(id, format)
	if err != nil {
		var vErr *domain.ValidationError
		if !errors.Is(err, domain.ErrNotFound) && !errors.As(err, &vErr) {
			a.SessionError(domain.ErrorCodeExport, err.Error())
		}
		return "", err
	}
	return path, nil
}

func (a *App) exportIncident(id string, format string) (string, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(a.services.Config.Storage.DataDir, "exports")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, err := a.services.Incidents.Export(a.context(), id, f, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	return path, nil
}

// ListAgencies returns rights content for a category ("airport" or
// "traffic"). An empty category returns everything.
func (a *App) ListAgencies(category string) ([]content.Agency, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return a.services.Content.All(), nil
	}
	return a.services.Content.ByCategory(content.Category(category)), nil
}

// TrafficAgency returns the traffic stop content for a state code.
func (a *App) TrafficAgency(state string) (content.Agency, error) {
	if err := a.requireReady(); err != nil {
		return content.Agency{}, err
	}
	agency, ok := a.services.Content.ByState(state)
	if !ok {
		return content.Agency{}, fmt.Errorf("%w: no traffic content for state %q", domain.ErrNotFound, state)
	}
	return agency, nil
}

func (a *App) TrafficStates() []string {
	if a.services == nil {
		return []string{}
	}
	return a.services.Content.States()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	return map[string]string{
		"dataDir":          cfg.Storage.DataDir,
		"recordingsDir":    cfg.Storage.RecordingsDir,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"codec":            cfg.Audio.Codec,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// reportInvalid emits a validation error event for rejected form input and
// returns err unchanged.
func (a *App) reportInvalid(err error) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		a.SessionError(domain.ErrorCodeValidation, vErr.Error())
	}
	return err
}

func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// SessionStateChanged emits capture lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.CaptureState, reason domain.SessionStateReason) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// LevelsUpdated emits the live meter window while recording.
func (a *App) LevelsUpdated(snapshot domain.LevelSnapshot) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventLevels, map[string]any{
		"elapsedMs": snapshot.Elapsed.Milliseconds(),
		"levels":    snapshot.Levels,
	})
}

// RecordingSaved emits a newly cataloged recording.
func (a *App) RecordingSaved(rec domain.Recording) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventRecording, recordingView(rec))
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready to record"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted; previous recording saved"
	case domain.SessionReasonRecordingSaved:
		return "Recording saved"
	case domain.SessionReasonRecordingNotSaved:
		return "Recording could not be saved"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonAcknowledged:
		return "Ready to record"
	case domain.SessionReasonStartFailed:
		return "Microphone unavailable"
	case domain.SessionReasonPlaybackStarted:
		return "Playing recording"
	case domain.SessionReasonPlaybackFinished:
		return "Playback finished"
	case domain.SessionReasonPlaybackStopped:
		return "Playback stopped"
	case domain.SessionReasonPlaybackFailed:
		return "Playback failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAudioSession:
		return "Could not open the audio session"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio metering issue"
	case domain.ErrorCodeFileNotFound:
		return "Recording file not found"
	case domain.ErrorCodePersistence:
		return "Storage error"
	case domain.ErrorCodeOrphanedRecording:
		return "Recording file kept but not cataloged"
	case domain.ErrorCodePlayback:
		return "Playback error"
	case domain.ErrorCodeExport:
		return "Report export failed"
	case domain.ErrorCodeValidation:
		return "Invalid input"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
