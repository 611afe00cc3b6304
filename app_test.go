package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"rightskeeper/internal/bootstrap"
	"rightskeeper/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonReady:              "Ready to record",
		domain.SessionReasonRecordingStarted:   "Recording started",
		domain.SessionReasonRecordingRestarted: "Recording restarted; previous recording saved",
		domain.SessionReasonRecordingSaved:     "Recording saved",
		domain.SessionReasonRecordingNotSaved:  "Recording could not be saved",
		domain.SessionReasonRecordingDiscarded: "Recording discarded",
		domain.SessionReasonAcknowledged:       "Ready to record",
		domain.SessionReasonStartFailed:        "Microphone unavailable",
		domain.SessionReasonPlaybackStarted:    "Playing recording",
		domain.SessionReasonPlaybackFinished:   "Playback finished",
		domain.SessionReasonPlaybackStopped:    "Playback stopped",
		domain.SessionReasonPlaybackFailed:     "Playback failed",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:           "Startup failed",
		domain.ErrorCodeAudioSession:      "Could not open the audio session",
		domain.ErrorCodeAudioStop:         "Audio stop issue",
		domain.ErrorCodeAudioStream:       "Audio metering issue",
		domain.ErrorCodeFileNotFound:      "Recording file not found",
		domain.ErrorCodePersistence:       "Storage error",
		domain.ErrorCodeOrphanedRecording: "Recording file kept but not cataloged",
		domain.ErrorCodePlayback:          "Playback error",
		domain.ErrorCodeExport:            "Report export failed",
		domain.ErrorCodeValidation:        "Invalid input",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.ListRecordings(); !errors.Is(err, bootErr) {
		t.Fatalf("expected bound methods to report boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != string(domain.CaptureStateIdle) || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != stateUnavailable || status.Active || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}

func newReadyApp(t *testing.T) (*App, string) {
	t.Helper()
	home := t.TempDir()
	dataDir := filepath.Join(home, "data")
	t.Setenv("HOME", home)
	t.Setenv("RIGHTSKEEPER_DATA_DIR", dataDir)

	app := NewApp()
	services, err := bootstrap.Build(app)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	app.attach(services)
	t.Cleanup(func() { app.shutdown(context.Background()) })
	return app, dataDir
}

func TestIncidentFlowThroughBindings(t *testing.T) {
	app, dataDir := newReadyApp(t)

	if status := app.GetStatus(); status.State != string(domain.CaptureStateIdle) || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	date := time.Date(2025, time.November, 20, 22, 15, 0, 0, time.UTC)
	created, err := app.CreateIncident(IncidentForm{Title: "  ", Date: date, Location: "Route 9", Agency: "State Police"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Title != "Untitled Incident" || !created.Date.Equal(date) {
		t.Fatalf("unexpected incident: %+v", created)
	}

	updated, err := app.UpdateIncident(created.ID, IncidentForm{Title: "Traffic stop", Location: "Route 9"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != created.ID || updated.Title != "Traffic stop" || !updated.Date.Equal(date) {
		t.Fatalf("unexpected update: %+v", updated)
	}

	list, err := app.ListIncidents("traffic")
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected search result: %+v (%v)", list, err)
	}

	detail, err := app.GetIncident(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(detail.Recordings) != 0 {
		t.Fatalf("expected no recordings, got %+v", detail.Recordings)
	}

	path, err := app.ExportIncident(created.ID, "html")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dataDir, "exports") || !strings.HasSuffix(path, ".html") {
		t.Fatalf("unexpected export path: %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export failed: %v", err)
	}
	if !strings.Contains(string(data), "Traffic stop") {
		t.Fatalf("export missing title")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the export in the directory, got %d entries", len(entries))
	}

	if _, err := app.ExportIncident(created.ID, "docx"); err == nil {
		t.Fatalf("expected unsupported format error")
	}

	if err := app.DeleteIncident(created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := app.GetIncident(created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestExportsOfSameDateIncidentsDoNotCollide(t *testing.T) {
	app, _ := newReadyApp(t)

	date := time.Date(2025, time.November, 20, 22, 15, 0, 0, time.UTC)
	first, err := app.CreateIncident(IncidentForm{Title: "First stop", Date: date})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := app.CreateIncident(IncidentForm{Title: "Second stop", Date: date})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	firstPath, err := app.ExportIncident(first.ID, "html")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	secondPath, err := app.ExportIncident(second.ID, "html")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if firstPath == secondPath {
		t.Fatalf("both exports written to %q", firstPath)
	}

	data, err := os.ReadFile(firstPath)
	if err != nil {
		t.Fatalf("read export failed: %v", err)
	}
	if !strings.Contains(string(data), "First stop") {
		t.Fatalf("first export was overwritten")
	}
	entries, _ := os.ReadDir(filepath.Dir(firstPath))
	if len(entries) != 2 {
		t.Fatalf("expected two exports, got %d entries", len(entries))
	}
}

type emittedEvent struct {
	name string
	data map[string]string
}

type eventRecorder struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *eventRecorder) emit(_ context.Context, name string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := emittedEvent{name: name}
	if len(data) > 0 {
		ev.data, _ = data[0].(map[string]string)
	}
	r.events = append(r.events, ev)
}

func (r *eventRecorder) errorCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var codes []string
	for _, ev := range r.events {
		if ev.name == eventError {
			codes = append(codes, ev.data["code"])
		}
	}
	return codes
}

func TestInvalidInputEmitsValidationError(t *testing.T) {
	app, _ := newReadyApp(t)
	recorder := &eventRecorder{}
	app.ctx = context.Background()
	app.emit = recorder.emit

	_, err := app.CreateIncident(IncidentForm{Title: strings.Repeat("x", 1000)})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	codes := recorder.errorCodes()
	if len(codes) != 1 || codes[0] != string(domain.ErrorCodeValidation) {
		t.Fatalf("expected one validation event, got %v", codes)
	}

	created, err := app.CreateIncident(IncidentForm{Title: "Stop"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	far := time.Date(2300, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := app.UpdateIncident(created.ID, IncidentForm{Title: "Stop", Date: far}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if codes := recorder.errorCodes(); len(codes) != 2 || codes[1] != string(domain.ErrorCodeValidation) {
		t.Fatalf("expected a second validation event, got %v", codes)
	}

	if _, err := app.UpdateIncident("missing", IncidentForm{Title: "Stop"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if codes := recorder.errorCodes(); len(codes) != 2 {
		t.Fatalf("not-found must not emit a validation event, got %v", codes)
	}
}

func TestRecordingBindingsOnEmptyCatalog(t *testing.T) {
	app, _ := newReadyApp(t)

	recs, err := app.ListRecordings()
	if err != nil || len(recs) != 0 {
		t.Fatalf("unexpected recordings: %+v (%v)", recs, err)
	}
	if _, err := app.RenameRecording("missing", "name"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := app.AbortRecording(); err != nil {
		t.Fatalf("abort without a session should be a no-op, got %v", err)
	}
	if err := app.StopPlayback(); err != nil {
		t.Fatalf("stop playback without a session should be a no-op, got %v", err)
	}
	if _, err := app.StopRecording(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
}

func TestRightsContentBindings(t *testing.T) {
	app, _ := newReadyApp(t)

	airport, err := app.ListAgencies("Airport")
	if err != nil || len(airport) != 2 {
		t.Fatalf("unexpected airport agencies: %d (%v)", len(airport), err)
	}
	if states := app.TrafficStates(); len(states) == 0 {
		t.Fatalf("expected traffic states")
	}
	agency, err := app.TrafficAgency("ma")
	if err != nil || agency.State != "MA" {
		t.Fatalf("unexpected traffic agency: %+v (%v)", agency, err)
	}
	if _, err := app.TrafficAgency("ZZ"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if info := app.GetRuntimeInfo(); info["recordingsDir"] == "" {
		t.Fatalf("expected runtime info, got %+v", info)
	}
}
