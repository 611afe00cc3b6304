package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFileStore struct {
	mu        sync.Mutex
	files     map[string]time.Time
	removeErr error
	removed   []string
	seq       int
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: map[string]time.Time{}}
}

func (f *fakeFileStore) NewFilename(at time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return "evidence_" + strconv.FormatInt(at.UnixNano(), 10) + "_" + strconv.Itoa(f.seq) + ".m4a"
}

func (f *fakeFileStore) Resolve(filename string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return "", &domain.ValidationError{Field: "filename", Message: "bad"}
	}
	return "/private/" + filename, nil
}

func (f *fakeFileStore) Exists(filename string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[filename]
	return ok, nil
}

func (f *fakeFileStore) Remove(filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.files, filename)
	f.removed = append(f.removed, filename)
	return nil
}

func (f *fakeFileStore) List() ([]domain.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.StoredFile, 0, len(f.files))
	for name, mod := range f.files {
		out = append(out, domain.StoredFile{Name: name, ModTime: mod})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeFileStore) put(filename string, mod time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[filename] = mod
}

func (f *fakeFileStore) has(filename string) bool {
	ok, _ := f.Exists(filename)
	return ok
}

type memRecordingStore struct {
	mu        sync.Mutex
	rows      map[string]domain.Recording
	seq       int
	insertErr error
}

func newMemRecordingStore() *memRecordingStore {
	return &memRecordingStore{rows: map[string]domain.Recording{}}
}

func (s *memRecordingStore) Insert(_ context.Context, rec *domain.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if rec.ID == "" {
		s.seq++
		rec.ID = "rec-" + strconv.Itoa(s.seq)
	}
	s.rows[rec.ID] = *rec
	return nil
}

func (s *memRecordingStore) Get(_ context.Context, id string) (domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return domain.Recording{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memRecordingStore) List(_ context.Context) ([]domain.Recording, error) {
	return s.filter(func(domain.Recording) bool { return true }), nil
}

func (s *memRecordingStore) ListByIncident(_ context.Context, incidentID string) ([]domain.Recording, error) {
	return s.filter(func(rec domain.Recording) bool {
		return rec.IncidentID != nil && *rec.IncidentID == incidentID
	}), nil
}

func (s *memRecordingStore) filter(keep func(domain.Recording) bool) []domain.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Recording{}
	for _, rec := range s.rows {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memRecordingStore) update(id string, apply func(*domain.Recording)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	apply(&rec)
	s.rows[id] = rec
	return nil
}

func (s *memRecordingStore) Rename(_ context.Context, id string, name *string) error {
	return s.update(id, func(rec *domain.Recording) { rec.CustomName = name })
}

func (s *memRecordingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memRecordingStore) Link(_ context.Context, recordingID string, incidentID string) error {
	return s.update(recordingID, func(rec *domain.Recording) {
		id := incidentID
		rec.IncidentID = &id
	})
}

func (s *memRecordingStore) Unlink(_ context.Context, recordingID string) error {
	return s.update(recordingID, func(rec *domain.Recording) { rec.IncidentID = nil })
}

func (s *memRecordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type memIncidentStore struct {
	mu         sync.Mutex
	rows       map[string]domain.Incident
	seq        int
	recordings *memRecordingStore
}

func newMemIncidentStore(recordings *memRecordingStore) *memIncidentStore {
	return &memIncidentStore{rows: map[string]domain.Incident{}, recordings: recordings}
}

func (s *memIncidentStore) Insert(_ context.Context, incident *domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	incident.ID = "inc-" + strconv.Itoa(s.seq)
	s.rows[incident.ID] = *incident
	return nil
}

func (s *memIncidentStore) Get(_ context.Context, id string) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	incident, ok := s.rows[id]
	if !ok {
		return domain.Incident{}, domain.ErrNotFound
	}
	return incident, nil
}

func (s *memIncidentStore) Update(_ context.Context, incident domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[incident.ID]; !ok {
		return domain.ErrNotFound
	}
	s.rows[incident.ID] = incident
	return nil
}

func (s *memIncidentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.rows[id]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(s.rows, id)
	s.mu.Unlock()

	attached, _ := s.recordings.ListByIncident(ctx, id)
	for _, rec := range attached {
		_ = s.recordings.Unlink(ctx, rec.ID)
	}
	return nil
}

func (s *memIncidentStore) List(_ context.Context, filter domain.IncidentFilter) ([]domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(filter.Search)
	out := []domain.Incident{}
	for _, incident := range s.rows {
		if needle != "" &&
			!strings.Contains(strings.ToLower(incident.Title), needle) &&
			!strings.Contains(strings.ToLower(incident.Notes), needle) {
			continue
		}
		out = append(out, incident)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memDeletionQueue struct {
	mu         sync.Mutex
	pending    []string
	enqueueErr error
}

func (q *memDeletionQueue) Enqueue(_ context.Context, filename string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	for _, name := range q.pending {
		if name == filename {
			return nil
		}
	}
	q.pending = append(q.pending, filename)
	return nil
}

func (q *memDeletionQueue) Pending(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.pending))
	copy(out, q.pending)
	return out, nil
}

func (q *memDeletionQueue) Clear(_ context.Context, filename string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.pending[:0]
	for _, name := range q.pending {
		if name != filename {
			kept = append(kept, name)
		}
	}
	q.pending = kept
	return nil
}

// fakeAudioCapture writes the output file into the fake store on start.
type fakeAudioCapture struct {
	mu       sync.Mutex
	files    *fakeFileStore
	sessions []*fakeAudioSession
	err      error
	calls    int
	configs  []ports.AudioConfig
}

func (f *fakeAudioCapture) Start(_ context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	var session *fakeAudioSession
	if f.calls < len(f.sessions) {
		session = f.sessions[f.calls]
	} else {
		session = newFakeAudioSession()
	}
	f.calls++
	if f.files != nil {
		f.files.put(filepath.Base(cfg.OutputPath), time.Now())
	}
	return session, nil
}

// fakeAudioSession yields its chunks and then blocks until stopped.
type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
	stopErr   error
	readErr   error
	stopped   chan struct{}
	stopOnce  sync.Once
}

func newFakeAudioSession(chunks ...[]byte) *fakeAudioSession {
	return &fakeAudioSession{chunks: chunks, stopped: make(chan struct{})}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	readErr := f.readErr
	f.mu.Unlock()
	if readErr != nil {
		return 0, readErr
	}
	<-f.stopped
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	err := f.stopErr
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return err
}

func (f *fakeAudioSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakePlayer struct {
	mu       sync.Mutex
	sessions []*fakePlaybackSession
	err      error
	paths    []string
}

func (f *fakePlayer) Play(_ context.Context, path string) (ports.PlaybackSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	session := newFakePlaybackSession()
	f.sessions = append(f.sessions, session)
	return session, nil
}

func (f *fakePlayer) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePlayer) last() *fakePlaybackSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

type fakePlaybackSession struct {
	done      chan error
	once      sync.Once
	mu        sync.Mutex
	stopCalls int
}

func newFakePlaybackSession() *fakePlaybackSession {
	return &fakePlaybackSession{done: make(chan error, 1)}
}

func (f *fakePlaybackSession) Done() <-chan error { return f.done }

func (f *fakePlaybackSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.finish(nil)
	return nil
}

func (f *fakePlaybackSession) finish(err error) {
	f.once.Do(func() {
		if err != nil {
			f.done <- err
		}
		close(f.done)
	})
}

func (f *fakePlaybackSession) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeEventSink struct {
	mu sync.Mutex

	states []stateEvent
	levels []domain.LevelSnapshot
	saved  []domain.Recording
	errors []errEvent
}

type stateEvent struct {
	state  domain.CaptureState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.CaptureState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) LevelsUpdated(snapshot domain.LevelSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = append(f.levels, snapshot)
}

func (f *fakeEventSink) RecordingSaved(rec domain.Recording) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, rec)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotLevels() []domain.LevelSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LevelSnapshot, len(f.levels))
	copy(out, f.levels)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) lastState() stateEvent {
	states := f.snapshotStates()
	if len(states) == 0 {
		return stateEvent{}
	}
	return states[len(states)-1]
}

type fakeProber struct {
	durations map[string]time.Duration
	err       error
}

func (f *fakeProber) Duration(_ context.Context, path string) (time.Duration, error) {
	if f.err != nil {
		return 0, f.err
	}
	d, ok := f.durations[filepath.Base(path)]
	if !ok {
		return 0, errors.New("no duration")
	}
	return d, nil
}
