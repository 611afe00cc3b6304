package ports

import (
	"context"
	"io"
	"time"

	"rightskeeper/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate      int
	Channels        int
	Codec           string
	Bitrate         string
	InputFormat     string
	InputDevice     string
	MeterSampleRate int
	OutputPath      string
}

// AudioSession is a live capture session. Reads return mono s16le PCM
// at the metering sample rate while the encoded file is being written.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// PlaybackSession is an active playback of one recording.
type PlaybackSession interface {
	// Done is closed when playback ends; it yields the exit error, if any.
	Done() <-chan error
	Stop() error
}

// AudioPlayer plays recordings from the private storage directory.
type AudioPlayer interface {
	Play(ctx context.Context, path string) (PlaybackSession, error)
}

// DurationProber reads the duration of an encoded audio file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FileStore is the private, per-install recordings directory.
type FileStore interface {
	NewFilename(at time.Time) string
	Resolve(filename string) (string, error)
	Exists(filename string) (bool, error)
	// Remove deletes a file; a missing file is not an error.
	Remove(filename string) error
	List() ([]domain.StoredFile, error)
}

// RecordingStore persists Recording entities.
type RecordingStore interface {
	Insert(ctx context.Context, rec *domain.Recording) error
	Get(ctx context.Context, id string) (domain.Recording, error)
	// List returns all recordings, newest first, ties broken by id.
	List(ctx context.Context) ([]domain.Recording, error)
	ListByIncident(ctx context.Context, incidentID string) ([]domain.Recording, error)
	Rename(ctx context.Context, id string, name *string) error
	Delete(ctx context.Context, id string) error
	// Link attaches a recording to an incident, replacing any prior link.
	Link(ctx context.Context, recordingID string, incidentID string) error
	Unlink(ctx context.Context, recordingID string) error
}

// IncidentStore persists Incident entities.
type IncidentStore interface {
	Insert(ctx context.Context, incident *domain.Incident) error
	Get(ctx context.Context, id string) (domain.Incident, error)
	Update(ctx context.Context, incident domain.Incident) error
	// Delete removes an incident and detaches its recordings.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.IncidentFilter) ([]domain.Incident, error)
}

// DeletionQueue remembers recording files that could not be removed.
type DeletionQueue interface {
	Enqueue(ctx context.Context, filename string) error
	Pending(ctx context.Context) ([]string, error)
	Clear(ctx context.Context, filename string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.CaptureState, reason domain.SessionStateReason)
	LevelsUpdated(snapshot domain.LevelSnapshot)
	RecordingSaved(rec domain.Recording)
	SessionError(code domain.ErrorCode, detail string)
}
