package domain

import "time"

// CaptureState models the evidence capture lifecycle.
type CaptureState string

const (
	CaptureStateIdle         CaptureState = "idle"
	CaptureStateRecording    CaptureState = "recording"
	CaptureStateJustFinished CaptureState = "just_finished"
	CaptureStatePlaying      CaptureState = "playing"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady              SessionStateReason = "ready"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted SessionStateReason = "recording_restarted"
	SessionReasonRecordingSaved     SessionStateReason = "recording_saved"
	SessionReasonRecordingNotSaved  SessionStateReason = "recording_not_saved"
	SessionReasonRecordingDiscarded SessionStateReason = "recording_discarded"
	SessionReasonAcknowledged       SessionStateReason = "acknowledged"
	SessionReasonStartFailed        SessionStateReason = "start_failed"
	SessionReasonPlaybackStarted    SessionStateReason = "playback_started"
	SessionReasonPlaybackFinished   SessionStateReason = "playback_finished"
	SessionReasonPlaybackStopped    SessionStateReason = "playback_stopped"
	SessionReasonPlaybackFailed     SessionStateReason = "playback_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodeAudioSession      ErrorCode = "audio_session"
	ErrorCodeAudioStop         ErrorCode = "audio_stop"
	ErrorCodeAudioStream       ErrorCode = "audio_stream"
	ErrorCodeFileNotFound      ErrorCode = "file_not_found"
	ErrorCodePersistence       ErrorCode = "persistence"
	ErrorCodeOrphanedRecording ErrorCode = "orphaned_recording"
	ErrorCodePlayback          ErrorCode = "playback"
	ErrorCodeExport            ErrorCode = "export"
	ErrorCodeValidation        ErrorCode = "validation"
)

// Recording is a persisted piece of audio evidence.
type Recording struct {
	ID         string
	Filename   string
	Duration   time.Duration
	CreatedAt  time.Time
	CustomName *string
	IncidentID *string
}

// DisplayName returns the user supplied name or the formatted creation time.
func (r Recording) DisplayName() string {
	if r.CustomName != nil && *r.CustomName != "" {
		return *r.CustomName
	}
	return r.CreatedAt.Format("Jan 2, 2006 at 3:04 PM")
}

// Incident is a written report of an encounter.
type Incident struct {
	ID           string
	Title        string    `validate:"max=200"`
	Date         time.Time `validate:"required"`
	Location     string    `validate:"max=500"`
	Notes        string    `validate:"max=20000"`
	OfficerInfo  string    `validate:"max=500"`
	Agency       string    `validate:"max=200"`
	LastEditedAt time.Time
}

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	Search string
}

// LevelSnapshot is the live metering view of an active recording.
type LevelSnapshot struct {
	Elapsed time.Duration
	Levels  []float64
}

// StopResult is returned once a recording session has been stopped.
type StopResult struct {
	Recording Recording
	Filename  string
	Duration  time.Duration
	Saved     bool
}

// CaptureStatus summarizes the current engine status.
type CaptureStatus struct {
	State           CaptureState
	Active          bool
	Elapsed         time.Duration
	Levels          []float64
	PlayingID       string
	LastRecordingID string
}

// StoredFile describes an audio file in the private storage directory.
type StoredFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// ReconcileReport summarizes a storage reconciliation sweep.
type ReconcileReport struct {
	Adopted        []Recording
	DeletesRetried int
	DeletesPending int
	MissingFiles   []Recording
}
