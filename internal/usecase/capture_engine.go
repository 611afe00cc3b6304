package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/ports"
)

// EngineConfig controls capture, metering and acknowledgment timing.
type EngineConfig struct {
	Audio        ports.AudioConfig
	TickInterval time.Duration
	LevelWindow  int
	FinishedHold time.Duration
	ChunkSize    int
	Clock        func() time.Time
}

// recordingCatalog is the part of the catalog the engine needs.
type recordingCatalog interface {
	Create(ctx context.Context, filename string, duration time.Duration) (domain.Recording, error)
	Get(ctx context.Context, id string) (domain.Recording, error)
}

// CaptureEngine owns the single audio session of the application: at most
// one recording or one playback exists at any time.
//
// State events are emitted with the state lock held so observers see
// transitions in order. Event sinks must not call back into the engine.
type CaptureEngine struct {
	capture ports.AudioCapture
	player  ports.AudioPlayer
	files   ports.FileStore
	catalog recordingCatalog
	events  ports.EventSink
	logger  *zap.Logger
	cfg     EngineConfig

	// opMu serializes lifecycle operations.
	opMu sync.Mutex

	mu        sync.Mutex
	state     domain.CaptureState
	recording *activeRecording
	playback  *activePlayback
	window    *levelWindow
	elapsed   time.Duration
	lastSaved string
	hold      *time.Timer
	holdSeq   uint64
}

func NewCaptureEngine(
	capture ports.AudioCapture,
	player ports.AudioPlayer,
	files ports.FileStore,
	catalog recordingCatalog,
	events ports.EventSink,
	logger *zap.Logger,
	cfg EngineConfig,
) *CaptureEngine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.LevelWindow <= 0 {
		cfg.LevelWindow = 30
	}
	if cfg.FinishedHold <= 0 {
		cfg.FinishedHold = 2 * time.Second
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureEngine{
		capture: capture,
		player:  player,
		files:   files,
		catalog: catalog,
		events:  events,
		logger:  logger.Named("capture"),
		cfg:     cfg,
		state:   domain.CaptureStateIdle,
		window:  newLevelWindow(cfg.LevelWindow),
	}
}

// Start begins a new recording. Active playback is stopped and an
// unfinished recording is saved before the new one starts.
func (e *CaptureEngine) Start(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.cancelHold()
	e.stopPlayback()

	restarted := false
	if previous := e.takeRecording(); previous != nil {
		restarted = true
		if _, err := e.finalize(ctx, previous); err != nil {
			e.logger.Warn("previous recording was not saved", zap.String("filename", previous.filename), zap.Error(err))
		}
	}

	startedAt := e.cfg.Clock()
	filename := e.files.NewFilename(startedAt)
	path, err := e.files.Resolve(filename)
	if err != nil {
		e.transition(domain.CaptureStateIdle, domain.SessionReasonStartFailed)
		return err
	}

	audioCfg := e.cfg.Audio
	audioCfg.OutputPath = path

	sessionCtx, cancel := context.WithCancel(ctx)
	session, err := e.capture.Start(sessionCtx, audioCfg)
	if err != nil {
		cancel()
		if rmErr := e.files.Remove(filename); rmErr != nil {
			e.logger.Warn("failed to remove partial recording", zap.String("filename", filename), zap.Error(rmErr))
		}
		e.events.SessionError(domain.ErrorCodeAudioSession, err.Error())
		e.transition(domain.CaptureStateIdle, domain.SessionReasonStartFailed)
		return fmt.Errorf("%w: %w", domain.ErrAudioSession, err)
	}

	active := &activeRecording{
		cancel:    cancel,
		audio:     session,
		filename:  filename,
		startedAt: startedAt,
		meter:     newPowerMeter(),
		tickStop:  make(chan struct{}),
		tickDone:  make(chan struct{}),
		pumpDone:  make(chan struct{}),
	}

	reason := domain.SessionReasonRecordingStarted
	if restarted {
		reason = domain.SessionReasonRecordingRestarted
	}

	e.mu.Lock()
	e.recording = active
	e.elapsed = 0
	e.window.reset()
	e.state = domain.CaptureStateRecording
	e.events.SessionStateChanged(domain.CaptureStateRecording, reason)
	e.mu.Unlock()

	go pumpLevels(active.audio, active.meter, e.cfg.ChunkSize, &active.stopping, e.events, active.pumpDone)
	go e.tick(active)

	e.logger.Info("recording started", zap.String("filename", filename))
	return nil
}

// Stop ends the active recording and saves it to the catalog. When the
// catalog insert fails the file is kept on disk and Saved is false.
func (e *CaptureEngine) Stop(ctx context.Context) (domain.StopResult, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	active := e.takeRecording()
	if active == nil {
		return domain.StopResult{}, domain.ErrNoActiveSession
	}

	result, err := e.finalize(ctx, active)
	if err != nil {
		e.transition(domain.CaptureStateIdle, domain.SessionReasonRecordingNotSaved)
		return result, err
	}

	e.enterJustFinished()
	return result, nil
}

// Abort discards the active recording without saving it.
func (e *CaptureEngine) Abort() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	active := e.takeRecording()
	if active == nil {
		return domain.ErrNoActiveSession
	}

	e.haltRecording(active)
	if err := e.files.Remove(active.filename); err != nil {
		e.logger.Warn("failed to remove discarded recording", zap.String("filename", active.filename), zap.Error(err))
	}

	e.mu.Lock()
	e.window.reset()
	e.mu.Unlock()

	e.transition(domain.CaptureStateIdle, domain.SessionReasonRecordingDiscarded)
	e.logger.Info("recording discarded", zap.String("filename", active.filename))
	return nil
}

// Play starts playback of a saved recording. A missing backing file is
// reported without touching the current session. Any other failure happens
// after the previous session was torn down, so the engine ends up idle.
func (e *CaptureEngine) Play(ctx context.Context, recordingID string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	rec, err := e.catalog.Get(ctx, recordingID)
	if err != nil {
		return err
	}
	exists, err := e.files.Exists(rec.Filename)
	if err != nil {
		return err
	}
	if !exists {
		e.events.SessionError(domain.ErrorCodeFileNotFound, rec.Filename)
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, rec.Filename)
	}
	path, err := e.files.Resolve(rec.Filename)
	if err != nil {
		return err
	}

	e.cancelHold()
	e.stopPlayback()
	if active := e.takeRecording(); active != nil {
		if _, err := e.finalize(ctx, active); err != nil {
			e.logger.Warn("recording was not saved before playback", zap.String("filename", active.filename), zap.Error(err))
		}
	}

	playCtx, cancel := context.WithCancel(ctx)
	session, err := e.player.Play(playCtx, path)
	if err != nil {
		cancel()
		e.events.SessionError(domain.ErrorCodePlayback, err.Error())
		e.transition(domain.CaptureStateIdle, domain.SessionReasonPlaybackFailed)
		return fmt.Errorf("%w: %w", domain.ErrAudioSession, err)
	}

	playback := &activePlayback{
		cancel:      cancel,
		session:     session,
		recordingID: rec.ID,
		watchDone:   make(chan struct{}),
	}

	e.mu.Lock()
	e.playback = playback
	e.state = domain.CaptureStatePlaying
	e.events.SessionStateChanged(domain.CaptureStatePlaying, domain.SessionReasonPlaybackStarted)
	e.mu.Unlock()

	go e.watchPlayback(playback)
	return nil
}

// StopPlayback halts the active playback.
func (e *CaptureEngine) StopPlayback() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if !e.stopPlayback() {
		return domain.ErrNoActiveSession
	}
	e.transition(domain.CaptureStateIdle, domain.SessionReasonPlaybackStopped)
	return nil
}

// Status returns a snapshot of the engine.
func (e *CaptureEngine) Status() domain.CaptureStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := domain.CaptureStatus{
		State:           e.state,
		Active:          e.recording != nil || e.playback != nil,
		Elapsed:         e.elapsed,
		Levels:          e.window.snapshot(),
		LastRecordingID: e.lastSaved,
	}
	if e.playback != nil {
		status.PlayingID = e.playback.recordingID
	}
	return status
}

// Close saves an active recording and stops playback. It is used on shutdown.
func (e *CaptureEngine) Close(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.cancelHold()
	stoppedPlayback := e.stopPlayback()

	var err error
	reason := domain.SessionReasonReady
	if active := e.takeRecording(); active != nil {
		reason = domain.SessionReasonRecordingSaved
		if _, err = e.finalize(ctx, active); err != nil {
			reason = domain.SessionReasonRecordingNotSaved
		}
	} else if stoppedPlayback {
		reason = domain.SessionReasonPlaybackStopped
	}

	if e.Status().State != domain.CaptureStateIdle {
		e.transition(domain.CaptureStateIdle, reason)
	}
	return err
}

func (e *CaptureEngine) tick(active *activeRecording) {
	defer close(active.tickDone)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-active.tickStop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.recording != active {
				e.mu.Unlock()
				return
			}
			e.elapsed += e.cfg.TickInterval
			e.window.push(normalizeLevel(active.meter.level()))
			e.events.LevelsUpdated(domain.LevelSnapshot{Elapsed: e.elapsed, Levels: e.window.snapshot()})
			e.mu.Unlock()
		}
	}
}

func (e *CaptureEngine) watchPlayback(playback *activePlayback) {
	defer close(playback.watchDone)

	err := <-playback.session.Done()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playback != playback {
		return
	}
	e.playback = nil
	playback.cancel()
	if err != nil {
		e.events.SessionError(domain.ErrorCodePlayback, err.Error())
	}
	e.state = domain.CaptureStateIdle
	e.events.SessionStateChanged(domain.CaptureStateIdle, domain.SessionReasonPlaybackFinished)
}

func (e *CaptureEngine) takeRecording() *activeRecording {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := e.recording
	e.recording = nil
	return active
}

// haltRecording stops the ticker, the capture process and the metering pump.
func (e *CaptureEngine) haltRecording(active *activeRecording) {
	close(active.tickStop)
	<-active.tickDone

	active.stopping.Store(true)
	if err := active.audio.Stop(); err != nil {
		e.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
		e.logger.Warn("audio stop failed", zap.String("filename", active.filename), zap.Error(err))
	}
	active.cancel()
	<-active.pumpDone
	_ = active.audio.Close()
}

// finalize stops a taken recording and saves it to the catalog.
func (e *CaptureEngine) finalize(ctx context.Context, active *activeRecording) (domain.StopResult, error) {
	stoppedAt := e.cfg.Clock()
	e.haltRecording(active)

	duration := stoppedAt.Sub(active.startedAt)
	if duration < 0 {
		duration = 0
	}

	e.mu.Lock()
	e.window.reset()
	e.mu.Unlock()

	result := domain.StopResult{Filename: active.filename, Duration: duration}

	exists, err := e.files.Exists(active.filename)
	if err != nil || !exists {
		e.events.SessionError(domain.ErrorCodeAudioSession, "recording file was not written")
		if err == nil {
			err = fmt.Errorf("%w: %s", domain.ErrFileNotFound, active.filename)
		}
		return result, err
	}

	rec, err := e.catalog.Create(ctx, active.filename, duration)
	if err != nil {
		e.events.SessionError(domain.ErrorCodeOrphanedRecording, active.filename)
		e.logger.Error("recording kept on disk without catalog entry", zap.String("filename", active.filename), zap.Error(err))
		return result, err
	}

	result.Recording = rec
	result.Saved = true

	e.mu.Lock()
	e.lastSaved = rec.ID
	e.mu.Unlock()

	e.events.RecordingSaved(rec)
	e.logger.Info("recording saved",
		zap.String("id", rec.ID),
		zap.String("filename", rec.Filename),
		zap.Duration("duration", duration),
	)
	return result, nil
}

// stopPlayback halts playback without emitting a state change. It reports
// whether a playback was active.
func (e *CaptureEngine) stopPlayback() bool {
	e.mu.Lock()
	playback := e.playback
	e.playback = nil
	e.mu.Unlock()

	if playback == nil {
		return false
	}
	if err := playback.session.Stop(); err != nil {
		e.logger.Warn("playback stop failed", zap.Error(err))
	}
	<-playback.watchDone
	playback.cancel()
	return true
}

func (e *CaptureEngine) enterJustFinished() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.holdSeq++
	seq := e.holdSeq
	if e.hold != nil {
		e.hold.Stop()
	}
	e.state = domain.CaptureStateJustFinished
	e.events.SessionStateChanged(domain.CaptureStateJustFinished, domain.SessionReasonRecordingSaved)
	e.hold = time.AfterFunc(e.cfg.FinishedHold, func() {
		e.acknowledge(seq)
	})
}

func (e *CaptureEngine) acknowledge(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.holdSeq || e.state != domain.CaptureStateJustFinished {
		return
	}
	e.hold = nil
	e.state = domain.CaptureStateIdle
	e.events.SessionStateChanged(domain.CaptureStateIdle, domain.SessionReasonAcknowledged)
}

func (e *CaptureEngine) cancelHold() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.holdSeq++
	if e.hold != nil {
		e.hold.Stop()
		e.hold = nil
	}
}

func (e *CaptureEngine) transition(state domain.CaptureState, reason domain.SessionStateReason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	e.events.SessionStateChanged(state, reason)
}
