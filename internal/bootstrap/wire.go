package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rightskeeper/internal/audio"
	"rightskeeper/internal/config"
	"rightskeeper/internal/content"
	"rightskeeper/internal/domain"
	"rightskeeper/internal/logging"
	"rightskeeper/internal/ports"
	"rightskeeper/internal/storage"
	"rightskeeper/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Logger     *zap.Logger
	DB         *sql.DB
	Files      *storage.PrivateDir
	Catalog    *usecase.Catalog
	Incidents  *usecase.Incidents
	Engine     *usecase.CaptureEngine
	Reconciler *usecase.Reconciler
	Content    *content.Library
}

// Build loads configuration and wires all backend dependencies.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(cfg, eventSink)
}

// BuildWithConfig wires the runtime graph for cfg. A nil sink discards events.
func BuildWithConfig(cfg config.Config, eventSink ports.EventSink) (Services, error) {
	if eventSink == nil {
		eventSink = discardEvents{}
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return Services{}, err
	}

	files, err := storage.NewPrivateDir(cfg.Storage.RecordingsDir)
	if err != nil {
		return Services{}, err
	}

	db, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return Services{}, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	library, err := content.Load()
	if err != nil {
		_ = db.Close()
		return Services{}, err
	}

	recordings := storage.NewRecordingRepo(db)
	incidents := storage.NewIncidentRepo(db)
	deletions := storage.NewDeletionRepo(db)

	catalog := usecase.NewCatalog(recordings, files, deletions, logger)

	engine := usecase.NewCaptureEngine(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		audio.NewFFPlayPlayer(cfg.Audio.PlayerCommand),
		files,
		catalog,
		eventSink,
		logger,
		usecase.EngineConfig{
			Audio: ports.AudioConfig{
				SampleRate:      cfg.Audio.SampleRate,
				Channels:        cfg.Audio.Channels,
				Codec:           cfg.Audio.Codec,
				Bitrate:         cfg.Audio.Bitrate,
				InputFormat:     cfg.Audio.InputFormat,
				InputDevice:     cfg.Audio.InputDevice,
				MeterSampleRate: cfg.Audio.MeterSampleRate,
			},
			TickInterval: cfg.Session.TickInterval,
			LevelWindow:  cfg.Session.LevelWindow,
			FinishedHold: cfg.Session.FinishedHold,
			ChunkSize:    cfg.Session.ChunkSize,
		},
	)

	reconciler := usecase.NewReconciler(
		recordings,
		files,
		deletions,
		audio.NewFFProbe(cfg.Audio.ProbeCommand),
		catalog,
		logger,
		cfg.Reconcile.MinAge,
	)

	logger.Info("backend ready",
		zap.String("db", cfg.Storage.DBPath),
		zap.String("recordings", files.Root()),
	)

	return Services{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Files:      files,
		Catalog:    catalog,
		Incidents:  usecase.NewIncidents(incidents, recordings, logger),
		Engine:     engine,
		Reconciler: reconciler,
		Content:    library,
	}, nil
}

// Close saves any in-flight recording and releases the store.
func (s Services) Close(ctx context.Context) error {
	var errs []error
	if s.Engine != nil {
		if err := s.Engine.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
	return errors.Join(errs...)
}

type discardEvents struct{}

func (discardEvents) SessionStateChanged(domain.CaptureState, domain.SessionStateReason) {}
func (discardEvents) LevelsUpdated(domain.LevelSnapshot)                                 {}
func (discardEvents) RecordingSaved(domain.Recording)                                    {}
func (discardEvents) SessionError(domain.ErrorCode, string)                              {}
