package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RIGHTSKEEPER"

// Config stores runtime configuration for the evidence backend.
type Config struct {
	Storage   StorageConfig
	Audio     AudioConfig
	Session   SessionConfig
	Reconcile ReconcileConfig
	Log       LogConfig
}

type StorageConfig struct {
	DataDir       string `validate:"required"`
	DBPath        string `validate:"required"`
	RecordingsDir string `validate:"required"`
}

type AudioConfig struct {
	RecorderCommand string `validate:"required"`
	PlayerCommand   string `validate:"required"`
	ProbeCommand    string `validate:"required"`
	InputFormat     string `validate:"required"`
	InputDevice     string `validate:"required"`
	SampleRate      int    `validate:"min=8000,max=192000"`
	Channels        int    `validate:"min=1,max=2"`
	Codec           string `validate:"required"`
	Bitrate         string `validate:"required"`
	MeterSampleRate int    `validate:"min=1000"`
}

type SessionConfig struct {
	TickInterval time.Duration `validate:"min=10ms"`
	LevelWindow  int           `validate:"min=1,max=512"`
	FinishedHold time.Duration
	ChunkSize    int `validate:"min=256"`
}

type ReconcileConfig struct {
	OnStartup bool
	MinAge    time.Duration
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	File  string
}

// Load resolves configuration from the environment, an optional .env file
// and defaults. Invalid values fall back to their defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaultDataDir := filepath.Join(home, ".local", "share", "rightskeeper")
	setDefaults(v, defaultDataDir)
	if err := loadDotEnv(v); err != nil {
		return Config{}, err
	}

	dataDir := firstNonEmpty(v.GetString("data_dir"), defaultDataDir)

	cfg := Config{
		Storage: StorageConfig{
			DataDir:       dataDir,
			DBPath:        firstNonEmpty(v.GetString("db_path"), filepath.Join(dataDir, "rightskeeper.db")),
			RecordingsDir: firstNonEmpty(v.GetString("recordings_dir"), filepath.Join(dataDir, "recordings")),
		},
		Audio: AudioConfig{
			RecorderCommand: firstNonEmpty(v.GetString("ffmpeg_command"), "ffmpeg"),
			PlayerCommand:   firstNonEmpty(v.GetString("ffplay_command"), "ffplay"),
			ProbeCommand:    firstNonEmpty(v.GetString("ffprobe_command"), "ffprobe"),
			InputFormat:     firstNonEmpty(v.GetString("audio_input_format"), "pulse"),
			InputDevice:     firstNonEmpty(v.GetString("audio_input_device"), "default"),
			SampleRate:      v.GetInt("sample_rate"),
			Channels:        v.GetInt("channels"),
			Codec:           firstNonEmpty(v.GetString("audio_codec"), "aac"),
			Bitrate:         firstNonEmpty(v.GetString("audio_bitrate"), "128k"),
			MeterSampleRate: v.GetInt("meter_sample_rate"),
		},
		Session: SessionConfig{
			TickInterval: time.Duration(v.GetInt("tick_interval_ms")) * time.Millisecond,
			LevelWindow:  v.GetInt("level_window"),
			FinishedHold: time.Duration(v.GetInt("finished_hold_ms")) * time.Millisecond,
			ChunkSize:    v.GetInt("audio_chunk_size"),
		},
		Reconcile: ReconcileConfig{
			OnStartup: boolOrDefault(v.GetString("reconcile_on_startup"), true),
			MinAge:    time.Duration(v.GetInt("reconcile_min_age_seconds")) * time.Second,
		},
		Log: LogConfig{
			Level: strings.ToLower(firstNonEmpty(v.GetString("log_level"), "info")),
			File:  strings.TrimSpace(v.GetString("log_file")),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 44100
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.MeterSampleRate <= 0 {
		cfg.Audio.MeterSampleRate = 8000
	}
	if cfg.Session.TickInterval <= 0 {
		cfg.Session.TickInterval = 100 * time.Millisecond
	}
	if cfg.Session.LevelWindow <= 0 {
		cfg.Session.LevelWindow = 30
	}
	if cfg.Session.FinishedHold <= 0 {
		cfg.Session.FinishedHold = 2 * time.Second
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Reconcile.MinAge < 0 {
		cfg.Reconcile.MinAge = time.Minute
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Log.Level = "info"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("channels", 1)
	v.SetDefault("meter_sample_rate", 8000)
	v.SetDefault("tick_interval_ms", 100)
	v.SetDefault("level_window", 30)
	v.SetDefault("finished_hold_ms", 2000)
	v.SetDefault("audio_chunk_size", 4096)
	v.SetDefault("reconcile_on_startup", "true")
	v.SetDefault("reconcile_min_age_seconds", 60)
	v.SetDefault("log_level", "info")
}

// loadDotEnv layers prefixed keys from a .env file between the
// environment and the built-in defaults. The process environment is
// left untouched.
func loadDotEnv(v *viper.Viper) error {
	path := firstNonEmpty(os.Getenv(envPrefix+"_ENV_FILE"), ".env")
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for key, value := range values {
		name, ok := strings.CutPrefix(key, envPrefix+"_")
		if !ok {
			continue
		}
		v.SetDefault(strings.ToLower(name), value)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func boolOrDefault(value string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
