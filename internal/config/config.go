package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// #region controller-config

// Config is the process-level controller configuration, loaded from an
// optional YAML file with environment overrides on top.
type Config struct {
	DBPath    string `yaml:"db_path"`
	ModelURL  string `yaml:"model_url"`
	ModelName string `yaml:"model_name"`

	Idle     IdleConfig     `yaml:"idle"`
	Autonomy AutonomyConfig `yaml:"autonomy"`
	Mode     ModeConfig     `yaml:"mode"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// IdleConfig tunes the idle detector.
type IdleConfig struct {
	ThresholdMinutes float32       `yaml:"threshold_minutes"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

// AutonomyConfig tunes autonomous session execution.
type AutonomyConfig struct {
	MaxTurnsPerSession int           `yaml:"max_turns_per_session"`
	TurnInterval       time.Duration `yaml:"turn_interval"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"`
	// ApprovalTimeout bounds how long a prepared session may sit awaiting
	// approval before it is implicitly rejected. Zero means no timeout.
	ApprovalTimeout       time.Duration `yaml:"approval_timeout"`
	HumanApprovalRequired bool          `yaml:"human_approval_required"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		DBPath:    "stance_controller.db",
		ModelURL:  "http://localhost:11434",
		ModelName: "llama3.1",
		Idle: IdleConfig{
			ThresholdMinutes: 5,
			PollInterval:     3 * time.Second,
		},
		Autonomy: AutonomyConfig{
			MaxTurnsPerSession:    10,
			TurnInterval:          2 * time.Second,
			HeartbeatInterval:     15 * time.Second,
			ApprovalTimeout:       0,
			HumanApprovalRequired: true,
		},
		Mode: DefaultModeConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// #endregion controller-config

// #region load

// Load reads configuration from a YAML file (missing file is not an error),
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.Mode = cfg.Mode.Normalize()
	return cfg, nil
}

// applyEnvOverrides copies recognized environment variables over file values.
func applyEnvOverrides(cfg *Config) {
	cfg.DBPath = envOr("STANCE_DB", cfg.DBPath)
	cfg.ModelURL = envOr("MODEL_URL", cfg.ModelURL)
	cfg.ModelName = envOr("MODEL_NAME", cfg.ModelName)
	if v := os.Getenv("IDLE_THRESHOLD_MINUTES"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Idle.ThresholdMinutes = float32(f)
		}
	}
	if v := os.Getenv("MAX_TURNS_PER_SESSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Autonomy.MaxTurnsPerSession = n
		}
	}
	cfg.Logging.Level = envOr("LOG_LEVEL", cfg.Logging.Level)
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load
