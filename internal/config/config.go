package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
	"github.com/Dicklesworthstone/memwatch/internal/session"
)

const (
	minIntervalSeconds        = 1
	maxIntervalSeconds        = 3600
	minThresholdPercent       = 0
	maxThresholdPercent       = 100
	minSessionIntervalSeconds = 1
	maxSessionIntervalSeconds = 86400
	maxSessionDurationSeconds = 7 * 86400
)

// Config carries runtime options for memwatch.
type Config struct {
	Sampling SamplingConfig `toml:"sampling"`
	Session  SessionConfig  `toml:"logging_session"`
	Output   OutputConfig   `toml:"output"`
}

type SamplingConfig struct {
	IntervalSeconds  int    `toml:"interval_seconds"`
	ThresholdPercent int    `toml:"threshold_percent"` // 0 disables alerts
	Filter           string `toml:"filter"`
}

type SessionConfig struct {
	IntervalSeconds int     `toml:"interval_seconds"`
	DurationSeconds int     `toml:"duration_seconds"`
	PIDs            []int32 `toml:"pids"` // empty logs every process
}

type OutputConfig struct {
	Dir      string `toml:"dir"`
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

func Default() Config {
	return Config{
		Sampling: SamplingConfig{
			IntervalSeconds:  2,
			ThresholdPercent: 0,
		},
		Session: SessionConfig{
			IntervalSeconds: 10,
			DurationSeconds: 60,
		},
		Output: OutputConfig{
			Dir:      ".",
			LogLevel: "info",
		},
	}
}

// Interval returns the scan period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Sampling.IntervalSeconds) * time.Second
}

// SessionRequest turns the logging_session section into a session request.
func (c Config) SessionRequest() session.Request {
	return session.Request{
		Interval: time.Duration(c.Session.IntervalSeconds) * time.Second,
		Duration: time.Duration(c.Session.DurationSeconds) * time.Second,
		PIDs:     append([]int32(nil), c.Session.PIDs...),
		Targeted: len(c.Session.PIDs) > 0,
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, Validate(cfg)
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("read config %s: %v", path, err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return apperrors.NewConfigError("parse config %s: %v", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return apperrors.NewConfigError("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks ranges. Session fields are only range-checked here; the
// duration/interval relation is enforced when a session is started.
func Validate(cfg Config) error {
	if err := validateRange("sampling.interval_seconds", cfg.Sampling.IntervalSeconds, minIntervalSeconds, maxIntervalSeconds); err != nil {
		return err
	}
	if err := validateRange("sampling.threshold_percent", cfg.Sampling.ThresholdPercent, minThresholdPercent, maxThresholdPercent); err != nil {
		return err
	}
	if err := validateRange("logging_session.interval_seconds", cfg.Session.IntervalSeconds, minSessionIntervalSeconds, maxSessionIntervalSeconds); err != nil {
		return err
	}
	if err := validateRange("logging_session.duration_seconds", cfg.Session.DurationSeconds, minSessionIntervalSeconds, maxSessionDurationSeconds); err != nil {
		return err
	}
	for _, pid := range cfg.Session.PIDs {
		if pid <= 0 {
			return apperrors.NewConfigError("logging_session.pids must be positive, got %d", pid)
		}
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		return apperrors.NewConfigError("output.dir must not be empty")
	}
	return nil
}

func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return apperrors.NewConfigError("%s must be between %d and %d, got %d", name, min, max, value)
	}
	return nil
}

// Encode writes the configuration as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode config TOML: %w", err)
	}
	return nil
}
