package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEMWATCH_"

// Flags holds command-line values. Only flags the user actually set take
// part in Resolve.
type Flags struct {
	ConfigPath      string
	Interval        int
	Threshold       int
	Filter          string
	SessionInterval int
	SessionDuration int
	PIDs            []int32
	Dir             string
	LogFile         string
	LogLevel        string
}

// Register binds f to fs with the built-in defaults.
func (f *Flags) Register(fs *pflag.FlagSet) {
	def := Default()
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to a TOML config file")
	fs.IntVar(&f.Interval, "interval", def.Sampling.IntervalSeconds, "seconds between scans")
	fs.IntVar(&f.Threshold, "threshold", def.Sampling.ThresholdPercent, "alert when memory usage exceeds this percent (0 disables)")
	fs.StringVar(&f.Filter, "filter", def.Sampling.Filter, "only show processes whose name contains this text")
	fs.IntVar(&f.SessionInterval, "log-interval", def.Session.IntervalSeconds, "seconds between logging session samples")
	fs.IntVar(&f.SessionDuration, "log-duration", def.Session.DurationSeconds, "logging session length in seconds")
	fs.Int32SliceVar(&f.PIDs, "pid", nil, "PID to log (repeatable); none logs every process")
	fs.StringVar(&f.Dir, "dir", def.Output.Dir, "directory for finished logs and reports")
	fs.StringVar(&f.LogFile, "log-file", def.Output.LogFile, "write diagnostic logs to this file")
	fs.StringVar(&f.LogLevel, "log-level", def.Output.LogLevel, "diagnostic log level: debug, info, warn, error")
}

// Path is the config file in effect: --config, else MEMWATCH_CONFIG.
func (f Flags) Path() string {
	if f.ConfigPath != "" {
		return f.ConfigPath
	}
	return os.Getenv(EnvPrefix + "CONFIG")
}

// envOverride maps one MEMWATCH_ variable to the flag that shadows it.
type envOverride struct {
	envKey string
	flag   string
	apply  func(*Config, string) error
}

var envOverrides = []envOverride{
	{"INTERVAL", "interval", func(c *Config, v string) error { return parseInt(v, &c.Sampling.IntervalSeconds) }},
	{"THRESHOLD", "threshold", func(c *Config, v string) error { return parseInt(v, &c.Sampling.ThresholdPercent) }},
	{"FILTER", "filter", func(c *Config, v string) error { c.Sampling.Filter = v; return nil }},
	{"LOG_INTERVAL", "log-interval", func(c *Config, v string) error { return parseInt(v, &c.Session.IntervalSeconds) }},
	{"LOG_DURATION", "log-duration", func(c *Config, v string) error { return parseInt(v, &c.Session.DurationSeconds) }},
	{"PIDS", "pid", func(c *Config, v string) error {
		pids, err := parsePIDs(v)
		if err != nil {
			return err
		}
		c.Session.PIDs = pids
		return nil
	}},
	{"DIR", "dir", func(c *Config, v string) error { c.Output.Dir = v; return nil }},
	{"LOG_FILE", "log-file", func(c *Config, v string) error { c.Output.LogFile = v; return nil }},
	{"LOG_LEVEL", "log-level", func(c *Config, v string) error { c.Output.LogLevel = v; return nil }},
}

// Resolve builds the effective configuration: defaults, then the config
// file, then MEMWATCH_* variables, then explicitly set flags.
func Resolve(fs *pflag.FlagSet, f Flags) (Config, error) {
	cfg := Default()
	if path := f.Path(); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	for _, o := range envOverrides {
		if fs != nil && fs.Changed(o.flag) {
			continue
		}
		v, ok := os.LookupEnv(EnvPrefix + o.envKey)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(&cfg, v); err != nil {
			return Config{}, apperrors.NewConfigError("%s%s: %v", EnvPrefix, o.envKey, err)
		}
	}

	if fs != nil {
		applyFlags(fs, f, &cfg)
	}
	return cfg, Validate(cfg)
}

func applyFlags(fs *pflag.FlagSet, f Flags, cfg *Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("interval", func() { cfg.Sampling.IntervalSeconds = f.Interval })
	set("threshold", func() { cfg.Sampling.ThresholdPercent = f.Threshold })
	set("filter", func() { cfg.Sampling.Filter = f.Filter })
	set("log-interval", func() { cfg.Session.IntervalSeconds = f.SessionInterval })
	set("log-duration", func() { cfg.Session.DurationSeconds = f.SessionDuration })
	set("pid", func() { cfg.Session.PIDs = append([]int32(nil), f.PIDs...) })
	set("dir", func() { cfg.Output.Dir = f.Dir })
	set("log-file", func() { cfg.Output.LogFile = f.LogFile })
	set("log-level", func() { cfg.Output.LogLevel = f.LogLevel })
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// parsePIDs accepts a comma or space separated list.
func parsePIDs(v string) ([]int32, error) {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	pids := make([]int32, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, err
		}
		pids = append(pids, int32(n))
	}
	return pids, nil
}
