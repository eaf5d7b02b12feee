package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level, tagged with component.
// An empty component leaves the field off so callers can derive one logger
// per component with Component. Unknown levels fall back to info.
func New(w io.Writer, level, component string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if component == "" {
		return logger
	}
	return Component(logger, component)
}

// Component returns l tagged with component. l must not already carry the
// field; zerolog appends rather than replaces.
func Component(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// NewConsole is New with human-readable console output.
func NewConsole(w io.Writer, level, component string) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return New(cw, level, component)
}

// OpenFile returns a logger appending JSON lines to path. The returned closer
// must be called on shutdown. An empty path yields a no-op logger.
func OpenFile(path, level, component string) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return New(f, level, component), f, nil
}
