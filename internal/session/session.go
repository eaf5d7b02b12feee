// Package session records a time-bounded series of snapshots into a text log.
//
// A Session holds no timer of its own. Its owner calls Start once, then Tick
// at the session interval until Tick reports completion, then Finish to take
// the finalized text. All methods must be called from one goroutine.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
	"github.com/Dicklesworthstone/memwatch/internal/model"
	"github.com/Dicklesworthstone/memwatch/internal/report"
)

var (
	// ErrAlreadyRunning rejects a Start while another session is running.
	ErrAlreadyRunning = errors.New("logging session already running")
	// ErrNotCompleted rejects a Finish before the last sample was taken.
	ErrNotCompleted = errors.New("logging session not completed")
)

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Request describes a session to start. When Targeted is false every
// process in the snapshot is logged and PIDs is ignored.
type Request struct {
	Interval time.Duration
	Duration time.Duration
	PIDs     []int32
	Targeted bool
}

// Planned returns the number of samples the request will take.
func (r Request) Planned() int {
	if r.Interval <= 0 {
		return 0
	}
	return int(r.Duration / r.Interval)
}

// Validate checks the request without touching any session.
func (r Request) Validate() error {
	if r.Interval < time.Second {
		return apperrors.ValidationError{Field: "interval", Message: "must be at least 1 second"}
	}
	if r.Duration < r.Interval {
		return apperrors.ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("%s is shorter than the interval %s", r.Duration, r.Interval),
		}
	}
	if r.Targeted && len(r.PIDs) == 0 {
		return apperrors.ValidationError{Field: "pids", Message: "no target PIDs given"}
	}
	return nil
}

// Result is a finalized log handed to the caller for persistence.
type Result struct {
	Text     string
	Filename string
	Started  time.Time
	Samples  int
}

// Session is the logging state machine: Idle -> Running -> Completed -> Idle.
type Session struct {
	state   State
	req     Request
	started time.Time
	taken   int
	planned int
	buf     strings.Builder
}

func New() *Session { return &Session{} }

func (s *Session) State() State            { return s.state }
func (s *Session) Taken() int              { return s.taken }
func (s *Session) Planned() int            { return s.planned }
func (s *Session) Interval() time.Duration { return s.req.Interval }
func (s *Session) Started() time.Time      { return s.started }

// Start begins a session and takes its first sample from snap. A rejected
// Start leaves the session untouched.
func (s *Session) Start(now time.Time, req Request, snap model.Snapshot) error {
	if s.state == Running {
		return ErrAlreadyRunning
	}
	if err := req.Validate(); err != nil {
		return err
	}
	req.PIDs = append([]int32(nil), req.PIDs...)

	s.reset()
	s.req = req
	s.started = now
	s.planned = req.Planned()
	s.state = Running
	s.writeHeader()
	s.Tick(now, snap)
	return nil
}

// Tick appends one sample block from snap. It returns true once the planned
// number of samples has been taken. Ticks outside Running are ignored.
func (s *Session) Tick(now time.Time, snap model.Snapshot) bool {
	if s.state != Running {
		return s.state == Completed
	}
	s.taken++
	s.writeSample(now, snap)
	if s.taken < s.planned {
		return false
	}
	fmt.Fprintf(&s.buf, "--- Logging complete: %d samples at %s ---\n", s.taken, now.Format(report.TimeLayout))
	s.state = Completed
	return true
}

// Finish hands off the finalized log and returns the session to Idle.
func (s *Session) Finish() (Result, error) {
	if s.state != Completed {
		return Result{}, ErrNotCompleted
	}
	res := Result{
		Text:     s.buf.String(),
		Filename: LogFileName(s.started),
		Started:  s.started,
		Samples:  s.taken,
	}
	s.reset()
	return res, nil
}

// Abandon discards any session in progress without hand-off.
func (s *Session) Abandon() { s.reset() }

func (s *Session) reset() {
	s.state = Idle
	s.req = Request{}
	s.started = time.Time{}
	s.taken, s.planned = 0, 0
	s.buf.Reset()
}

func (s *Session) writeHeader() {
	b := &s.buf
	fmt.Fprintln(b, "--- Memory Logging Session ---")
	fmt.Fprintf(b, "Start Time: %s\n", s.started.Format(report.TimeLayout))
	fmt.Fprintf(b, "Interval: %d seconds\n", int(s.req.Interval/time.Second))
	fmt.Fprintf(b, "Duration: %d seconds\n", int(s.req.Duration/time.Second))
	fmt.Fprintf(b, "Samples Planned: %d\n", s.planned)
	fmt.Fprintf(b, "Target: %s\n", s.scope())
	fmt.Fprintln(b)
}

func (s *Session) scope() string {
	if !s.req.Targeted {
		return "All processes"
	}
	ids := make([]string, len(s.req.PIDs))
	for i, pid := range s.req.PIDs {
		ids[i] = strconv.Itoa(int(pid))
	}
	return "PIDs " + strings.Join(ids, ", ")
}

func (s *Session) writeSample(now time.Time, snap model.Snapshot) {
	b := &s.buf
	fmt.Fprintf(b, "[%s] Sample %d/%d\n", now.Format(report.TimeLayout), s.taken, s.planned)
	fmt.Fprintf(b, "Total Memory: %s\n", report.FormatReading(snap, snap.TotalKB))
	fmt.Fprintf(b, "Available Memory: %s\n", report.FormatReading(snap, snap.AvailableKB))
	report.WriteTableHeader(b)
	if !s.req.Targeted {
		for _, p := range snap.Processes {
			fmt.Fprintln(b, report.FormatRow(p))
		}
	} else {
		for _, pid := range s.req.PIDs {
			if p, ok := snap.Lookup(pid); ok {
				fmt.Fprintln(b, report.FormatRow(p))
			} else {
				fmt.Fprintf(b, "PID %d not found.\n", pid)
			}
		}
	}
	fmt.Fprintln(b)
}

// LogFileName is the suggested file name for a session started at t.
func LogFileName(t time.Time) string {
	return "memory_log_" + t.Format("20060102_150405") + ".txt"
}
