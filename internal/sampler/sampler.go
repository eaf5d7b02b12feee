package sampler

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dicklesworthstone/memwatch/internal/alert"
	"github.com/Dicklesworthstone/memwatch/internal/model"
	"github.com/Dicklesworthstone/memwatch/internal/source"
)

// DefaultInterval is the period between scans.
const DefaultInterval = 2 * time.Second

// Sampler builds Snapshots from a Source and keeps the most recent one.
// Scan must be called from a single goroutine; Latest, Threshold and
// ConfigureThreshold are safe from any goroutine.
type Sampler struct {
	src       source.Source
	now       func() time.Time
	threshold atomic.Int64
	latest    atomic.Pointer[model.Snapshot]
	logger    zerolog.Logger
}

func New(src source.Source) *Sampler {
	return &Sampler{src: src, now: time.Now, logger: zerolog.Nop()}
}

// SetLogger configures the logger for scan events.
func (s *Sampler) SetLogger(l zerolog.Logger) { s.logger = l }

// SetClock overrides the time source used to stamp snapshots.
func (s *Sampler) SetClock(now func() time.Time) { s.now = now }

// ConfigureThreshold sets the alert threshold. Values <= 0 disable alerting.
func (s *Sampler) ConfigureThreshold(percent int) { s.threshold.Store(int64(percent)) }

// Threshold returns the current alert threshold.
func (s *Sampler) Threshold() int { return int(s.threshold.Load()) }

// Latest returns the last published snapshot, if any.
func (s *Sampler) Latest() (model.Snapshot, bool) {
	p := s.latest.Load()
	if p == nil {
		return model.Snapshot{}, false
	}
	return *p, true
}

// Scan takes a fresh snapshot, publishes it and evaluates the alert threshold.
func (s *Sampler) Scan(ctx context.Context) (snap model.Snapshot, msg string, alerted bool) {
	snap = model.Snapshot{Taken: s.now()}

	snap.TotalKB, snap.AvailableKB = s.memory(ctx)
	snap.Processes = s.processes(ctx)

	s.latest.Store(&snap)

	msg, alerted = alert.Evaluate(snap.TotalKB, snap.AvailableKB, s.Threshold())
	s.logger.Debug().
		Int("processes", len(snap.Processes)).
		Int64("total_kb", snap.TotalKB).
		Int64("available_kb", snap.AvailableKB).
		Bool("alert", alerted).
		Msg("scan complete")
	return snap, msg, alerted
}

// memory reads both figures in one call when the source supports it. A
// failed read yields 0, which marks the snapshot as having no valid reading.
func (s *Sampler) memory(ctx context.Context) (total, avail int64) {
	if r, ok := s.src.(source.MemoryReader); ok {
		total, avail, err := r.MemoryKB(ctx)
		if err != nil {
			s.logger.Debug().Err(err).Msg("memory reading unavailable")
			return 0, 0
		}
		return total, avail
	}

	total, err := s.src.TotalMemoryKB(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("total memory unavailable")
		total = 0
	}
	avail, err = s.src.AvailableMemoryKB(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("available memory unavailable")
		avail = 0
	}
	return total, avail
}

func (s *Sampler) processes(ctx context.Context) []model.ProcessSample {
	pids, err := s.src.ProcessIDs(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("process enumeration failed")
		return nil
	}
	procs := make([]model.ProcessSample, 0, len(pids))
	for _, pid := range pids {
		rss, err := s.src.ResidentMemoryKB(ctx, pid)
		if err != nil {
			// exited mid-scan
			if !errors.Is(err, source.ErrNotFound) {
				s.logger.Debug().Err(err).Int32("pid", pid).Msg("resident memory lookup failed")
			}
			continue
		}
		name, _ := s.src.ProcessName(ctx, pid)
		procs = append(procs, model.ProcessSample{PID: pid, ResidentKB: rss, Name: name})
	}
	Rank(procs)
	return procs
}

// Rank sorts processes by resident memory, largest first, keeping the
// enumeration order among equal values.
func Rank(procs []model.ProcessSample) {
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].ResidentKB > procs[j].ResidentKB })
}
