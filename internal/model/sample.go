package model

import (
	"strings"
	"time"
)

// ProcessSample is one process as seen by a single scan. PIDs are only
// meaningful within the snapshot that carries them.
type ProcessSample struct {
	PID        int32
	ResidentKB int64
	Name       string
}

// Snapshot is the full capture exchanged between sampler, logging session and views.
// It is published whole and never modified afterwards.
type Snapshot struct {
	Taken       time.Time
	TotalKB     int64
	AvailableKB int64
	Processes   []ProcessSample // descending by ResidentKB, stable
}

// Valid reports whether the snapshot carries a usable memory reading.
func (s Snapshot) Valid() bool { return s.TotalKB > 0 }

// UsedKB returns total minus available, or -1 without a valid reading.
func (s Snapshot) UsedKB() int64 {
	if !s.Valid() {
		return -1
	}
	return s.TotalKB - s.AvailableKB
}

// Lookup finds pid in the snapshot.
func (s Snapshot) Lookup(pid int32) (ProcessSample, bool) {
	for _, p := range s.Processes {
		if p.PID == pid {
			return p, true
		}
	}
	return ProcessSample{}, false
}

// Filter returns a copy holding only processes whose name contains substr,
// ignoring case. An empty substr returns s unchanged.
func (s Snapshot) Filter(substr string) Snapshot {
	if substr == "" {
		return s
	}
	needle := strings.ToLower(substr)
	out := s
	out.Processes = make([]ProcessSample, 0, len(s.Processes))
	for _, p := range s.Processes {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out.Processes = append(out.Processes, p)
		}
	}
	return out
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Taken: time.Now()} }
