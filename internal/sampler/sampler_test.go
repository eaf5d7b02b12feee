package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/memwatch/internal/model"
	"github.com/Dicklesworthstone/memwatch/internal/source"
)

func newFake() *source.Fake {
	return source.NewFake(8_000_000, 1_000_000,
		source.FakeProcess{PID: 10, ResidentKB: 100, Name: "a"},
		source.FakeProcess{PID: 11, ResidentKB: 500, Name: "b"},
		source.FakeProcess{PID: 12, ResidentKB: 100, Name: "c"},
		source.FakeProcess{PID: 13, ResidentKB: 900, Name: "d"},
		source.FakeProcess{PID: 14, ResidentKB: 100, Name: "e"},
	)
}

func pids(procs []model.ProcessSample) []int32 {
	out := make([]int32, len(procs))
	for i, p := range procs {
		out[i] = p.PID
	}
	return out
}

func TestScanRanksStably(t *testing.T) {
	s := New(newFake())

	snap, _, _ := s.Scan(context.Background())

	assert.Equal(t, []int32{13, 11, 10, 12, 14}, pids(snap.Processes))
	assert.Equal(t, int64(8_000_000), snap.TotalKB)
	assert.Equal(t, int64(1_000_000), snap.AvailableKB)
}

func TestScanExcludesVanishedProcess(t *testing.T) {
	src := newFake()
	src.Vanish(11)
	s := New(src)

	snap, _, _ := s.Scan(context.Background())

	assert.Equal(t, []int32{13, 10, 12, 14}, pids(snap.Processes))
}

func TestScanPublishesLatest(t *testing.T) {
	src := newFake()
	s := New(src)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetClock(func() time.Time { return stamp })

	_, ok := s.Latest()
	assert.False(t, ok)

	first, _, _ := s.Scan(context.Background())
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, first, latest)
	assert.Equal(t, stamp, latest.Taken)

	src.SetProcesses(source.FakeProcess{PID: 99, ResidentKB: 1, Name: "z"})
	s.Scan(context.Background())

	latest, _ = s.Latest()
	assert.Equal(t, []int32{99}, pids(latest.Processes))
	assert.Len(t, first.Processes, 5, "earlier snapshot is not modified by later scans")
}

func TestScanAlerts(t *testing.T) {
	s := New(newFake())
	ctx := context.Background()

	_, _, alerted := s.Scan(ctx)
	assert.False(t, alerted, "threshold unset")

	s.ConfigureThreshold(80)
	assert.Equal(t, 80, s.Threshold())
	_, msg, alerted := s.Scan(ctx)
	assert.True(t, alerted)
	assert.Contains(t, msg, "87%")

	_, _, alerted = s.Scan(ctx)
	assert.True(t, alerted, "sustained breach alerts again")

	s.ConfigureThreshold(90)
	_, _, alerted = s.Scan(ctx)
	assert.False(t, alerted)

	s.ConfigureThreshold(0)
	_, _, alerted = s.Scan(ctx)
	assert.False(t, alerted)
}

func TestScanWithoutMemoryReading(t *testing.T) {
	src := newFake()
	src.SetMemoryError(errors.New("meminfo unreadable"))
	s := New(src)
	s.ConfigureThreshold(1)

	snap, _, alerted := s.Scan(context.Background())

	assert.False(t, snap.Valid())
	assert.False(t, alerted)
	assert.Len(t, snap.Processes, 5, "process list is still collected")
}

func TestScanReadsMemoryOnce(t *testing.T) {
	src := newFake()
	s := New(src)

	snap, _, _ := s.Scan(context.Background())
	s.Scan(context.Background())

	assert.Equal(t, 2, src.MemoryReads())
	assert.Equal(t, int64(8_000_000), snap.TotalKB)
	assert.Equal(t, int64(1_000_000), snap.AvailableKB)
}

// splitSource hides MemoryKB so only the per-figure reads are available.
type splitSource struct{ source.Source }

func TestScanWithPerFigureSource(t *testing.T) {
	src := newFake()
	s := New(splitSource{src})

	snap, _, _ := s.Scan(context.Background())

	assert.Zero(t, src.MemoryReads())
	assert.Equal(t, int64(8_000_000), snap.TotalKB)
	assert.Equal(t, int64(1_000_000), snap.AvailableKB)
	assert.Len(t, snap.Processes, 5)
}

func TestRank(t *testing.T) {
	procs := []model.ProcessSample{{PID: 1, ResidentKB: 5}, {PID: 2, ResidentKB: 7}, {PID: 3, ResidentKB: 5}, {PID: 4, ResidentKB: 0}}
	Rank(procs)
	assert.Equal(t, []int32{2, 1, 3, 4}, pids(procs))
}
