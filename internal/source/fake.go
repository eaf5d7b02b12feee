package source

import (
	"context"
	"sync"
)

// FakeProcess is one entry in a Fake process table.
type FakeProcess struct {
	PID        int32
	ResidentKB int64
	Name       string
}

// Fake is an in-memory Source for tests. Processes are enumerated in the
// order they were set. Safe for concurrent use.
type Fake struct {
	mu        sync.Mutex
	total     int64
	available int64
	memErr    error
	procs     []FakeProcess
	vanished  map[int32]bool
	calls     int
	memReads  int
}

// NewFake returns a Fake reporting the given memory figures and processes.
func NewFake(totalKB, availableKB int64, procs ...FakeProcess) *Fake {
	return &Fake{total: totalKB, available: availableKB, procs: procs, vanished: map[int32]bool{}}
}

// SetMemory replaces the reported memory figures.
func (f *Fake) SetMemory(totalKB, availableKB int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total, f.available = totalKB, availableKB
}

// SetMemoryError makes memory reads fail with err (nil restores them).
func (f *Fake) SetMemoryError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memErr = err
}

// SetProcesses replaces the process table.
func (f *Fake) SetProcesses(procs ...FakeProcess) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.procs = procs
	f.vanished = map[int32]bool{}
}

// Vanish keeps pid in the enumeration but fails its detail lookups, like a
// process that exits mid-scan.
func (f *Fake) Vanish(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vanished[pid] = true
}

// ScanCalls returns how many times ProcessIDs was called.
func (f *Fake) ScanCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MemoryReads returns how many times MemoryKB was called.
func (f *Fake) MemoryReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memReads
}

func (f *Fake) MemoryKB(context.Context) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memReads++
	if f.memErr != nil {
		return 0, 0, f.memErr
	}
	return f.total, f.available, nil
}

func (f *Fake) TotalMemoryKB(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, f.memErr
}

func (f *Fake) AvailableMemoryKB(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available, f.memErr
}

func (f *Fake) ProcessIDs(context.Context) ([]int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	pids := make([]int32, len(f.procs))
	for i, p := range f.procs {
		pids[i] = p.PID
	}
	return pids, nil
}

func (f *Fake) ResidentMemoryKB(_ context.Context, pid int32) (int64, error) {
	p, ok := f.lookup(pid)
	if !ok {
		return 0, ErrNotFound
	}
	return p.ResidentKB, nil
}

func (f *Fake) ProcessName(_ context.Context, pid int32) (string, error) {
	p, ok := f.lookup(pid)
	if !ok {
		return "", ErrNotFound
	}
	return p.Name, nil
}

func (f *Fake) lookup(pid int32) (FakeProcess, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vanished[pid] {
		return FakeProcess{}, false
	}
	for _, p := range f.procs {
		if p.PID == pid {
			return p, true
		}
	}
	return FakeProcess{}, false
}
