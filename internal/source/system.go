package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// System is the gopsutil-backed Source for the local host.
type System struct{}

// NewSystem returns a Source reading the local host.
func NewSystem() System { return System{} }

// MemoryKB reads total and available memory from one virtual memory sample.
func (System) MemoryKB(ctx context.Context) (totalKB, availableKB int64, err error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read virtual memory: %w", err)
	}
	return int64(vm.Total / 1024), int64(vm.Available / 1024), nil
}

func (s System) TotalMemoryKB(ctx context.Context) (int64, error) {
	total, _, err := s.MemoryKB(ctx)
	return total, err
}

func (s System) AvailableMemoryKB(ctx context.Context) (int64, error) {
	_, avail, err := s.MemoryKB(ctx)
	return avail, err
}

func (System) ProcessIDs(ctx context.Context) ([]int32, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	return pids, nil
}

func (System) ResidentMemoryKB(ctx context.Context, pid int32) (int64, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, notFound(pid, err)
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return 0, notFound(pid, err)
	}
	return int64(info.RSS / 1024), nil
}

func (System) ProcessName(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", notFound(pid, err)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("name of pid %d: %w", pid, err)
	}
	return name, nil
}

// notFound folds gopsutil's lookup failures into ErrNotFound. A process that
// is gone and one whose status can no longer be read are indistinguishable to
// a scan, so both count as a miss.
func notFound(pid int32, cause error) error {
	if cause == nil || errors.Is(cause, process.ErrorProcessNotRunning) {
		return fmt.Errorf("pid %d: %w", pid, ErrNotFound)
	}
	return fmt.Errorf("pid %d: %w: %v", pid, ErrNotFound, cause)
}
