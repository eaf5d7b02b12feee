// Package source reads host memory and process state from the operating system.
package source

import (
	"context"
	"errors"
)

// ErrNotFound reports that a process no longer exists, typically because it
// exited between enumeration and lookup.
var ErrNotFound = errors.New("process not found")

// Source is a stateless view of the OS. Every call is a fresh query.
type Source interface {
	TotalMemoryKB(ctx context.Context) (int64, error)
	AvailableMemoryKB(ctx context.Context) (int64, error)
	ProcessIDs(ctx context.Context) ([]int32, error)
	// ResidentMemoryKB returns ErrNotFound (possibly wrapped) for a vanished pid.
	ResidentMemoryKB(ctx context.Context, pid int32) (int64, error)
	ProcessName(ctx context.Context, pid int32) (string, error)
}

// MemoryReader is implemented by sources that can report total and available
// memory from a single reading. Scans prefer it so both figures describe the
// same instant.
type MemoryReader interface {
	MemoryKB(ctx context.Context) (totalKB, availableKB int64, err error)
}
