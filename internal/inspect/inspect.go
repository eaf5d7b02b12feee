// Package inspect answers one-off questions about specific PIDs. Every call
// queries the source afresh; nothing here reads the sampler's snapshot.
package inspect

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/memwatch/internal/report"
	"github.com/Dicklesworthstone/memwatch/internal/source"
)

// Process describes the resident memory of a single pid.
func Process(ctx context.Context, src source.Source, pid int32) string {
	kb, err := src.ResidentMemoryKB(ctx, pid)
	if err != nil {
		return fmt.Sprintf("Could not find process with PID %d.", pid)
	}
	return fmt.Sprintf("PID %d is using %s.", pid, report.FormatMemory(kb))
}

// Compare reports the resident memory of two pids and which uses more.
func Compare(ctx context.Context, src source.Source, a, b int32) string {
	memA, errA := src.ResidentMemoryKB(ctx, a)
	memB, errB := src.ResidentMemoryKB(ctx, b)
	if errA != nil || errB != nil {
		return "Could not find one or both PIDs."
	}

	out := fmt.Sprintf("PID %d: %s | PID %d: %s. ", a, report.FormatMemory(memA), b, report.FormatMemory(memB))
	switch {
	case memA > memB:
		out += fmt.Sprintf("PID %d uses %s more.", a, report.FormatMemory(memA-memB))
	case memB > memA:
		out += fmt.Sprintf("PID %d uses %s more.", b, report.FormatMemory(memB-memA))
	default:
		out += "They use the same amount."
	}
	return out
}
