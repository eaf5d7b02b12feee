// Package report renders snapshots as plain text and persists finished reports.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/memwatch/internal/model"
)

// Column widths for the process table. Longer values are not truncated.
const (
	NameWidth = 30
	PIDWidth  = 10
)

// TimeLayout is used for every timestamp written into reports and logs.
const TimeLayout = "2006-01-02 15:04:05"

var separator = strings.Repeat("-", 62)

// FormatMemory renders a kilobyte count in human units.
func FormatMemory(kb int64) string {
	switch {
	case kb < 0:
		return "N/A"
	case kb < 1024:
		return strconv.FormatInt(kb, 10) + " KB"
	case kb < 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(kb)/1024)
	default:
		return fmt.Sprintf("%.2f GB", float64(kb)/(1024*1024))
	}
}

// FormatReading is FormatMemory for system figures: without a valid total
// every figure renders as N/A.
func FormatReading(snap model.Snapshot, kb int64) string {
	if !snap.Valid() {
		return FormatMemory(-1)
	}
	return FormatMemory(kb)
}

// FormatRow renders one table row.
func FormatRow(p model.ProcessSample) string {
	return fmt.Sprintf("%-*s; %-*d; %s", NameWidth, p.Name, PIDWidth, p.PID, FormatMemory(p.ResidentKB))
}

// WriteTableHeader writes the column header and separator line.
func WriteTableHeader(w io.Writer) {
	fmt.Fprintf(w, "%-*s; %-*s; %s\n", NameWidth, "Name", PIDWidth, "PID", "Memory")
	fmt.Fprintln(w, separator)
}

// FormatTable writes a header, separator and one row per process.
func FormatTable(w io.Writer, rows []model.ProcessSample) {
	WriteTableHeader(w)
	for _, p := range rows {
		fmt.Fprintln(w, FormatRow(p))
	}
}

// TableString is FormatTable into a string.
func TableString(rows []model.ProcessSample) string {
	var b strings.Builder
	FormatTable(&b, rows)
	return b.String()
}

// WriteSnapshot writes the one-shot report: a header block of key: value
// lines, a blank line, then the process table.
func WriteSnapshot(w io.Writer, snap model.Snapshot) {
	fmt.Fprintln(w, "--- System Memory Report ---")
	fmt.Fprintf(w, "Generated: %s\n", snap.Taken.Format(TimeLayout))
	fmt.Fprintf(w, "Total Memory: %s\n", FormatReading(snap, snap.TotalKB))
	fmt.Fprintf(w, "Available Memory: %s\n", FormatReading(snap, snap.AvailableKB))
	fmt.Fprintf(w, "Used Memory: %s\n", FormatReading(snap, snap.UsedKB()))
	fmt.Fprintf(w, "Processes: %d\n", len(snap.Processes))
	fmt.Fprintln(w)
	FormatTable(w, snap.Processes)
}

// SnapshotString is WriteSnapshot into a string.
func SnapshotString(snap model.Snapshot) string {
	var b strings.Builder
	WriteSnapshot(&b, snap)
	return b.String()
}

// DefaultReportName is the suggested file name for a one-shot report taken at t.
func DefaultReportName(t time.Time) string {
	return "memory_report_" + t.Format("20060102_150405") + ".txt"
}
