// Package alert decides whether a memory reading breaches the configured threshold.
package alert

import "fmt"

// UsedPercent returns the share of memory in use, truncated toward zero.
// It returns 0 without a valid reading.
func UsedPercent(totalKB, availableKB int64) int {
	if totalKB <= 0 {
		return 0
	}
	return int(100 * (totalKB - availableKB) / totalKB)
}

// Evaluate returns an alert message when usage is strictly above
// thresholdPercent. A threshold <= 0 disables alerting, as does a reading
// with no total. There is no suppression: a sustained breach alerts on every call.
func Evaluate(totalKB, availableKB int64, thresholdPercent int) (string, bool) {
	if thresholdPercent <= 0 || totalKB <= 0 {
		return "", false
	}
	used := UsedPercent(totalKB, availableKB)
	if used <= thresholdPercent {
		return "", false
	}
	return fmt.Sprintf("Warning: Memory usage is at %d%%, exceeding threshold of %d%%!", used, thresholdPercent), true
}
