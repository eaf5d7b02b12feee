package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Dicklesworthstone/memwatch/internal/errors"
)

// Save writes text to path through a temporary file and rename, so a
// reader never sees a partial report. Failures are returned as
// apperrors.PersistError.
func Save(path, text string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return apperrors.PersistError{Path: path, Cause: fmt.Errorf("empty path")}
	}
	if err := save(trimmed, text); err != nil {
		return apperrors.PersistError{Path: trimmed, Cause: err}
	}
	return nil
}

func save(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".report-*.txt")
	if err != nil {
		return fmt.Errorf("create temp report file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(text); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp report file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp report file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace report file: %w", err)
	}
	tmpPath = ""
	return nil
}
