package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OpenLogFile opens the dated log file for appName under dir, creating the
// directory when needed. Entries are appended, so several runs on the same
// day share one file.
func OpenLogFile(dir, appName string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFileName := fmt.Sprintf("%s-%s.log", appName, now.Format("2006-01-02"))
	logFilePath := filepath.Join(dir, logFileName)

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logFile, nil
}
