package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the log file for one run started at runStart.
func LogFilePath(logsDir, prefix string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", prefix, runStart.Format("20060102_150405")),
	)
}
