package domain

import "time"

// LogLevel classifies a log entry
type LogLevel string

// Log levels.
const (
	LogError   LogLevel = "error"
	LogWarn    LogLevel = "warn"
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
)

// LogEntry represents one structured log record. Entries are immutable
// once created and discarded after a flush.
type LogEntry struct {
	Level     LogLevel
	Message   string
	Data      map[string]any
	Timestamp time.Time
}

// Color returns the embed color for the entry's level
func (e *LogEntry) Color() int {
	switch e.Level {
	case LogError:
		return ColorError
	case LogWarn:
		return ColorWarning
	case LogSuccess:
		return ColorSuccess
	default:
		return ColorInfo
	}
}
