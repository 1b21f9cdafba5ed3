// Package auditlog implements the append-only structured log required
// by spec §7: "a structured entry (timestamp, path, body, stack)
// appended to a local append-only log file on any uncaught exception."
//
// It is wired as a logrus hook over a size-rotated lumberjack writer, so
// every Error/Fatal call already made by request handlers also lands
// here with no second code path (spec §4.12 - this wires gigawallet's
// previously-required-but-unused lumberjack dependency into the audit
// sink).
package auditlog

import (
	"encoding/json"
	"os"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is one structured audit-log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Path      string    `json:"path,omitempty"`
	Body      string    `json:"body,omitempty"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// Hook is a logrus.Hook that appends Error-and-above entries to a
// rotated audit-log file.
type Hook struct {
	writer *lumberjack.Logger
}

// NewHook opens (creating if necessary) the rotated audit log at path.
func NewHook(path string) (*Hook, error) {
	if path == "" {
		path = "./dingo-bridge-audit.log"
	}
	// lumberjack creates the file lazily on first Write; touch it now so
	// permission errors surface at startup, not mid-request.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
		if ferr != nil {
			return nil, ferr
		}
		f.Close()
	}
	return &Hook{writer: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     90, // days
		Compress:   true,
	}}, nil
}

func (h *Hook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}
}

func (h *Hook) Fire(e *log.Entry) error {
	entry := Entry{
		Timestamp: e.Time,
		Level:     e.Level.String(),
		Message:   e.Message,
	}
	if path, ok := e.Data["path"].(string); ok {
		entry.Path = path
	}
	if body, ok := e.Data["body"].(string); ok {
		entry.Body = body
	}
	if e.Level <= log.ErrorLevel {
		entry.Stack = string(debug.Stack())
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = h.writer.Write(b)
	return err
}

// Close flushes and closes the underlying rotated writer.
func (h *Hook) Close() error {
	return h.writer.Close()
}

// Path returns the underlying log file's path, for the /log endpoint's
// read side (the Hook itself only ever appends).
func (h *Hook) Path() string {
	return h.writer.Filename
}

// Tail reads the last maxLines lines of the audit log at path, oldest
// first. Used by the authority-only /log endpoint (spec §6) to hand an
// operator a recent slice without shipping the whole rotated file.
func Tail(path string, maxLines int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := splitNonEmptyLines(string(data))
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
