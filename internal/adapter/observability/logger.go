// Package observability provides the leveled structured logger every
// component receives through constructor injection.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Level is the logging verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// ParseLevel maps a configured level string to a Level. ok is false for
// unrecognized values.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

// DefaultFormat picks the log format when none is configured: human for
// an interactive terminal, JSON lines for CI job logs.
func DefaultFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return FormatHuman
	}
	return FormatJSON
}

// Logger writes leveled, structured log lines in human or JSON format.
// It is safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	format string
	now    func() time.Time
}

// New builds a Logger from configured level and format strings. An
// unrecognized level falls back to info with a warning rather than
// failing the run; an empty format resolves by TTY detection.
func New(level, format string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	if format != FormatHuman && format != FormatJSON {
		format = DefaultFormat()
	}

	parsed, ok := ParseLevel(level)
	l := &Logger{out: out, level: parsed, format: format, now: time.Now}
	if !ok {
		l.Warn("unrecognized log level, using info", map[string]any{"level": level})
	}
	return l
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields map[string]any) { l.log(LevelDebug, msg, fields) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields map[string]any) { l.log(LevelInfo, msg, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields map[string]any) { l.log(LevelWarn, msg, fields) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields map[string]any) { l.log(LevelError, msg, fields) }

func (l *Logger) log(level Level, msg string, fields map[string]any) {
	if level < l.level {
		return
	}

	fields = redactFields(fields)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == FormatJSON {
		entry := make(map[string]any, len(fields)+3)
		for k, v := range fields {
			entry[k] = v
		}
		entry["time"] = l.now().UTC().Format(time.RFC3339)
		entry["level"] = level.String()
		entry["msg"] = msg
		line, err := json.Marshal(entry)
		if err != nil {
			// A field value that cannot marshal should not lose the line.
			line, _ = json.Marshal(map[string]any{
				"time":  l.now().UTC().Format(time.RFC3339),
				"level": level.String(),
				"msg":   msg,
			})
		}
		fmt.Fprintf(l.out, "%s\n", line)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(level.String()), msg)
	for _, key := range sortedKeys(fields) {
		fmt.Fprintf(&b, " %s=%v", key, fields[key])
	}
	fmt.Fprintln(l.out, b.String())
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RedactSecret keeps the last four characters of a credential for log
// correlation and hides the rest.
func RedactSecret(secret string) string {
	if len(secret) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", secret[len(secret)-4:])
}

// redactFields replaces string values under credential-named keys so a
// token passed as a log field never reaches the output verbatim. The
// input map is left untouched; call sites may reuse it.
func redactFields(fields map[string]any) map[string]any {
	var redacted map[string]any
	for key, value := range fields {
		s, ok := value.(string)
		if !ok || s == "" || !sensitiveKey(key) {
			continue
		}
		if redacted == nil {
			redacted = make(map[string]any, len(fields))
			for k, v := range fields {
				redacted[k] = v
			}
		}
		redacted[key] = RedactSecret(s)
	}
	if redacted == nil {
		return fields
	}
	return redacted
}

func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, fragment := range []string{"api_key", "apikey", "token", "secret", "password", "authorization", "credential"} {
		if strings.Contains(k, fragment) {
			return true
		}
	}
	return false
}
