// Package debug provides a verbose structured logger for development diagnostics.
//
// When enabled via --debug, every significant engine event (stream opens,
// event dispatch, reconcile decisions, REST calls) is written to a single
// .log file under ~/.zaoya/debug/. The log includes nanosecond timestamps,
// goroutine IDs, caller locations, and the relevant context ids (build id,
// session id, task id) so that any execution path can be reconstructed after
// the fact.
//
// When disabled (the default), all logging functions are no-ops.
package debug

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// logger is the global debug logger. nil when debug mode is off.
var (
	logger   *Logger
	loggerMu sync.RWMutex
)

const (
	// EnvEnabled toggles debug logger initialization from the environment.
	EnvEnabled = "ZAOYA_DEBUG_ENABLED"
	// EnvLogPath forces logs to be appended to an existing debug file.
	EnvLogPath = "ZAOYA_DEBUG_LOG_PATH"
)

// Logger writes structured debug lines to a file.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	startedAt time.Time
	pid       int
}

// Init initializes the global debug logger. It creates ~/.zaoya/debug/ if
// needed and opens a log file named with the current timestamp and a random
// hex suffix. Returns the log file path. All Log/Logf calls are no-ops until
// Init succeeds.
func Init() (string, error) {
	loggerMu.RLock()
	if logger != nil {
		p := logger.path
		loggerMu.RUnlock()
		return p, nil
	}
	loggerMu.RUnlock()

	path, err := resolveLogPath()
	if err != nil {
		return "", err
	}
	now := time.Now()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("debug: open log %s: %w", path, err)
	}

	l := &Logger{
		file:      f,
		path:      path,
		startedAt: now,
		pid:       os.Getpid(),
	}
	header := fmt.Sprintf(
		"=== ZAOYA DEBUG LOG ===\nStarted: %s\nPID: %d\nFile: %s\n===\n\n",
		now.Format(time.RFC3339Nano),
		l.pid,
		path,
	)
	f.WriteString(header)

	loggerMu.Lock()
	if logger != nil {
		p := logger.path
		loggerMu.Unlock()
		_ = f.Close()
		return p, nil
	}
	logger = l
	loggerMu.Unlock()

	return path, nil
}

// Close flushes and closes the debug log. Safe to call when not initialized.
func Close() {
	loggerMu.Lock()
	l := logger
	logger = nil
	loggerMu.Unlock()

	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.startedAt)
	l.file.WriteString(fmt.Sprintf("\n=== DEBUG LOG CLOSED === (pid=%d duration=%s)\n", l.pid, elapsed))
	l.file.Close()
}

// Enabled returns true if the debug logger is active.
func Enabled() bool {
	loggerMu.RLock()
	e := logger != nil
	loggerMu.RUnlock()
	return e
}

// Path returns the log file path, or "" if not enabled.
func Path() string {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return ""
	}
	return l.path
}

// ShouldEnableFromEnv returns true when debug logging should be initialized
// based on environment variables.
func ShouldEnableFromEnv() bool {
	path := strings.TrimSpace(os.Getenv(EnvLogPath))
	toggle := strings.TrimSpace(strings.ToLower(os.Getenv(EnvEnabled)))
	switch toggle {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return path != ""
	}
}

// Log writes a debug line. No-op when debug is disabled.
// The line is prefixed with a nanosecond timestamp, goroutine ID, and caller.
func Log(component, msg string) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return
	}
	l.write(component, msg, 2)
}

// Logf writes a formatted debug line. No-op when debug is disabled.
func Logf(component, format string, args ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return
	}
	l.write(component, fmt.Sprintf(format, args...), 2)
}

// LogKV writes a debug line with key-value context pairs.
// Usage: debug.LogKV("stream", "event received", "build_id", id, "event", name)
func LogKV(component, msg string, kvs ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return
	}

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kvs); i += 2 {
		b.WriteString(fmt.Sprintf(" %v=%v", kvs[i], kvs[i+1]))
	}
	l.write(component, b.String(), 2)
}

// write formats and appends a single log line.
func (l *Logger) write(component, msg string, callerSkip int) {
	now := time.Now()
	elapsed := now.Sub(l.startedAt)

	gid := goroutineID()

	_, file, line, ok := runtime.Caller(callerSkip)
	caller := "??:0"
	if ok {
		// Shorten to package/file.go:line
		if idx := strings.LastIndex(file, "/internal/"); idx >= 0 {
			file = file[idx+1:]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	// Format: TIMESTAMP +ELAPSED [PID] [GID] [COMPONENT] CALLER | MESSAGE
	out := fmt.Sprintf("%s +%12s [P%-6d] [G%-6d] [%-12s] %-36s | %s\n",
		now.Format("15:04:05.000000000"),
		elapsed.Truncate(time.Microsecond),
		l.pid,
		gid,
		component,
		caller,
		msg,
	)

	l.mu.Lock()
	l.file.WriteString(out)
	l.mu.Unlock()
}

func resolveLogPath() (string, error) {
	if inherited := strings.TrimSpace(os.Getenv(EnvLogPath)); inherited != "" {
		dir := filepath.Dir(inherited)
		if dir != "." && dir != string(filepath.Separator) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("debug: create dir %s: %w", dir, err)
			}
		}
		return inherited, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("debug: user home dir: %w", err)
	}

	dir := filepath.Join(home, ".zaoya", "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("debug: create dir %s: %w", dir, err)
	}

	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("debug: random suffix: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("20060102T150405"), hex.EncodeToString(suffix[:]))
	return filepath.Join(dir, filename), nil
}

// goroutineID extracts the goroutine ID from runtime.Stack output.
// This is intentionally used only in debug mode where performance is secondary.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := string(buf[:n])
	// Format: "goroutine 123 [..."
	if !strings.HasPrefix(s, "goroutine ") {
		return 0
	}
	s = s[len("goroutine "):]
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
