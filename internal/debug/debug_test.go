package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShouldEnableFromEnv(t *testing.T) {
	cases := []struct {
		name    string
		enabled string
		path    string
		want    bool
	}{
		{name: "unset", want: false},
		{name: "enabled 1", enabled: "1", want: true},
		{name: "enabled true", enabled: "true", want: true},
		{name: "enabled yes", enabled: "YES", want: true},
		{name: "disabled 0", enabled: "0", want: false},
		{name: "disabled overrides path", enabled: "off", path: "/tmp/zaoya-debug.log", want: false},
		{name: "path alone enables", path: "/tmp/zaoya-debug.log", want: true},
		{name: "garbage toggle no path", enabled: "maybe", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvEnabled, tc.enabled)
			t.Setenv(EnvLogPath, tc.path)
			if got := ShouldEnableFromEnv(); got != tc.want {
				t.Fatalf("ShouldEnableFromEnv() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInitInheritedPathAppends(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "zaoya.log")
	t.Setenv(EnvLogPath, logPath)
	t.Cleanup(Close)

	path, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if path != logPath {
		t.Fatalf("Init path = %q, want inherited %q", path, logPath)
	}
	if !Enabled() {
		t.Fatal("Enabled() = false after Init")
	}
	if Path() != logPath {
		t.Fatalf("Path() = %q, want %q", Path(), logPath)
	}

	// Init is idempotent while the logger is live.
	again, err := Init()
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if again != logPath {
		t.Fatalf("second Init path = %q, want %q", again, logPath)
	}

	Log("stream", "connection opened")
	Logf("reconcile", "adopted session %s", "sess-1")
	LogKV("api", "request done", "status", 200, "path", "/api/v1/builds/b1")
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "=== ZAOYA DEBUG LOG ===") {
		t.Fatalf("missing header, got:\n%s", content)
	}
	if !strings.Contains(content, "connection opened") {
		t.Fatalf("missing Log line, got:\n%s", content)
	}
	if !strings.Contains(content, "adopted session sess-1") {
		t.Fatalf("missing Logf line, got:\n%s", content)
	}
	if !strings.Contains(content, "request done status=200 path=/api/v1/builds/b1") {
		t.Fatalf("missing LogKV line, got:\n%s", content)
	}
	if !strings.Contains(content, "[stream") {
		t.Fatalf("missing component tag, got:\n%s", content)
	}
	if !strings.Contains(content, "=== DEBUG LOG CLOSED ===") {
		t.Fatalf("missing close marker, got:\n%s", content)
	}
}

func TestLogNoOpWhenDisabled(t *testing.T) {
	Close()
	if Enabled() {
		t.Fatal("Enabled() = true before Init")
	}
	if Path() != "" {
		t.Fatalf("Path() = %q, want empty", Path())
	}
	// Must not panic.
	Log("stream", "ignored")
	Logf("api", "ignored %d", 1)
	LogKV("reconcile", "ignored", "k", "v")
}
