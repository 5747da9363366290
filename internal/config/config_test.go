package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/cursorsync/internal/cursor"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.PollInterval != 33*time.Millisecond {
		t.Fatalf("expected 33ms poll interval, got %s", cfg.PollInterval)
	}
	if cfg.IdentityMode() != cursor.IdentitySampled {
		t.Fatalf("expected sampled identity, got %q", cfg.IdentityMode())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
	if res.Config.Cache.MaxEntries != DefaultCacheMaxEntries {
		t.Fatalf("expected default max_entries, got %d", res.Config.Cache.MaxEntries)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Snapshot.Format != SnapshotPNG {
		t.Fatalf("expected png snapshot default, got %q", res.Config.Snapshot.Format)
	}
	if !res.Config.IPC.Enabled {
		t.Fatalf("expected ipc enabled by default")
	}
}

func TestLoadFromPath_AllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"poll_interval: 16ms",
		"identity: content",
		"log_level: DEBUG",
		"display: \":1\"",
		"xauthority: /tmp/test-xauth",
		"cache:",
		"  max_entries: 8",
		"ipc:",
		"  enabled: false",
		"  socket: /tmp/cs.sock",
		"snapshot:",
		"  format: cbor",
		"  scale: 2",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.PollInterval != 16*time.Millisecond {
		t.Fatalf("poll_interval = %s", cfg.PollInterval)
	}
	if cfg.IdentityMode() != cursor.IdentityContent {
		t.Fatalf("identity = %q", cfg.Identity)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Display != ":1" || cfg.XAuthority != "/tmp/test-xauth" {
		t.Fatalf("display/xauthority = %q/%q", cfg.Display, cfg.XAuthority)
	}
	if cfg.Cache.MaxEntries != 8 {
		t.Fatalf("max_entries = %d", cfg.Cache.MaxEntries)
	}
	if cfg.IPC.Enabled || cfg.IPC.Socket != "/tmp/cs.sock" {
		t.Fatalf("ipc = %+v", cfg.IPC)
	}
	if cfg.Snapshot.Format != SnapshotCBOR || cfg.Snapshot.Scale != 2 {
		t.Fatalf("snapshot = %+v", cfg.Snapshot)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		path string
	}{
		{"poll too fast", "poll_interval: 1us\n", "poll_interval"},
		{"bad identity", "identity: exact\n", "identity"},
		{"bad log level", "log_level: loud\n", "log_level"},
		{"zero cache", "cache:\n  max_entries: 0\n", "cache.max_entries"},
		{"relative socket", "ipc:\n  socket: run/cs.sock\n", "ipc.socket"},
		{"bad format", "snapshot:\n  format: gif\n", "snapshot.format"},
		{"huge scale", "snapshot:\n  scale: 100\n", "snapshot.scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.yaml)

			_, err := LoadFromPath(path)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
			if verr.Source.Kind != SourceFile || verr.Source.Line == 0 {
				t.Fatalf("expected file source, got %+v", verr.Source)
			}
		})
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(configD, "10-base.yaml"), "cache:\n  max_entries: 5\nlog_level: warning\n")
	writeFile(t, filepath.Join(configD, "20-override.yaml"), "cache:\n  max_entries: 6\n")

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include:\n  - config.d\ncache:\n  max_entries: 7\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Cache.MaxEntries != 7 {
		t.Fatalf("expected max_entries 7, got %d", res.Config.Cache.MaxEntries)
	}
	if res.Config.LogLevel != "warning" {
		t.Fatalf("expected log_level from include, got %q", res.Config.LogLevel)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestExplain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "identity: content\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "identity")
	if err != nil {
		t.Fatalf("explain identity: %v", err)
	}
	if val != "content" || src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("identity = %#v from %+v", val, src)
	}

	val, src, err = Explain(res, "cache.max_entries")
	if err != nil {
		t.Fatalf("explain cache.max_entries: %v", err)
	}
	if val != DefaultCacheMaxEntries || src.Kind != SourceDefault {
		t.Fatalf("cache.max_entries = %#v from %+v", val, src)
	}

	if _, _, err := Explain(res, "cache.bogus"); err == nil {
		t.Fatalf("expected unknown path error")
	}
	if _, _, err := Explain(res, "identity.x"); err == nil {
		t.Fatalf("expected unknown path error for nested leaf")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.PollInterval = 50 * time.Millisecond
	cfg.Snapshot.Format = SnapshotCBOR
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.PollInterval != 50*time.Millisecond || res.Config.Snapshot.Format != SnapshotCBOR {
		t.Fatalf("round trip = %+v", res.Config)
	}
}

func TestSaveTo_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.MaxEntries = 0
	if err := cfg.SaveTo(filepath.Join(t.TempDir(), "config.yaml")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := DefaultConfig()
	for level, want := range map[string]string{
		"debug":   "DEBUG",
		"info":    "INFO",
		"warning": "WARN",
		"error":   "ERROR",
	} {
		cfg.LogLevel = level
		if got := cfg.SlogLevel().String(); got != want {
			t.Errorf("SlogLevel(%q) = %s, want %s", level, got, want)
		}
	}
}
