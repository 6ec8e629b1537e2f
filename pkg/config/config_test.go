package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MudName != "Lodestone" {
		t.Fatalf("expected default MudName, got %q", cfg.MudName)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lodestone.yaml")
	if err := os.WriteFile(path, []byte("mud_name: TestMUD\ntcp_addr: \":9999\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MudName != "TestMUD" {
		t.Fatalf("expected overridden MudName, got %q", cfg.MudName)
	}
	if cfg.TCPAddr != ":9999" {
		t.Fatalf("expected overridden TCPAddr, got %q", cfg.TCPAddr)
	}
	if cfg.TickIntervalMs != Default().TickIntervalMs {
		t.Fatalf("expected untouched fields to keep their defaults")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("mud_name: [unterminated"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected malformed YAML to error")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lodestone.yaml")
	if err := os.WriteFile(path, []byte("mud_name: Initial\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	store := NewStore(cfg)

	stop, err := Watch(store, path)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("mud_name: Updated\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitFor(t, func() bool { return store.Get().MudName == "Updated" })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition never became true")
}
