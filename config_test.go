package omnibridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
osascript_path: /opt/local/bin/osascript
script_timeout: 45s
batch_warn_size: 100
cache_ttls:
  tasks: 2m
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.OsascriptPath != "/opt/local/bin/osascript" {
		t.Errorf("path not overlaid: %s", cfg.OsascriptPath)
	}
	if cfg.ScriptTimeout != 45*time.Second {
		t.Errorf("timeout not overlaid: %s", cfg.ScriptTimeout)
	}
	if cfg.BatchWarnSize != 100 {
		t.Errorf("batch size not overlaid: %d", cfg.BatchWarnSize)
	}
	if cfg.CacheTTLs[NamespaceTasks] != 2*time.Minute {
		t.Errorf("namespace ttl not overlaid: %s", cfg.CacheTTLs[NamespaceTasks])
	}
	// Untouched fields keep their defaults.
	if cfg.CacheTTLs[NamespaceFolders] != 5*time.Minute {
		t.Errorf("unrelated ttl changed: %s", cfg.CacheTTLs[NamespaceFolders])
	}
}

func TestLoadConfig_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "osascript_paht: /usr/bin/osascript\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("misspelled keys should be rejected")
	}
}

func TestLoadConfig_RejectsBadDurations(t *testing.T) {
	for _, content := range []string{
		"script_timeout: soon\n",
		"default_ttl: -5s\n",
	} {
		path := writeConfig(t, content)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("config %q should be rejected", content)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
