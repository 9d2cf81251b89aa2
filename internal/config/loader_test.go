package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ndesigns_dir: /tmp/designs\nengine_bin: /usr/bin/scad-host\ndebounce_ms: 500\ncache_max_entries: 20\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DesignsDir != "/tmp/designs" || cfg.EngineBin != "/usr/bin/scad-host" || cfg.DebounceMs != 500 || cfg.CacheMaxEntries != 20 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","engine_bin":"/opt/host","engine_args":["--headless"],"preview_timeout_ms":15000,"cache_max_bytes":1048576}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.EngineBin != "/opt/host" || len(cfg.EngineArgs) != 1 || cfg.PreviewTimeoutMs != 15000 || cfg.CacheMaxBytes != 1048576 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ndesigns_dir=\"/d\"\nfull_timeout_ms=240000\npreview_max_detail=24\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.DesignsDir != "/d" || cfg.FullTimeoutMs != 240000 || cfg.PreviewMaxDetail != 24 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.ini", "addr=:1\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: [unclosed\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}
