package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadValidConfigResolvesKeysDirRelativeToConfig(t *testing.T) {
	tmp := t.TempDir()
	keysDir := filepath.Join(tmp, "keys")
	if err := os.Mkdir(keysDir, 0o755); err != nil {
		t.Fatalf("mkdir keys dir: %v", err)
	}

	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
runtime:
  reader_index: 0
  log_level: debug
keys:
  dir: "keys"
  default_key_no: 0
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Keys.Dir != keysDir {
		t.Fatalf("expected resolved keys dir %q, got %q", keysDir, cfg.Keys.Dir)
	}
	if *cfg.Keys.DefaultKeyNo != 0 {
		t.Fatalf("expected default_key_no 0, got %d", *cfg.Keys.DefaultKeyNo)
	}
}

func TestLoadRejectsMissingReaderIndex(t *testing.T) {
	tmp := t.TempDir()
	keysDir := filepath.Join(tmp, "keys")
	if err := os.Mkdir(keysDir, 0o755); err != nil {
		t.Fatalf("mkdir keys dir: %v", err)
	}
	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
keys:
  dir: "keys"
  default_key_no: 0
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for missing runtime.reader_index")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tmp := t.TempDir()
	keysDir := filepath.Join(tmp, "keys")
	if err := os.Mkdir(keysDir, 0o755); err != nil {
		t.Fatalf("mkdir keys dir: %v", err)
	}
	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
runtime:
  reader_index: 0
keys:
  dir: "keys"
  default_key_no: 0
  bogus_field: true
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error for unknown field bogus_field")
	}
}

func TestLoadRejectsKeysDirThatIsAFile(t *testing.T) {
	tmp := t.TempDir()
	notADir := filepath.Join(tmp, "keys")
	if err := os.WriteFile(notADir, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	cfgPath := filepath.Join(tmp, "config.yaml")
	cfgYAML := `
runtime:
  reader_index: 0
keys:
  dir: "keys"
  default_key_no: 0
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("expected error when keys.dir points at a file")
	}
}
