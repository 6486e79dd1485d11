package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/sheerbytes/filexfer/internal/transfer"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlagSet(t), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults %+v, got %+v", Default(), cfg)
	}
}

func TestLoad_Flags(t *testing.T) {
	fs := newFlagSet(t, "--addr", "quic://10.0.0.1:7000", "--log-level", "debug", "--chunk-size", "4096", "--progress=false")
	cfg, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "quic://10.0.0.1:7000" {
		t.Errorf("expected Addr from flag, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel debug, got %s", cfg.LogLevel)
	}
	if cfg.ChunkSize != 4096 {
		t.Errorf("expected ChunkSize 4096, got %d", cfg.ChunkSize)
	}
	if cfg.Progress {
		t.Errorf("expected Progress false")
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("FILEXFER_ADDR", "ws://example:8080/xfer")
	t.Setenv("FILEXFER_LOG_LEVEL", "warn")
	t.Setenv("FILEXFER_SKIP_SPACE_CHECK", "true")

	cfg, err := Load(newFlagSet(t), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "ws://example:8080/xfer" {
		t.Errorf("expected Addr from env, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected LogLevel warn, got %s", cfg.LogLevel)
	}
	if !cfg.SkipSpaceCheck {
		t.Errorf("expected SkipSpaceCheck from env")
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("FILEXFER_ADDR", "tcp://env:1")

	cfg, err := Load(newFlagSet(t, "--addr", "tcp://flag:2"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "tcp://flag:2" {
		t.Errorf("expected flag to win, got %s", cfg.Addr)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filexfer.yaml")
	content := "addr: tcp://file:3\nroot: /srv/files\nchunk-size: 1024\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FILEXFER_ROOT", "/from/env")

	cfg, err := Load(newFlagSet(t), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "tcp://file:3" {
		t.Errorf("expected Addr from file, got %s", cfg.Addr)
	}
	if cfg.Root != "/from/env" {
		t.Errorf("expected env to override file, got %s", cfg.Root)
	}
	if cfg.ChunkSize != 1024 {
		t.Errorf("expected ChunkSize 1024, got %d", cfg.ChunkSize)
	}
}

func TestLoad_RejectsBadChunkSize(t *testing.T) {
	for _, arg := range []string{"0", "65537"} {
		if _, err := Load(newFlagSet(t, "--chunk-size", arg), ""); err == nil {
			t.Errorf("expected error for chunk-size %s", arg)
		}
	}
}

func TestValidate_ChunkSizeFollowsWireLimit(t *testing.T) {
	cfg := Default()
	if cfg.ChunkSize != transfer.MaxChunkSize {
		t.Fatalf("expected default chunk size %d, got %d", transfer.MaxChunkSize, cfg.ChunkSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("max chunk size rejected: %v", err)
	}
	cfg.ChunkSize = transfer.MaxChunkSize + 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error above the wire limit")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	if _, err := Load(newFlagSet(t), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FILEXFER_LOG_FORMAT=json\nFILEXFER_ADDR=tcp://dotenv:4\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FILEXFER_ADDR", "tcp://already:5")
	t.Setenv("FILEXFER_LOG_FORMAT", "")
	os.Unsetenv("FILEXFER_LOG_FORMAT")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg, err := Load(newFlagSet(t), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected LogFormat from .env, got %s", cfg.LogFormat)
	}
	if cfg.Addr != "tcp://already:5" {
		t.Errorf(".env must not override existing env, got %s", cfg.Addr)
	}
}
