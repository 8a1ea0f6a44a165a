package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %q", cfg.Address)
	}
	if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Fatalf("expected default max upload size, got %d", cfg.UploadSizeBytes())
	}
	if cfg.ReadTimeoutDuration() != constants.DefaultServerReadTimeout {
		t.Fatalf("expected default read timeout, got %s", cfg.ReadTimeoutDuration())
	}
	if cfg.AllowTableFiles {
		t.Fatal("expected table files to be disallowed by default")
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.WriteTimeoutDuration() != constants.DefaultServerWriteTimeout {
		t.Fatalf("expected default write timeout, got %s", cfg.WriteTimeoutDuration())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-config.yaml")

	contents := []byte(`address: 127.0.0.1:9000
maxUploadSize: 2M
readTimeout: 5s
writeTimeout: 1m
allowTableFiles: true
logging:
  level: debug
  format: console
  outputFile: /tmp/server.log
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 2*1024*1024 {
		t.Fatalf("expected max upload override, got %d", cfg.UploadSizeBytes())
	}
	if cfg.ReadTimeoutDuration() != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %s", cfg.ReadTimeoutDuration())
	}
	if cfg.WriteTimeoutDuration() != time.Minute {
		t.Fatalf("expected write timeout 1m, got %s", cfg.WriteTimeoutDuration())
	}
	if !cfg.AllowTableFiles {
		t.Fatal("expected table files to be allowed")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected logging format console, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.OutputFile != "/tmp/server.log" {
		t.Fatalf("expected logging outputFile /tmp/server.log, got %s", cfg.Logging.OutputFile)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	testCases := map[string]string{
		"upload size":   "maxUploadSize: invalid",
		"read timeout":  "readTimeout: soon",
		"write timeout": "writeTimeout: 10 parsecs",
		"not yaml":      "address: [unterminated",
	}

	for name, contents := range testCases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
				t.Fatalf("failed to write temp config: %v", err)
			}

			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}
}

func TestSetUploadSizeBytes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetUploadSizeBytes(0)
	if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Fatalf("expected non-positive override to be ignored, got %d", cfg.UploadSizeBytes())
	}
	cfg.SetUploadSizeBytes(4096)
	if cfg.UploadSizeBytes() != 4096 || cfg.MaxUploadSize != "4096" {
		t.Fatalf("expected 4096 override, got %d (%s)", cfg.UploadSizeBytes(), cfg.MaxUploadSize)
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxUploadSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, input := range []string{"1G", "1TB", "abc"} {
		if _, err := ParseSize(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
