// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/modularui/lib/compression"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modularui.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Server.TickInterval != 50*time.Millisecond {
		t.Errorf("expected tick_interval=50ms, got %v", cfg.Server.TickInterval)
	}
	if cfg.Protocol.Compression != "lz4" {
		t.Errorf("expected compression=lz4, got %s", cfg.Protocol.Compression)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv("MODULARUI_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when MODULARUI_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "MODULARUI_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
environment: staging
server:
  listen: 0.0.0.0:9000
  tick_interval: 100ms
protocol:
  compression: zstd
`)
	t.Setenv("MODULARUI_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("expected listen=0.0.0.0:9000, got %s", cfg.Server.Listen)
	}
	if cfg.Server.TickInterval != 100*time.Millisecond {
		t.Errorf("expected tick_interval=100ms, got %v", cfg.Server.TickInterval)
	}
	if cfg.Protocol.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Protocol.Compression)
	}
	// Unset fields keep their defaults.
	if cfg.Protocol.CompressionThreshold != 1024 {
		t.Errorf("expected default compression_threshold=1024, got %d", cfg.Protocol.CompressionThreshold)
	}
}

func TestLoadFile_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: staging
server:
  tick_interval: 50ms
staging:
  server:
    tick_interval: 250ms
  log:
    level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.TickInterval != 250*time.Millisecond {
		t.Errorf("expected staging tick_interval=250ms, got %v", cfg.Server.TickInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected staging log level=debug, got %s", cfg.Log.Level)
	}
}

func TestLoadFile_ProductionDefaults(t *testing.T) {
	path := writeConfig(t, "environment: production\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected production log format=json, got %s", cfg.Log.Format)
	}
	if cfg.Protocol.MaxPayload != 4*1024*1024 {
		t.Errorf("expected production max_payload=4MiB, got %d", cfg.Protocol.MaxPayload)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Environment = "qa"
	cfg.Server.TickInterval = 0
	cfg.Protocol.Compression = "brotli"
	cfg.Log.Level = "trace"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"invalid environment", "tick_interval", "compression", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error %q does not mention %q", err.Error(), want)
		}
	}
}

func TestFrameOptions(t *testing.T) {
	cfg := Default()
	cfg.Protocol.Compression = "zstd"

	options, err := cfg.Protocol.FrameOptions()
	if err != nil {
		t.Fatalf("FrameOptions: %v", err)
	}
	if options.Compression != compression.Zstd {
		t.Errorf("compression = %v, want zstd", options.Compression)
	}
	if options.MaxPayload != cfg.Protocol.MaxPayload || options.CompressionThreshold != cfg.Protocol.CompressionThreshold {
		t.Errorf("options = %+v, want limits copied from %+v", options, cfg.Protocol)
	}

	cfg.Protocol.Compression = "brotli"
	if _, err := cfg.Protocol.FrameOptions(); err == nil {
		t.Error("expected error for unknown compression")
	}
}
