package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Serial.BaudRate != 19200 || cfg.Serial.DataBits != 7 {
		t.Errorf("default line settings %d/%d, want 19200/7", cfg.Serial.BaudRate, cfg.Serial.DataBits)
	}
	if cfg.Display.Oversample != 5 || cfg.Display.Kernel != "bspline" {
		t.Errorf("default display %+v", cfg.Display)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"no port", func(c *Config) { c.Serial.Port = "" }, "serial port"},
		{"no port but simulated", func(c *Config) { c.Serial.Port = ""; c.Serial.Simulate = true }, ""},
		{"bad baud", func(c *Config) { c.Serial.BaudRate = 0 }, "baud rate"},
		{"bad data bits", func(c *Config) { c.Serial.DataBits = 9 }, "data bits"},
		{"bad timeout", func(c *Config) { c.Serial.ReadTimeout = 0 }, "read timeout"},
		{"bad kernel", func(c *Config) { c.Display.Kernel = "box" }, "unknown kernel"},
		{"bad oversample", func(c *Config) { c.Display.Oversample = 0 }, "oversample"},
		{"server without address", func(c *Config) { c.Server.Enabled = true; c.Server.Listen = "" }, "listen address"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"nothing to do", func(c *Config) { c.Display.TUI = false }, "nothing to do"},
		{"record only", func(c *Config) { c.Display.TUI = false; c.Capture.File = "x.ozf" }, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error=%v, want one mentioning %q", err, tc.want)
			}
		})
	}
}

func TestWriteAndLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := DefaultConfig()
	cfg.Serial.Port = "/dev/ttyUSB3"
	cfg.Serial.ReadTimeout = 250 * time.Millisecond
	cfg.Display.Kernel = "lanczos3"
	cfg.Server.Enabled = true

	filename := filepath.Join(tempDir, "config.yaml")
	if err := cfg.WriteFile(filename); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"serial:", "baud_rate: 19200", "read_timeout: 250ms", "kernel: lanczos3"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("config file lacks %q:\n%s", key, data)
		}
	}

	got, err := Load(filename)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", *got, *cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	filename := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(filename, []byte("display:\n  oversample: 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(filename)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Display.Oversample != 8 {
		t.Errorf("oversample=%d, want 8", cfg.Display.Oversample)
	}
	if cfg.Serial.BaudRate != 19200 || cfg.Display.Kernel != "bspline" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}
