package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interview.AnswerSeconds != 59 {
		t.Fatalf("expected 59 answer seconds, got %d", cfg.Interview.AnswerSeconds)
	}
	if cfg.STT.Mode != "scripted" {
		t.Fatalf("expected scripted stt mode, got %q", cfg.STT.Mode)
	}
	if cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 || cfg.Camera.FacingMode != "user" {
		t.Fatalf("unexpected camera defaults: %+v", cfg.Camera)
	}
	if cfg.Bus.Enabled {
		t.Fatal("expected bus disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loqa.yaml")
	data := []byte(`interview:
  answer_seconds: 30
  question_bank: ./bank.yaml
stt:
  mode: exec
  command: whisper-stream --model tiny
camera:
  mode: none
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interview.AnswerSeconds != 30 {
		t.Fatalf("expected answer seconds 30, got %d", cfg.Interview.AnswerSeconds)
	}
	if cfg.Interview.TickIntervalMS != 1000 {
		t.Fatalf("expected default tick interval to survive partial file, got %d", cfg.Interview.TickIntervalMS)
	}
	if cfg.STT.Command != "whisper-stream --model tiny" {
		t.Fatalf("unexpected stt command %q", cfg.STT.Command)
	}
	if cfg.Camera.Mode != "none" {
		t.Fatalf("unexpected camera mode %q", cfg.Camera.Mode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_BUS_ENABLED", "true")
	t.Setenv("LOQA_BUS_EMBEDDED", "false")
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_USERNAME", "alice")
	t.Setenv("LOQA_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_STT_MODE", "bus")
	t.Setenv("LOQA_STT_SESSION_ID", "kiosk-1")
	t.Setenv("LOQA_INTERVIEW_ANSWER_SECONDS", "45")
	t.Setenv("LOQA_INTERVIEW_EXCELLENT_THRESHOLD", "90")
	t.Setenv("LOQA_CAMERA_ENABLED", "false")
	t.Setenv("LOQA_UI_NO_COLOR", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.STT.Mode != "bus" || cfg.STT.SessionID != "kiosk-1" {
		t.Fatalf("expected stt override, got %+v", cfg.STT)
	}
	if cfg.Interview.AnswerSeconds != 45 {
		t.Fatalf("expected answer seconds override")
	}
	if cfg.Interview.ExcellentThreshold != 90 {
		t.Fatalf("expected threshold override")
	}
	if cfg.Camera.Enabled {
		t.Fatalf("expected camera disabled")
	}
	if !cfg.UI.NoColor {
		t.Fatalf("expected no-color override")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"empty runtime name":  func(c *Config) { c.RuntimeName = "" },
		"zero answer seconds": func(c *Config) { c.Interview.AnswerSeconds = 0 },
		"inverted thresholds": func(c *Config) { c.Interview.GoodThreshold = 95 },
		"unknown stt mode":    func(c *Config) { c.STT.Mode = "browser" },
		"exec without cmd":    func(c *Config) { c.STT.Mode = "exec" },
		"bus stt without bus": func(c *Config) { c.STT.Mode = "bus" },
		"unknown camera mode": func(c *Config) { c.Camera.Mode = "usb" },
		"zero camera width":   func(c *Config) { c.Camera.Width = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
