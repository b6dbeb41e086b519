package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Browser.Name != "chromium" || !cfg.Browser.Headless {
		t.Errorf("expected headless chromium, got %+v", cfg.Browser)
	}
	e := cfg.Execution
	if e.ActionTimeout != 10000 || e.NavigationTimeout != 30000 {
		t.Errorf("unexpected timeouts: %+v", e)
	}
	if e.PageLoadWait != 500 || e.ChildTestDelay != 500 || e.StepDelay != 0 || e.DialogSettle != 250 {
		t.Errorf("unexpected waits: %+v", e)
	}
	if e.StopOnFailure || e.StopOnChildFailure || e.AutoAcceptUnexpectedDialogs {
		t.Errorf("expected failure policy off by default: %+v", e)
	}
	if cfg.Screenshots.BeforeSubmit || !cfg.Screenshots.AfterSubmit || !cfg.Screenshots.OnFailure {
		t.Errorf("unexpected screenshot defaults: %+v", cfg.Screenshots)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
browser:
  name: firefox
  headless: false
  baseUrl: https://staging.example.com
  viewportWidth: 1280
  viewportHeight: 720
execution:
  actionTimeout: 5000
  stopOnFailure: true
screenshots:
  beforeSubmit: true
env:
  USER: test
  PASS: secret
output: out
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Browser.Name != "firefox" || cfg.Browser.Headless {
		t.Errorf("unexpected browser: %+v", cfg.Browser)
	}
	if cfg.Browser.BaseURL != "https://staging.example.com" {
		t.Errorf("expected baseUrl, got %q", cfg.Browser.BaseURL)
	}
	if cfg.Execution.ActionTimeout != 5000 || !cfg.Execution.StopOnFailure {
		t.Errorf("unexpected execution: %+v", cfg.Execution)
	}
	// Unset keys keep their defaults
	if cfg.Execution.NavigationTimeout != 30000 || cfg.Execution.DialogSettle != 250 {
		t.Errorf("defaults lost: %+v", cfg.Execution)
	}
	if !cfg.Screenshots.BeforeSubmit || !cfg.Screenshots.AfterSubmit {
		t.Errorf("unexpected screenshots: %+v", cfg.Screenshots)
	}
	if cfg.Env["USER"] != "test" || cfg.Env["PASS"] != "secret" {
		t.Errorf("expected env {USER:test, PASS:secret}, got %v", cfg.Env)
	}
	if cfg.Output != "out" {
		t.Errorf("expected output out, got %q", cfg.Output)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `browser: [invalid yaml`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "execution:\n  actionTimout: 100\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
	if !strings.Contains(err.Error(), "actionTimout") {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Execution.ActionTimeout != 10000 {
		t.Errorf("expected defaults, got %+v", cfg.Execution)
	}
	if cfg.Env == nil {
		t.Error("expected non-nil env map")
	}
}

func TestLoadFromDir(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"config.yaml", map[string]string{"config.yaml": "browser:\n  name: webkit\n"}, "webkit"},
		{"config.yml", map[string]string{"config.yml": "browser:\n  name: firefox\n"}, "firefox"},
		{"prefers yaml over yml", map[string]string{
			"config.yaml": "browser:\n  name: webkit\n",
			"config.yml":  "browser:\n  name: firefox\n",
		}, "webkit"},
		{"no config", nil, "chromium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeConfig(t, dir, name, content)
			}

			cfg, err := LoadFromDir(dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Browser.Name != tt.want {
				t.Errorf("expected browser %s, got %s", tt.want, cfg.Browser.Name)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"mock browser", func(c *Config) { c.Browser.Name = "mock" }, ""},
		{"unknown browser", func(c *Config) { c.Browser.Name = "ie" }, "browser.name"},
		{"zero action timeout", func(c *Config) { c.Execution.ActionTimeout = 0 }, "execution.actionTimeout"},
		{"negative settle", func(c *Config) { c.Execution.DialogSettle = -1 }, "execution.dialogSettle"},
		{"relative base url", func(c *Config) { c.Browser.BaseURL = "example.com" }, "browser.baseUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	e := Default().Execution
	if got := e.ActionTimeoutDuration(); got != 10*time.Second {
		t.Errorf("ActionTimeoutDuration() = %v", got)
	}
	if got := e.NavigationTimeoutDuration(); got != 30*time.Second {
		t.Errorf("NavigationTimeoutDuration() = %v", got)
	}
	if got := Duration(250); got != 250*time.Millisecond {
		t.Errorf("Duration(250) = %v", got)
	}
}
