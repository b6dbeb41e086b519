// Package config handles configuration for browser-runner.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/browser-runner/pkg/core"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	Browser     Browser               `yaml:"browser"`
	Execution   Execution             `yaml:"execution"`
	Screenshots core.ScreenshotConfig `yaml:"screenshots"`
	Env         map[string]string     `yaml:"env"`    // Variables for ${...} and $VAR expansion
	Output      string                `yaml:"output"` // Report directory
}

// Browser configures the browser session.
type Browser struct {
	Name              string `yaml:"name"` // chromium, firefox, webkit or mock
	Headless          bool   `yaml:"headless"`
	BaseURL           string `yaml:"baseUrl"`
	SlowMo            int    `yaml:"slowMo"` // ms
	ViewportWidth     int    `yaml:"viewportWidth"`
	ViewportHeight    int    `yaml:"viewportHeight"`
	IgnoreHTTPSErrors bool   `yaml:"ignoreHttpsErrors"`
	Install           bool   `yaml:"install"` // Download the playwright driver and browser if missing
}

// Execution configures timing and failure policy. Durations are milliseconds.
type Execution struct {
	ActionTimeout               int  `yaml:"actionTimeout"`
	NavigationTimeout           int  `yaml:"navigationTimeout"`
	PageLoadWait                int  `yaml:"pageLoadWait"`
	ChildTestDelay              int  `yaml:"childTestDelay"`
	StepDelay                   int  `yaml:"stepDelay"`
	DialogSettle                int  `yaml:"dialogSettle"`
	StopOnFailure               bool `yaml:"stopOnFailure"`
	StopOnChildFailure          bool `yaml:"stopOnChildFailure"`
	AutoAcceptUnexpectedDialogs bool `yaml:"autoAcceptUnexpectedDialogs"`
}

// Supported browser names.
var browsers = []string{"chromium", "firefox", "webkit", "mock"}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Browser: Browser{
			Name:     "chromium",
			Headless: true,
		},
		Execution: Execution{
			ActionTimeout:     10000,
			NavigationTimeout: 30000,
			PageLoadWait:      500,
			ChildTestDelay:    500,
			StepDelay:         0,
			DialogSettle:      250,
		},
		Screenshots: core.DefaultScreenshotConfig(),
		Env:         map[string]string{},
		Output:      "reports",
	}
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Env == nil {
		cfg.Env = map[string]string{}
	}
	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found
	return Default(), nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	var problems []string

	known := false
	for _, b := range browsers {
		if c.Browser.Name == b {
			known = true
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("browser.name %q is not one of %s", c.Browser.Name, strings.Join(browsers, ", ")))
	}

	positive := map[string]int{
		"execution.actionTimeout":     c.Execution.ActionTimeout,
		"execution.navigationTimeout": c.Execution.NavigationTimeout,
	}
	nonNegative := map[string]int{
		"execution.pageLoadWait":   c.Execution.PageLoadWait,
		"execution.childTestDelay": c.Execution.ChildTestDelay,
		"execution.stepDelay":      c.Execution.StepDelay,
		"execution.dialogSettle":   c.Execution.DialogSettle,
		"browser.slowMo":           c.Browser.SlowMo,
		"browser.viewportWidth":    c.Browser.ViewportWidth,
		"browser.viewportHeight":   c.Browser.ViewportHeight,
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", name, positive[name]))
		}
	}
	for _, name := range sortedKeys(nonNegative) {
		if nonNegative[name] < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative, got %d", name, nonNegative[name]))
		}
	}

	if c.Browser.BaseURL != "" && !strings.Contains(c.Browser.BaseURL, "://") {
		problems = append(problems, fmt.Sprintf("browser.baseUrl %q must be an absolute URL", c.Browser.BaseURL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Duration converts a millisecond setting.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ActionTimeoutDuration returns execution.actionTimeout as a duration.
func (e Execution) ActionTimeoutDuration() time.Duration { return Duration(e.ActionTimeout) }

// NavigationTimeoutDuration returns execution.navigationTimeout as a duration.
func (e Execution) NavigationTimeoutDuration() time.Duration { return Duration(e.NavigationTimeout) }
