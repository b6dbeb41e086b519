package playwright

import (
	"fmt"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/browser-runner/pkg/logger"
)

// SessionConfig configures the browser launched for a run.
type SessionConfig struct {
	Browser           string // chromium, firefox or webkit
	Headless          bool
	SlowMo            time.Duration
	ViewportWidth     int
	ViewportHeight    int
	IgnoreHTTPSErrors bool
	FullPageShots     bool
	Install           bool   // Download the driver and browser if missing
	DriverDir         string // Playwright driver cache; empty uses the library default

	// Defaults for every element action, evaluation and screenshot, and for
	// navigations. Zero keeps playwright's own default.
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
}

// timeoutSetter is the part of pw.BrowserContext that takes default timeouts.
type timeoutSetter interface {
	SetDefaultTimeout(timeout float64)
	SetDefaultNavigationTimeout(timeout float64)
}

var _ timeoutSetter = pw.BrowserContext(nil)

// applyTimeouts sets the context defaults in milliseconds.
func applyTimeouts(ctx timeoutSetter, cfg SessionConfig) {
	if cfg.ActionTimeout > 0 {
		ctx.SetDefaultTimeout(float64(cfg.ActionTimeout.Milliseconds()))
	}
	if cfg.NavigationTimeout > 0 {
		ctx.SetDefaultNavigationTimeout(float64(cfg.NavigationTimeout.Milliseconds()))
	}
}

// Session owns the playwright process, browser, context and the single
// page every test of a run shares.
type Session struct {
	pw      *pw.Playwright
	browser pw.Browser
	context pw.BrowserContext
	driver  *Driver
}

// Launch starts a browser and opens the shared page.
func Launch(cfg SessionConfig) (*Session, error) {
	if cfg.Browser == "" {
		cfg.Browser = "chromium"
	}

	runOpts := &pw.RunOptions{
		DriverDirectory: cfg.DriverDir,
		Browsers:        []string{cfg.Browser},
		Stdout:          logger.GetWriter(),
		Stderr:          logger.GetWriter(),
	}
	if cfg.Install {
		logger.Info("installing playwright driver and %s into %s", cfg.Browser, cfg.DriverDir)
		if err := pw.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	runtime, err := pw.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	s := &Session{pw: runtime}

	bt, err := browserType(runtime, cfg.Browser)
	if err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("launching %s (headless=%t)", cfg.Browser, cfg.Headless)
	s.browser, err = bt.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(cfg.Headless),
		SlowMo:   pw.Float(float64(cfg.SlowMo.Milliseconds())),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch %s: %w", cfg.Browser, err)
	}

	opts := pw.BrowserNewContextOptions{
		IgnoreHttpsErrors: pw.Bool(cfg.IgnoreHTTPSErrors),
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts.Viewport = &pw.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}
	}
	s.context, err = s.browser.NewContext(opts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	applyTimeouts(s.context, cfg)

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.driver = New(page, cfg.FullPageShots)
	return s, nil
}

func browserType(runtime *pw.Playwright, name string) (pw.BrowserType, error) {
	switch name {
	case "chromium":
		return runtime.Chromium, nil
	case "firefox":
		return runtime.Firefox, nil
	case "webkit":
		return runtime.WebKit, nil
	default:
		return nil, fmt.Errorf("unknown browser %q (want chromium, firefox or webkit)", name)
	}
}

// Page returns the shared page.
func (s *Session) Page() *Driver {
	return s.driver
}

// Close releases the browser and stops playwright. Errors are logged.
func (s *Session) Close() {
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			logger.Warn("close browser context: %v", err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.Warn("close browser: %v", err)
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			logger.Warn("stop playwright: %v", err)
		}
	}
}
