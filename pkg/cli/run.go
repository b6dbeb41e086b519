package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/browser-runner/pkg/config"
	"github.com/devicelab-dev/browser-runner/pkg/core"
	"github.com/devicelab-dev/browser-runner/pkg/driver/mock"
	"github.com/devicelab-dev/browser-runner/pkg/driver/playwright"
	"github.com/devicelab-dev/browser-runner/pkg/executor"
	"github.com/devicelab-dev/browser-runner/pkg/logger"
	"github.com/devicelab-dev/browser-runner/pkg/report"
	"github.com/devicelab-dev/browser-runner/pkg/scenario"
	"github.com/devicelab-dev/browser-runner/pkg/validator"
)

// LogFile is the run log written into the output directory.
const LogFile = "browser-runner.log"

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run scenario files in a browser",
	ArgsUsage: "<scenario-file-or-folder>...",
	Description: `Run one or more scenario files. Every test of the run shares one browser
page; child tests continue where their parent left off.

Reports are generated in the output directory:
  - Default: ./reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

Examples:
  browser-runner run login.yaml
  browser-runner run scenarios/ -e USER=admin -e PASS=secret
  browser-runner run scenarios/ --base-url https://staging.example.com --headed
  browser-runner run scenarios/ --browser mock     # dry run, no browser`,
	Flags: []cli.Flag{
		// Environment variables
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Variables for ${...} and $VAR expansion (KEY=VALUE)",
		},

		// Output directory
		&cli.StringFlag{
			Name:    "output",
			Usage:   "Output directory for reports (default: config output or ./reports)",
			EnvVars: []string{"BROWSER_RUNNER_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},

		// Browser
		&cli.StringFlag{
			Name:    "browser",
			Usage:   "chromium, firefox, webkit or mock",
			EnvVars: []string{"BROWSER_RUNNER_BROWSER"},
		},
		&cli.BoolFlag{
			Name:  "headed",
			Usage: "Show the browser window",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for tests without an absolute url",
			EnvVars: []string{"BROWSER_RUNNER_BASE_URL"},
		},
		&cli.BoolFlag{
			Name:    "install",
			Usage:   "Download the playwright driver and browser if missing",
			EnvVars: []string{"BROWSER_RUNNER_INSTALL"},
		},

		// Execution
		&cli.IntFlag{
			Name:    "action-timeout",
			Usage:   "Element and dialog wait in ms",
			EnvVars: []string{"BROWSER_RUNNER_ACTION_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "navigation-timeout",
			Usage:   "Navigation wait in ms",
			EnvVars: []string{"BROWSER_RUNNER_NAVIGATION_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:  "stop-on-failure",
			Usage: "Abort the run on the first failed test",
		},
		&cli.BoolFlag{
			Name:  "stop-on-child-failure",
			Usage: "Skip remaining siblings after a failed child test",
		},
		&cli.BoolFlag{
			Name:  "auto-accept-dialogs",
			Usage: "Accept dialogs beyond a declared sequence instead of failing",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run identifier for the report (default: random UUID)",
		},
	},
	Action: runScenarios,
}

// RunConfig holds the complete run configuration.
type RunConfig struct {
	Paths     []string
	Config    *config.Config
	OutputDir string // Final resolved output directory
	RunID     string
	Verbose   bool
	Stdout    io.Writer
	Stderr    io.Writer
}

func runScenarios(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one scenario file or folder is required")
	}
	paths := c.Args().Slice()

	cfg, err := loadConfig(c.String("config"), paths)
	if err != nil {
		return err
	}
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outputDir, err := resolveOutputDir(cfg.Output, c.IsSet("output"), c.Bool("flatten"))
	if err != nil {
		return err
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := executeRun(ctx, &RunConfig{
		Paths:     paths,
		Config:    cfg,
		OutputDir: outputDir,
		RunID:     runID,
		Verbose:   c.Bool("verbose"),
		Stdout:    c.App.Writer,
		Stderr:    c.App.ErrWriter,
	})
	if err != nil {
		return err
	}

	// Exit with code 1 if any test failed (summary already printed)
	if !result.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

// loadConfig loads --config, or config.yaml next to the first scenario path.
func loadConfig(path string, scenarioPaths []string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	dir := scenarioPaths[0]
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	env, err := parseEnvVars(c.StringSlice("env"))
	if err != nil {
		return err
	}
	for k, v := range env {
		cfg.Env[k] = v // CLI overrides workspace config
	}

	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("browser") {
		cfg.Browser.Name = strings.ToLower(c.String("browser"))
	}
	if c.IsSet("headed") {
		cfg.Browser.Headless = !c.Bool("headed")
	}
	if c.IsSet("base-url") {
		cfg.Browser.BaseURL = c.String("base-url")
	}
	if c.IsSet("install") {
		cfg.Browser.Install = c.Bool("install")
	}
	if c.IsSet("action-timeout") {
		cfg.Execution.ActionTimeout = c.Int("action-timeout")
	}
	if c.IsSet("navigation-timeout") {
		cfg.Execution.NavigationTimeout = c.Int("navigation-timeout")
	}
	if c.IsSet("stop-on-failure") {
		cfg.Execution.StopOnFailure = c.Bool("stop-on-failure")
	}
	if c.IsSet("stop-on-child-failure") {
		cfg.Execution.StopOnChildFailure = c.Bool("stop-on-child-failure")
	}
	if c.IsSet("auto-accept-dialogs") {
		cfg.Execution.AutoAcceptUnexpectedDialogs = c.Bool("auto-accept-dialogs")
	}
	return nil
}

// resolveOutputDir determines the output directory.
//   - default: <base>/<timestamp>/
//   - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(base string, explicit, flatten bool) (string, error) {
	if flatten && !explicit {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}
	if base == "" {
		base = "./reports"
	}
	if flatten {
		return filepath.Clean(base), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(base, timestamp), nil
}

// parseEnvVars parses KEY=VALUE pairs. The value may contain '='.
func parseEnvVars(envs []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, e := range envs {
		key, value, ok := strings.Cut(e, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --env %q, want KEY=VALUE", e)
		}
		result[strings.TrimSpace(key)] = value
	}
	return result, nil
}

// session is an open page and how to release it.
type session struct {
	page    core.Page
	browser report.BrowserInfo
	close   func()
}

func openSession(cfg *config.Config) (*session, error) {
	info := report.BrowserInfo{
		Name:     cfg.Browser.Name,
		Headless: cfg.Browser.Headless,
		BaseURL:  cfg.Browser.BaseURL,
	}

	if cfg.Browser.Name == "mock" {
		logger.Info("using mock page (dry run)")
		return &session{
			page:    mock.New(mock.Config{AutoCreate: true}),
			browser: info,
			close:   func() {},
		}, nil
	}

	s, err := playwright.Launch(playwright.SessionConfig{
		Browser:           cfg.Browser.Name,
		Headless:          cfg.Browser.Headless,
		SlowMo:            config.Duration(cfg.Browser.SlowMo),
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		IgnoreHTTPSErrors: cfg.Browser.IgnoreHTTPSErrors,
		FullPageShots:     cfg.Screenshots.FullPage,
		Install:           cfg.Browser.Install,
		DriverDir:         config.GetDriversDir("playwright"),
		ActionTimeout:     cfg.Execution.ActionTimeoutDuration(),
		NavigationTimeout: cfg.Execution.NavigationTimeoutDuration(),
	})
	if err != nil {
		return nil, err
	}
	return &session{page: s.Page(), browser: info, close: s.Close}, nil
}

// executeRun validates, runs and reports. It returns an error only when the
// run could not happen; test failures are in the result.
func executeRun(ctx context.Context, rc *RunConfig) (*core.RunResult, error) {
	cfg := rc.Config
	out := newTrace(rc.Stdout)

	// 1. Create output directory
	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// 2. Initialize logging
	if err := logger.Init(filepath.Join(rc.OutputDir, LogFile)); err != nil {
		fmt.Fprintf(rc.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	defer logger.Close()
	logger.SetVerbose(rc.Verbose)

	logger.Info("=== Run %s started ===", rc.RunID)
	logger.Info("Output directory: %s", rc.OutputDir)
	logger.Info("Browser: %s (headless=%t)", cfg.Browser.Name, cfg.Browser.Headless)

	// 3. Validate and parse scenarios
	suites, sources, err := loadScenarios(rc.Paths, cfg.Browser.BaseURL, out)
	if err != nil {
		logger.Error("Scenario validation failed: %v", err)
		return nil, err
	}
	roots := scenario.Roots(suites)
	out.setup(fmt.Sprintf("Found %d test(s) in %d file(s)", scenario.CountTests(roots), len(sources)))

	// 4. Open the browser
	sess, err := openSession(cfg)
	if err != nil {
		logger.Error("Failed to open browser: %v", err)
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer sess.close()
	out.setup(fmt.Sprintf("Browser ready: %s", cfg.Browser.Name))

	// 5. Variables
	script := executor.NewScriptEngine()
	defer script.Close()
	script.ImportSystemEnv()
	script.SetVariables(cfg.Env)
	script.SetBaseURL(cfg.Browser.BaseURL)

	// 6. Run
	walker := executor.NewWalker(sess.page, executor.RunnerConfig{
		BaseURL:                     cfg.Browser.BaseURL,
		ActionTimeout:               cfg.Execution.ActionTimeoutDuration(),
		NavigationTimeout:           cfg.Execution.NavigationTimeoutDuration(),
		PageLoadWait:                config.Duration(cfg.Execution.PageLoadWait),
		ChildTestDelay:              config.Duration(cfg.Execution.ChildTestDelay),
		StepDelay:                   config.Duration(cfg.Execution.StepDelay),
		DialogSettle:                config.Duration(cfg.Execution.DialogSettle),
		StopOnFailure:               cfg.Execution.StopOnFailure,
		StopOnChildFailure:          cfg.Execution.StopOnChildFailure,
		AutoAcceptUnexpectedDialogs: cfg.Execution.AutoAcceptUnexpectedDialogs,
		Screenshots:                 cfg.Screenshots,
		Capturer:                    report.NewScreenshotStore(rc.OutputDir, sess.page),
		Script:                      script,
		RunID:                       rc.RunID,
		OnTestStart:                 out.onTestStart,
		OnStepComplete:              out.onStepComplete,
		OnDialog:                    out.onDialog,
		OnTestEnd:                   out.onTestEnd,
	})

	result, runErr := walker.Run(ctx, roots)
	if result == nil {
		return nil, runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("Run interrupted: %v", runErr)
		fmt.Fprintf(rc.Stderr, "Run interrupted: %v\n", runErr)
	}

	// 7. Summary and reports
	out.summary(result)

	rep := report.Build(result, report.Meta{
		Runner:  report.RunnerInfo{Name: "browser-runner", Version: Version},
		Browser: sess.browser,
		Sources: sources,
	})
	if err := report.WriteAll(rc.OutputDir, rep); err != nil {
		logger.Error("Failed to write reports: %v", err)
		return result, fmt.Errorf("failed to write reports: %w", err)
	}
	out.reports(rc.OutputDir)

	return result, nil
}

// loadScenarios validates every path and returns the parsed suites.
func loadScenarios(paths []string, baseURL string, out *trace) ([]*scenario.Suite, []string, error) {
	v := validator.New(baseURL)
	var (
		suites  []*scenario.Suite
		sources []string
		errs    []*validator.ValidationError
	)
	for _, path := range paths {
		result := v.Validate(path)
		for _, w := range result.Warnings {
			out.warning(w.Error())
			logger.Warn("%v", w)
		}
		errs = append(errs, result.Errors...)
		suites = append(suites, result.Suites...)
		sources = append(sources, result.Files...)
	}

	if len(errs) > 0 {
		out.validationErrors(errs)
		return nil, nil, fmt.Errorf("validation failed with %d error(s)", len(errs))
	}
	if len(suites) == 0 {
		return nil, nil, fmt.Errorf("no scenarios found")
	}
	return suites, sources, nil
}
