// Package cli provides the command-line interface for browser-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to config.yaml (default: config.yaml next to the scenarios)",
		EnvVars: []string{"BROWSER_RUNNER_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"BROWSER_RUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	},
}

// App builds the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "browser-runner",
		Usage:   "Declarative browser test runner",
		Version: Version,
		Description: `browser-runner executes declarative browser tests: form steps, a submit
action, assertions and nested child tests that continue on the parent's page.
Native alert, confirm and prompt dialogs are part of the scenario.

Examples:
  browser-runner run scenarios/
  browser-runner run login.yaml -e USER=admin -e PASS=secret
  browser-runner validate scenarios/
  browser-runner schema > scenario.schema.json`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			schemaCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
