package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/browser-runner/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check scenario files without running them",
	ArgsUsage: "<scenario-file-or-folder>...",
	Description: `Parse every scenario strictly, check it against the JSON Schema and apply
the domain rules (dialog placement, urls, value files, names).

Examples:
  browser-runner validate scenarios/
  browser-runner validate login.yaml --base-url https://app.test`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for tests without an absolute url",
			EnvVars: []string{"BROWSER_RUNNER_BASE_URL"},
		},
	},
	Action: validateScenarios,
}

func validateScenarios(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one scenario file or folder is required")
	}
	paths := c.Args().Slice()

	cfg, err := loadConfig(c.String("config"), paths)
	if err != nil {
		return err
	}
	baseURL := cfg.Browser.BaseURL
	if c.IsSet("base-url") {
		baseURL = c.String("base-url")
	}

	out := newTrace(c.App.Writer)
	v := validator.New(baseURL)
	var errs []*validator.ValidationError
	files, tests := 0, 0
	for _, path := range paths {
		result := v.Validate(path)
		for _, w := range result.Warnings {
			out.warning(w.Error())
		}
		errs = append(errs, result.Errors...)
		files += len(result.Files)
		tests += result.Tests
	}

	if len(errs) > 0 {
		out.validationErrors(errs)
		return cli.Exit(fmt.Sprintf("validation failed with %d error(s)", len(errs)), 1)
	}
	out.setup(fmt.Sprintf("%d file(s), %d test(s) valid", files, tests))
	return nil
}
