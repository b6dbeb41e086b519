package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/browser-runner/pkg/validator"
)

var schemaCommand = &cli.Command{
	Name:  "schema",
	Usage: "Print the JSON Schema of scenario files",
	Description: `Print the JSON Schema (Draft 2020-12) for editor completion and CI checks.

Examples:
  browser-runner schema > scenario.schema.json
  browser-runner schema --output schemas/scenario.json`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "Write the schema to a file instead of stdout",
		},
	},
	Action: printSchema,
}

func printSchema(c *cli.Context) error {
	data, err := validator.Schema()
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
		return nil
	}
	_, err = c.App.Writer.Write(data)
	return err
}
