package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchwatch/cli/render"
	"github.com/pithecene-io/benchwatch/decode"
)

// SchemaCommand returns the schema command, which prints the JSON Schema of
// the progress and terminal payloads. An optional argument selects one.
func SchemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Print the JSON Schema of the stream payloads",
		ArgsUsage: "[progress|terminal]",
		Action:    schemaAction,
	}
}

func schemaAction(c *cli.Context) error {
	r := render.NewRendererWithWriter(render.FormatJSON, true, c.App.Writer)
	schemas := decode.PayloadSchemas()

	switch which := c.Args().First(); which {
	case "":
		return r.Render(schemas)
	case "progress":
		return r.Render(schemas.Progress)
	case "terminal":
		return r.Render(schemas.Terminal)
	default:
		return cli.Exit(fmt.Sprintf("unknown payload %q (must be progress or terminal)", which), 1)
	}
}
