package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchwatch/session"
)

// ReplayCommand returns the replay command.
// It feeds a captured event stream through the same session as run, offline.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay a captured event stream transcript",
		ArgsUsage: "<transcript>",
		Flags:     SessionFlags(),
		Action:    replayAction,
	}
}

func replayAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("replay requires a transcript file argument", exitConfigError)
	}
	if _, err := os.Stat(path); err != nil {
		return cli.Exit("cannot read transcript: "+err.Error(), exitConfigError)
	}

	opts, err := resolveOptions(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	return execute(c, opts, session.FileDialer(path), "file://"+path)
}
