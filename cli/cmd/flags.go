// Package cmd provides CLI commands for the benchwatch binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchwatch/adapter/webhook"
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}
)

// OutputFlags returns the flags controlling rendered output.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// SessionFlags returns the flags shared by every command that drives a run
// (run, replay). Flags are created fresh per call so commands never share
// slice flag state.
func SessionFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to benchwatch.yaml (flags override file values)",
		},
		&cli.DurationFlag{
			Name:  "idle-timeout",
			Usage: "Fail the run as stalled after this long without a message (0 disables)",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show the live terminal UI",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress progress lines and the final report",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Write logs to this file instead of stderr",
		},
	}
	flags = append(flags, OutputFlags()...)
	return append(flags, AdapterFlags()...)
}

// AdapterFlags returns the run-completion adapter flags.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Run-completion adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (webhook URL or redis://host:port/db)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-attempt publish timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retry attempts",
			Value: webhook.DefaultRetries,
		},
		&cli.StringFlag{
			Name:  "adapter-encoding",
			Usage: "Payload encoding: json or msgpack",
		},
	}
}
