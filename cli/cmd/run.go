package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchwatch/cli/config"
	"github.com/pithecene-io/benchwatch/session"
	"github.com/pithecene-io/benchwatch/sse"
)

// RunCommand returns the run command.
// Subscribing to the benchmark stream is what triggers the job, so this is
// the only command that causes work on the backend.
func RunCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "backend-url",
			Usage: "Backend base URL (default: config, then $" + config.BackendURLEnv + ", then " + config.DefaultBackendURL + ")",
		},
		&cli.StringSliceFlag{
			Name:  "header",
			Usage: "Request header as key=value (repeatable)",
		},
	}
	return &cli.Command{
		Name:   "run",
		Usage:  "Start a benchmark run and follow its progress",
		Flags:  append(flags, SessionFlags()...),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	opts, err := resolveOptions(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	streamURL, err := config.StreamURL(opts.backendURL)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	client, err := sse.NewClient(sse.ClientConfig{
		URL:     streamURL,
		Headers: opts.headers,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid stream config: %v", err), exitConfigError)
	}
	defer client.CloseIdleConnections()

	return execute(c, opts, session.SSEDialer(client), streamURL)
}
