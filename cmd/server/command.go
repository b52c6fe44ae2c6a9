// The server command is the main entrypoint for running minegate. It takes
// care of loading the configuration and running the game server until the
// process is signalled to stop.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mcastelli/minegate/internal"
	"github.com/mcastelli/minegate/internal/core"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "minegate server",
		Description: "Runs the minegate game server.",
		Action:      run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the directory containing the server config file",
				EnvVars: []string{"MINEGATE_CONFIG"},
				Value:   "./",
			},
		},
	}
}

func run(c *cli.Context) error {
	config, err := core.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	// Bind the Controller to one top-level server context so that we can
	// shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A SIGTERM or Ctrl-C cancels the context, which triggers the graceful
	// shutdown sequence.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	controller := &internal.Controller{Config: config}
	controller.Start(ctx)
	return nil
}
