package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mcastelli/minegate/cmd/account"
	"github.com/mcastelli/minegate/cmd/server"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Printf("minegate error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	app := cli.NewApp()
	app.Name = "minegate"
	app.Usage = "a Minecraft-protocol game server"
	app.Commands = []*cli.Command{
		server.Command(),
		account.Command(),
	}

	return app
}
