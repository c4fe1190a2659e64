// meridian is the command line interface for the block processing core: it
// replays block fixtures against a fresh or on-disk world state and reports
// the receipts.
package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/urfave/cli.v1"

	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[meridian]")

var app = cli.NewApp()

func init() {
	app.Name = "meridian"
	app.Usage = "the go-meridian block processor command line interface"
	app.HideVersion = true
	app.Commands = []cli.Command{
		processCommand,
		versionCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if ctx.GlobalBool("verbose") {
			logger.Verbose()
			log.Debug("verbose logging enabled")
		}
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
