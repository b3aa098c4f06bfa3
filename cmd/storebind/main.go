package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const (
	scriptKey     = "script"
	verboseKey    = "verbose"
	dumpKey       = "dump"
	iterationsKey = "iterations"
)

func main() {
	cmd := &cli.Command{
		Name:  "storebind",
		Usage: "Drive store bindings from the command line",
		Commands: []*cli.Command{
			demoCommand(),
			benchCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
