package main

import (
	"github.com/Hubmakerlabs/aionostr/pkg/config"
	"github.com/urfave/cli/v2"
)

var env = &cli.Command{
	Name:  "env",
	Usage: "print the environment variables read and their defaults",
	Action: func(c *cli.Context) error {
		config.Usage(c.App.Writer)
		return nil
	},
}
