package main

import (
	"fmt"
	"os"

	"github.com/Hubmakerlabs/aionostr/pkg/config"
	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/interrupt"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/client"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/urfave/cli/v2"
)

var log, chk = slog.New(os.Stderr)

func newApp() *cli.App {
	return &cli.App{
		Name:  "aionostr",
		Usage: "fetch, publish and mirror nostr events",
		Commands: []*cli.Command{
			get,
			query,
			send,
			mirror,
			gen,
			nip19,
			decode,
			env,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "off, fatal, error, warn, info, debug or trace, default from LOG_LEVEL",
			},
			&cli.StringSliceFlag{
				Name:    "relay",
				Aliases: []string{"r"},
				Usage:   "relay url, can be repeated, default from NOSTR_RELAYS",
			},
		},
		Before: func(c *cli.Context) (err error) {
			var cfg *config.C
			if cfg, err = config.New(); chk.E(err) {
				return
			}
			if c.IsSet("loglevel") {
				cfg.LogLevel = c.String("loglevel")
			}
			slog.SetLogLevelByName(cfg.LogLevel)
			c.App.Metadata = map[string]any{
				"config": cfg,
			}
			return nil
		},
	}
}

// getConfig returns the configuration loaded before the command ran.
func getConfig(c *cli.Context) *config.C {
	if cfg, ok := c.App.Metadata["config"].(*config.C); ok {
		return cfg
	}
	return &config.C{}
}

// getClient makes a client from the configuration, closed by the caller.
func getClient(c *cli.Context, verbose bool) *client.T {
	return client.New(getConfig(c), client.WithVerbose(verbose))
}

// getRelays returns the relays given with --relay, or nil so the client
// falls back to relay hints and NOSTR_RELAYS.
func getRelays(c *cli.Context) []string {
	if c.IsSet("relay") {
		return c.StringSlice("relay")
	}
	return nil
}

func main() {
	c, cancel := interrupt.Context(context.Bg())
	defer cancel()
	if err := newApp().RunContext(c, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
