package main

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	mirrortool "github.com/Hubmakerlabs/aionostr/pkg/nostr/mirror"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/seen"
	"github.com/urfave/cli/v2"
)

var mirror = &cli.Command{
	Name:  "mirror",
	Usage: "copy the events matching a filter from one relay to another",
	Description: `with --state the ids already mirrored are kept in a database in that
directory, so running again only sends what is new.

example usage:
		aionostr mirror -r wss://nos.lol -t wss://relay.example.com '{"authors":["..."]}'`,
	ArgsUsage: "[filter...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Aliases:  []string{"r"},
			Usage:    "relay to read from",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "target",
			Aliases:  []string{"t"},
			Usage:    "relay to write to",
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log every event mirrored",
		},
		&cli.BoolFlag{
			Name:    "stream",
			Aliases: []string{"s"},
			Usage:   "keep mirroring new events until interrupted",
		},
		&cli.StringFlag{
			Name:  "state",
			Usage: "directory keeping the ids already mirrored",
		},
	},
	Action: func(c *cli.Context) (err error) {
		var ff filters.T
		for _, s := range c.Args().Slice() {
			f := &filter.T{}
			if err = f.UnmarshalJSON([]byte(s)); err != nil {
				return fmt.Errorf("invalid filter %s: %w", s, err)
			}
			ff = append(ff, f)
		}
		if len(ff) == 0 {
			ff = filters.T{{}}
		}
		p := mirrortool.Params{
			Source:  c.String("source"),
			Target:  c.String("target"),
			Filters: ff,
			Stream:  c.Bool("stream"),
			Timeout: getConfig(c).Timeout,
			Verbose: c.Bool("verbose"),
		}
		if dir := c.String("state"); dir != "" {
			var b *seen.Badger
			if b, err = seen.OpenBadger(dir); err != nil {
				return
			}
			defer func() { chk.E(b.Close()) }()
			p.Seen = b
		}
		var stats mirrortool.Stats
		stats, err = mirrortool.Mirror(c.Context, p)
		fmt.Fprintln(c.App.ErrWriter, stats)
		return
	},
}
