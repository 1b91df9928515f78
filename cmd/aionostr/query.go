package main

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/client"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/urfave/cli/v2"
)

var query = &cli.Command{
	Name:  "query",
	Usage: "run a query once and print the events",
	Description: `filters given with -q and as arguments are sent together as one query.
Without any, each piped line is a filter run as its own query.

example usage:
		aionostr query '{"kinds":[1],"limit":5}'
		aionostr query -s -q '{"kinds":[1]}' -q '{"kinds":[7]}'
		echo '{"authors":["..."]}' | aionostr query`,
	ArgsUsage: "[filter...]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "stream",
			Aliases: []string{"s"},
			Usage:   "keep printing new events after the stored ones",
		},
		&cli.StringSliceFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "filter as JSON, can be repeated",
		},
	},
	Action: func(c *cli.Context) (err error) {
		cl := getClient(c, false)
		defer cl.Close()
		relays, stream := getRelays(c), c.Bool("stream")
		run := func(ff filters.T) (err error) {
			var results <-chan client.Result
			if results, err = cl.Query(c.Context, ff, relays, stream); err != nil {
				return
			}
			for res := range results {
				printEvent(c, res.Event, res.Relay, false)
			}
			return
		}
		given := append(c.StringSlice("query"), c.Args().Slice()...)
		if len(given) > 0 {
			var ff filters.T
			for _, s := range given {
				f := &filter.T{}
				if err = f.UnmarshalJSON([]byte(s)); err != nil {
					return fmt.Errorf("invalid filter %s: %w", s, err)
				}
				ff = append(ff, f)
			}
			return run(ff)
		}
		lines := make(chan string)
		if !writeStdinLinesOrNothing(lines) {
			return fmt.Errorf("no filter given")
		}
		for line := range lines {
			f := &filter.T{}
			if err = f.UnmarshalJSON([]byte(line)); err != nil {
				lineProcessingError(c, "invalid filter %s: %s", line, err)
				continue
			}
			if err = run(filters.T{f}); err != nil {
				return
			}
		}
		return exitIfLineProcessingError(c)
	},
}
