package main

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/client"
	"github.com/urfave/cli/v2"
)

var get = &cli.Command{
	Name:  "get",
	Usage: "get anything nostr can name: an event, a profile, a filter",
	Description: `the identifier is an npub, nsec, note, nprofile, nevent or naddr, an
event id, a JSON filter or a REQ array. Relay hints in the identifier are used
instead of the default relays. Identifiers can also be piped one per line.

example usage:
		aionostr get nprofile1qqsv0knzz56gtm8mrdjhjtreecl7dl8xa47caafkevfp67svwvhf9hcpz3mhxue69uhkgetnvd5x7mmvd9hxwtn4wvspak3h
		aionostr -r wss://nos.lol get '{"kinds":[1],"limit":10}'`,
	ArgsUsage: "<identifier or filter>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "print where the results come from",
		},
	},
	Action: func(c *cli.Context) (err error) {
		verbose := c.Bool("verbose")
		cl := getClient(c, verbose)
		defer cl.Close()
		relays := getRelays(c)
		for input := range getStdinLinesOrFirstArgument(c) {
			var results <-chan client.Result
			if results, err = cl.GetAnything(c.Context, input, relays); err != nil {
				lineProcessingError(c, "%s: %s", input, err)
				continue
			}
			for res := range results {
				if res.Event == nil {
					fmt.Fprintln(c.App.Writer, res.Value)
					continue
				}
				printEvent(c, res.Event, res.Relay, verbose)
			}
		}
		return exitIfLineProcessingError(c)
	},
}
