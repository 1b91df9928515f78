package main

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/client"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/gookit/color"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v2"
)

var send = &cli.Command{
	Name:  "send",
	Usage: "send an event to the network",
	Description: `the private key defaults to NOSTR_KEY. When an event is piped as JSON it
is sent instead of the one described by the flags: as is if it is signed,
otherwise signed with the private key.

prints the event id and an nevent naming it with the relays that took it.

example usage:
		aionostr send --kind 1 --content hello --tags '[["t","test"]]'
		echo '{"kind":1,"content":"hello","tags":[]}' | aionostr send`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "kind",
			Usage: "event kind",
			Value: int(kind.TextNote),
		},
		&cli.StringFlag{
			Name:  "content",
			Usage: "event content",
		},
		&cli.Int64Flag{
			Name:  "created",
			Usage: "created_at as a unix timestamp, default now",
		},
		&cli.StringFlag{
			Name:  "pubkey",
			Usage: "public key, checked against the private key",
		},
		&cli.StringFlag{
			Name:  "tags",
			Usage: "tags as a JSON array of arrays of strings",
			Value: "[]",
		},
		&cli.StringFlag{
			Name:  "private-key",
			Usage: "private key as hex or nsec, default from NOSTR_KEY",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "print the outcome on each relay",
		},
	},
	Action: func(c *cli.Context) (err error) {
		var p client.EventParams
		if p, err = eventParams(c); err != nil {
			return
		}
		verbose := c.Bool("verbose")
		cl := getClient(c, verbose)
		defer cl.Close()
		id, results, err := cl.AddEvent(c.Context, getRelays(c), p)
		var took []string
		for _, res := range results {
			if res.Status == relay.PublishStatusFailed {
				fmt.Fprintln(c.App.ErrWriter,
					color.FgRed.Sprintf("%s: %s", res.Relay, res.Err))
				continue
			}
			if verbose {
				fmt.Fprintln(c.App.ErrWriter,
					color.FgGreen.Sprintf("%s: %s", res.Relay, res.Status))
			}
			took = append(took, res.Relay)
		}
		if err != nil {
			return
		}
		fmt.Fprintln(c.App.Writer, id)
		var nevent string
		if nevent, err = bech32encoding.EncodeEvent(id, took, ""); err != nil {
			return
		}
		fmt.Fprintln(c.App.Writer, nevent)
		return
	},
}

// eventParams reads the event to send from the piped input or the flags.
func eventParams(c *cli.Context) (p client.EventParams, err error) {
	p.PrivateKey = c.String("private-key")
	if isPiped() {
		var line string
		if line, err = readStdinLine(); err != nil {
			return p, fmt.Errorf("reading event from stdin: %w", err)
		}
		ev := &event.T{}
		if err = ev.UnmarshalJSON([]byte(line)); err != nil {
			return
		}
		if ev.Sig != "" {
			p.Event = ev
			return
		}
		p.Kind, p.Content, p.Tags = ev.Kind, ev.Content, ev.Tags
		p.CreatedAt, p.PubKey = ev.CreatedAt, ev.PubKey
		return
	}
	k := c.Int("kind")
	if k < 0 || k > 65535 {
		return p, fmt.Errorf("invalid kind %d", k)
	}
	p.Kind = kind.T(k)
	p.Content = c.String("content")
	p.PubKey = c.String("pubkey")
	p.CreatedAt = timestamp.T(c.Int64("created"))
	tags := c.String("tags")
	if !gjson.Valid(tags) {
		return p, fmt.Errorf("invalid tags %s", tags)
	}
	if p.Tags, err = event.TagsFromResult(gjson.Parse(tags)); err != nil {
		return
	}
	return
}
