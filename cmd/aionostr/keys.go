package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/mdp/qrterminal/v3"
	"github.com/urfave/cli/v2"
)

var gen = &cli.Command{
	Name:  "gen",
	Usage: "generate a private/public key pair",
	Description: `prints the private key as nsec then the public key as npub. The first
line can be used as NOSTR_KEY.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "qr",
			Usage: "also print the npub as a QR code",
		},
	},
	Action: func(c *cli.Context) (err error) {
		sec := keys.GeneratePrivateKey()
		var pub, nsec, npub string
		if pub, err = keys.GetPublicKey(sec); chk.E(err) {
			return
		}
		if nsec, err = bech32encoding.EncodePrivateKey(sec); chk.E(err) {
			return
		}
		if npub, err = bech32encoding.EncodePublicKey(pub); chk.E(err) {
			return
		}
		fmt.Fprintln(c.App.Writer, nsec)
		fmt.Fprintln(c.App.Writer, npub)
		if c.Bool("qr") {
			qrterminal.GenerateWithConfig("nostr:"+npub, qrterminal.Config{
				HalfBlocks: false,
				Level:      qrterminal.L,
				Writer:     c.App.Writer,
				WhiteChar:  qrterminal.WHITE,
				BlackChar:  qrterminal.BLACK,
				QuietZone:  2,
			})
		}
		return
	},
}

var nip19 = &cli.Command{
	Name:  "nip19",
	Usage: "encode a hex key or event id as a NIP-19 identifier",
	Description: `the type is one of npub, nsec, note, nprofile or nevent. Relays given
with -r are added as hints to nprofile and nevent.

example usage:
		aionostr nip19 -r wss://nos.lol nevent 5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36`,
	ArgsUsage: "<type> <hex>",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "relay",
			Aliases: []string{"r"},
			Usage:   "relay hint, can be repeated",
		},
	},
	Action: func(c *cli.Context) (err error) {
		if c.Args().Len() != 2 {
			return fmt.Errorf("need a type and a hex value")
		}
		var s string
		if s, err = bech32encoding.Encode(c.Args().Get(0), c.Args().Get(1),
			c.StringSlice("relay")); err != nil {
			return
		}
		fmt.Fprintln(c.App.Writer, s)
		return
	},
}

var decode = &cli.Command{
	Name:  "decode",
	Usage: "decode NIP-19 identifiers",
	Description: `keys and notes are printed as hex, nprofile, nevent and naddr as JSON.
Identifiers can also be piped one per line.

example usage:
		aionostr decode npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6`,
	ArgsUsage: "<npub | nsec | note | nprofile | nevent | naddr>",
	Action: func(c *cli.Context) error {
		for input := range getStdinLinesOrFirstArgument(c) {
			input = strings.TrimPrefix(input, "nostr:")
			_, value, err := bech32encoding.Decode(input)
			if err != nil {
				lineProcessingError(c, "couldn't decode input '%s': %s", input, err)
				continue
			}
			if s, ok := value.(string); ok {
				fmt.Fprintln(c.App.Writer, s)
				continue
			}
			var b []byte
			if b, err = json.MarshalIndent(value, "", "  "); chk.E(err) {
				lineProcessingError(c, "couldn't print '%s': %s", input, err)
				continue
			}
			fmt.Fprintln(c.App.Writer, string(b))
		}
		return exitIfLineProcessingError(c)
	},
}
