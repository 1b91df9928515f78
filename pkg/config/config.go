// Package config loads the client configuration from the environment.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"go-simpler.org/env"
)

var log, chk = slog.New(os.Stderr)

// DefaultRelays is used when NOSTR_RELAYS is not set.
var DefaultRelays = []string{"wss://brb.io", "wss://relay.damus.io"}

// C is the configuration shared by the library and the command line tools.
type C struct {
	Relays   []string      `env:"NOSTR_RELAYS" default:"wss://brb.io,wss://relay.damus.io" usage:"comma separated default relay pool"`
	Key      string        `env:"NOSTR_KEY" usage:"default private key for signing, hex or nsec"`
	LogLevel string        `env:"LOG_LEVEL" default:"info" usage:"off, fatal, error, warn, info, debug or trace"`
	Timeout  time.Duration `env:"NOSTR_TIMEOUT" default:"7s" usage:"timeout for connecting, publishing and waiting for stored events"`
}

var options = &env.Options{SliceSep: ","}

// New loads the configuration from the process environment.
func New() (c *C, err error) {
	c = &C{}
	if err = env.Load(c, options); chk.E(err) {
		return
	}
	c.clean()
	return
}

// FromMap loads the configuration from a map instead of the environment.
func FromMap(m map[string]string) (c *C, err error) {
	c = &C{}
	if err = env.Load(c, &env.Options{SliceSep: ",",
		Source: env.Map(m)}); chk.E(err) {
		return
	}
	c.clean()
	return
}

func (c *C) clean() {
	var relays []string
	for _, r := range c.Relays {
		if r = strings.TrimSpace(r); r != "" {
			relays = append(relays, r)
		}
	}
	c.Relays = relays
	c.Key = strings.TrimSpace(c.Key)
	if c.Timeout <= 0 {
		c.Timeout = 7 * time.Second
	}
	log.T.F("config %+v", *c)
}

// Usage writes the documentation of the environment variables.
func Usage(w io.Writer) { env.Usage(&C{}, w, options) }
