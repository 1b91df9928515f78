// Package client fetches anything nostr can name from a set of relays and
// publishes events to them.
package client

import (
	"errors"
	"os"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/config"
	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/normalize"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pool"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

var (
	// ErrNoRelays is returned when neither the call, the identifier nor the
	// configuration name a relay.
	ErrNoRelays = errors.New("no relays to use")
	// ErrMissingKey is returned when an event must be signed and no private
	// key was given or configured.
	ErrMissingKey = errors.New("missing private key")
	// ErrUnsupported is returned for identifiers that can not be turned
	// into a query.
	ErrUnsupported = errors.New("unsupported identifier")
	// ErrPubKeyMismatch is returned when the pubkey given for a new event is
	// not the one of the signing key.
	ErrPubKeyMismatch = errors.New("pubkey does not match private key")
)

type T struct {
	// Relays is the default relay list.
	Relays []string
	// Key is the default private key, hex or nsec.
	Key     string
	Timeout time.Duration
	Verbose bool
	Pool    *pool.Simple

	relayOptions []relay.Option
	ctx          context.T
	cancel       context.F
}

type Option interface {
	IsClientOption()
	Apply(*T)
}

// WithVerbose logs what is fetched from where at info level.
type WithVerbose bool

func (_ WithVerbose) IsClientOption() {}
func (v WithVerbose) Apply(c *T)      { c.Verbose = bool(v) }

type withRelayOptions []relay.Option

func (_ withRelayOptions) IsClientOption() {}
func (o withRelayOptions) Apply(c *T)      { c.relayOptions = append(c.relayOptions, o...) }

// WithRelayOptions are given to every relay connection of the client.
func WithRelayOptions(opts ...relay.Option) Option { return withRelayOptions(opts) }

// New makes a client from the configuration; a nil configuration gives a
// client without default relays or key.
func New(cfg *config.C, opts ...Option) (c *T) {
	if cfg == nil {
		cfg = &config.C{}
	}
	c = &T{
		Relays:  normalize.URLs(cfg.Relays),
		Key:     cfg.Key,
		Timeout: cfg.Timeout,
	}
	if c.Timeout <= 0 {
		c.Timeout = relay.PublishTimeout
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	c.ctx, c.cancel = context.Cancel(context.Bg())
	poolOpts := []pool.Option{pool.WithRelayOptions(c.relayOptions...),
		pool.WithEoseTimeout(c.Timeout)}
	if sign := c.signer(c.Key); sign != nil {
		poolOpts = append(poolOpts, pool.WithAuthHandler(sign))
	}
	c.Pool = pool.NewSimplePool(c.ctx, poolOpts...)
	return
}

// Close disconnects from every relay.
func (c *T) Close() {
	c.Pool.Close()
	c.cancel()
}

// signer returns a function signing with key, or nil if the key is unusable.
func (c *T) signer(key string) func(*event.T) error {
	if key == "" {
		return nil
	}
	sec, err := keys.SecretFrom(key)
	if chk.D(err) {
		return nil
	}
	return func(ev *event.T) error { return ev.Sign(sec) }
}

// relays picks the relays for a call: the given ones, else the default list.
func (c *T) relays(given []string) (urls []string, err error) {
	if urls = normalize.URLs(given); len(urls) > 0 {
		return
	}
	if len(c.Relays) > 0 {
		return c.Relays, nil
	}
	return nil, ErrNoRelays
}

// timeout bounds c with the client timeout unless it already has a deadline.
func (c *T) timeout(cx context.T) (context.T, context.F) {
	if _, ok := cx.Deadline(); ok {
		return cx, func() {}
	}
	return context.Timeout(cx, c.Timeout)
}
