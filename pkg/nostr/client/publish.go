package client

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pool"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
)

// EventParams describe the event AddEvent publishes: either Event, already
// signed, or the fields of a new one signed with PrivateKey.
type EventParams struct {
	Event *event.T
	// PrivateKey is hex or nsec, the client key is used when empty.
	PrivateKey string
	Kind       kind.T
	// PubKey, when given, must be the one of the private key.
	PubKey  string
	Content string
	// CreatedAt defaults to now.
	CreatedAt timestamp.T
	Tags      tags.T
}

// Build returns the event the parameters describe, signing a new one when
// needed, and the secret key used if there is one.
func (c *T) Build(p EventParams) (ev *event.T, sec string, err error) {
	switch {
	case p.PrivateKey != "":
		if sec, err = keys.SecretFrom(p.PrivateKey); chk.D(err) {
			return nil, "", err
		}
	case c.Key != "":
		// a broken default key only matters when it has to sign the event
		if sec, err = keys.SecretFrom(c.Key); chk.D(err) && p.Event == nil {
			return nil, "", err
		}
		err = nil
	}
	if p.Event != nil {
		if err = p.Event.Verify(); chk.D(err) {
			return nil, "", err
		}
		return p.Event, sec, nil
	}
	if sec == "" {
		return nil, "", ErrMissingKey
	}
	ev = &event.T{
		CreatedAt: p.CreatedAt,
		Kind:      p.Kind,
		Tags:      p.Tags,
		Content:   p.Content,
	}
	if ev.CreatedAt == 0 {
		ev.CreatedAt = timestamp.Now()
	}
	if ev.Tags == nil {
		ev.Tags = tags.T{}
	}
	if err = ev.Sign(sec); chk.E(err) {
		return nil, "", err
	}
	if p.PubKey != "" && p.PubKey != ev.PubKey {
		return nil, "", fmt.Errorf("%w: %s", ErrPubKeyMismatch, p.PubKey)
	}
	return
}

// AddEvent publishes an event on the relays, or the default relays when
// none are given, and returns its id with the outcome on each relay. When a
// private key is at hand relays that sent an AUTH challenge are answered
// first. The error is pool.ErrAllFailed only if no relay took the event.
func (c *T) AddEvent(cx context.T, relays []string,
	p EventParams) (id eventid.T, results []pool.PublishResult, err error) {

	var ev *event.T
	var sec string
	if ev, sec, err = c.Build(p); err != nil {
		return
	}
	id = ev.ID
	if relays, err = c.relays(relays); chk.D(err) {
		return
	}
	cx, cancel := c.timeout(cx)
	defer cancel()
	sign := c.signer(sec)
	if sign != nil {
		if n := c.Pool.Authenticate(cx, relays, sign); n > 0 && c.Verbose {
			log.I.F("authenticated to %d relays", n)
		}
	}
	results, err = c.Pool.PublishManyWithAuth(cx, relays, ev, sign)
	if c.Verbose {
		for _, res := range results {
			log.I.F("%s: %s %v", res.Relay, res.Status, res.Err)
		}
	}
	return
}

// AddEvents publishes every event received from events until the channel is
// closed or cx ends, reporting each outcome to done when it is not nil.
func (c *T) AddEvents(cx context.T, relays []string, events <-chan *event.T,
	done func(ev *event.T, results []pool.PublishResult, err error)) (err error) {

	if relays, err = c.relays(relays); chk.D(err) {
		return
	}
	for {
		select {
		case <-cx.Done():
			return context.Cause(cx)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_, results, err := c.AddEvent(cx, relays, EventParams{Event: ev})
			if done != nil {
				done(ev, results, err)
			}
		}
	}
}
