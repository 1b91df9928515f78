package client

import (
	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pool"
)

// Result is one answer of GetAnything: an event and the relay it came from,
// or for bare keys just the Value.
type Result struct {
	Event *event.T
	Relay string
	Value string
}

type GetOption interface {
	IsGetOption()
}

// OnlyStored ends the results at the merged EOSE when true, the default,
// otherwise they keep streaming until the context ends.
type OnlyStored bool

func (_ OnlyStored) IsGetOption() {}

// SingleEvent ends the results after the first event. It is set for
// identifiers naming one event and can be forced either way.
type SingleEvent bool

func (_ SingleEvent) IsGetOption() {}

// GetAnything resolves anything (see Resolve) and returns what the network
// has for it. The channel is closed when the results are complete.
func (c *T) GetAnything(cx context.T, anything any, relays []string,
	opts ...GetOption) (results <-chan Result, err error) {

	var t *Target
	if t, err = Resolve(anything, relays); chk.D(err) {
		return
	}
	if !t.Query() {
		ch := make(chan Result, 1)
		ch <- Result{Value: t.Value}
		close(ch)
		return ch, nil
	}
	onlyStored, single := true, t.Single
	for _, opt := range opts {
		switch o := opt.(type) {
		case OnlyStored:
			onlyStored = bool(o)
		case SingleEvent:
			single = bool(o)
		}
	}
	if relays, err = c.relays(t.Relays); chk.D(err) {
		return
	}
	if c.Verbose {
		log.I.F("retrieving %s from %v", t.Filters, relays)
	}
	if single {
		return c.single(cx, t.Filters, relays), nil
	}
	return c.query(cx, t.Filters, relays, !onlyStored), nil
}

// GetAll is GetAnything collecting the results into a slice.
func (c *T) GetAll(cx context.T, anything any, relays []string,
	opts ...GetOption) (results []Result, err error) {

	var ch <-chan Result
	if ch, err = c.GetAnything(cx, anything, relays, opts...); err != nil {
		return
	}
	for res := range ch {
		results = append(results, res)
	}
	return
}

// Query runs the filters on the relays, or the default relays when none are
// given. Unless stream is set the channel closes once every relay sent EOSE
// or failed, and no more events than the filter limits allow are returned.
func (c *T) Query(cx context.T, ff filters.T, relays []string,
	stream bool) (results <-chan Result, err error) {

	if relays, err = c.relays(relays); chk.D(err) {
		return
	}
	return c.query(cx, ff, relays, stream), nil
}

func (c *T) query(cx context.T, ff filters.T, relays []string,
	stream bool) <-chan Result {

	cx, cancel := context.Cancel(cx)
	var in chan pool.IncomingEvent
	limit := 0
	if stream {
		in = c.Pool.SubMany(cx, relays, ff)
	} else {
		in = c.Pool.SubManyEose(cx, relays, ff)
		limit = totalLimit(ff)
	}
	out := make(chan Result)
	go func() {
		defer close(out)
		defer cancel()
		n := 0
		for ie := range in {
			select {
			case out <- Result{Event: ie.Event, Relay: ie.Relay.URL}:
			case <-cx.Done():
				return
			}
			if n++; limit > 0 && n >= limit {
				return
			}
		}
	}()
	return out
}

func (c *T) single(cx context.T, ff filters.T, relays []string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		if len(ff) == 1 {
			if ie := c.Pool.QuerySingle(cx, relays, ff[0]); ie != nil {
				out <- Result{Event: ie.Event, Relay: ie.Relay.URL}
			}
			return
		}
		cx, cancel := context.Cancel(cx)
		defer cancel()
		for ie := range c.Pool.SubManyEose(cx, relays, ff) {
			out <- Result{Event: ie.Event, Relay: ie.Relay.URL}
			return
		}
	}()
	return out
}

// totalLimit is the most events the filters can ask for, 0 if any of them
// is unlimited.
func totalLimit(ff filters.T) (n int) {
	for _, f := range ff {
		if f.Limit <= 0 {
			return 0
		}
		n += f.Limit
	}
	return
}
