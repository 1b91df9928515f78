package relay

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
)

// Subscribe sends a "REQ" command to the relay r as in NIP-01. Events are
// returned through the channel sub.Events. The subscription is closed when
// context c is cancelled ("CLOSE" in NIP-01).
func (r *T) Subscribe(c context.T, ff filters.T,
	opts ...SubscriptionOption) (sub *Subscription, err error) {

	if sub, err = r.PrepareSubscription(c, ff, opts...); chk.D(err) {
		return
	}
	if err = sub.Fire(); chk.D(err) {
		return nil, fmt.Errorf("couldn't subscribe to %v at %s: %w", ff,
			r.URL, err)
	}
	return
}

// PrepareSubscription creates a subscription, but doesn't fire it.
func (r *T) PrepareSubscription(c context.T, ff filters.T,
	opts ...SubscriptionOption) (sub *Subscription, err error) {

	return r.prepare(c, ff, false, opts...)
}

func (r *T) prepare(c context.T, ff filters.T, count bool,
	opts ...SubscriptionOption) (sub *Subscription, err error) {

	if !r.IsConnected() {
		return nil, ErrNotConnected
	}
	current := r.subIDCounter.Add(1)
	c, cancel := context.Cancel(c)
	// the subscription also ends with the connection
	stop := context.AfterFunc(r.ctx, cancel)
	sub = &Subscription{
		Relay:             r,
		Context:           c,
		Cancel:            cancel,
		counter:           current,
		label:             r.subIDPrefix,
		Events:            make(chan *event.T),
		EndOfStoredEvents: make(chan struct{}),
		ClosedReason:      make(chan string, 1),
		Filters:           ff,
	}
	if count {
		sub.countResult = make(chan int64, 1)
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case WithLabel:
			sub.label = string(o)
		}
	}
	r.Subscriptions.Store(sub.GetID(), sub)
	// start handling events, eose, unsub etc:
	go func() {
		<-sub.Context.Done()
		stop()
		sub.Unsub()
	}()
	return
}

// QuerySync subscribes with one filter and collects the stored events until
// EOSE, the relay closing the subscription, or c expiring.
func (r *T) QuerySync(c context.T, f *filter.T,
	opts ...SubscriptionOption) (evs []*event.T, err error) {

	if _, ok := c.Deadline(); !ok {
		// if no timeout is set, force it to 7 seconds
		var cancel context.F
		c, cancel = context.Timeout(c, PublishTimeout)
		defer cancel()
	}
	var sub *Subscription
	if sub, err = r.Subscribe(c, filters.T{f}, opts...); chk.D(err) {
		return
	}
	defer sub.Unsub()
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				// a CLOSED reason, if any, arrives before the channel closes
				select {
				case reason := <-sub.ClosedReason:
					return evs, closedError(r.URL, reason)
				default:
				}
				return
			}
			evs = append(evs, ev)
		case <-sub.EndOfStoredEvents:
			return
		case reason := <-sub.ClosedReason:
			return evs, closedError(r.URL, reason)
		case <-c.Done():
			return
		}
	}
}

// Count sends a "COUNT" command and waits for the answer.
func (r *T) Count(c context.T, ff filters.T,
	opts ...SubscriptionOption) (count int64, err error) {

	var sub *Subscription
	if sub, err = r.prepare(c, ff, true, opts...); chk.D(err) {
		return
	}
	if err = sub.Fire(); chk.D(err) {
		return
	}
	defer sub.Cancel()
	if _, ok := c.Deadline(); !ok {
		// if no timeout is set, force it to 7 seconds
		var cancel context.F
		c, cancel = context.Timeout(c, PublishTimeout)
		defer cancel()
	}
	select {
	case count = <-sub.countResult:
		return
	case reason := <-sub.ClosedReason:
		return 0, closedError(r.URL, reason)
	case <-c.Done():
		return 0, context.Cause(c)
	}
}

func closedError(url, reason string) error {
	return fmt.Errorf("subscription closed by %s: %s", url, reason)
}
