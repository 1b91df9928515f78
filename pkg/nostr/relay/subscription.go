package relay

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
)

type Subscription struct {
	label   string
	counter int32

	Relay   *T
	Filters filters.T

	// for this to be treated as a COUNT and not a REQ this must be set
	countResult chan int64

	// the Events channel emits all EVENTs that come in a Subscription. will be
	// closed when the subscription ends
	Events chan *event.T
	mu     sync.Mutex

	// the EndOfStoredEvents channel gets closed when an EOSE comes for that
	// subscription, after every stored event before it was delivered
	EndOfStoredEvents chan struct{}

	// ClosedReason receives the reason of a CLOSED sent by the relay
	ClosedReason chan string

	// Context will be .Done() when the subscription ends
	Context context.T

	Live   atomic.Bool
	Eosed  atomic.Bool
	Cancel context.F
	closed atomic.Bool
}

// SubscriptionOption is the type of the argument passed for that. Some
// examples are WithLabel.
type SubscriptionOption interface {
	IsSubscriptionOption()
}

// WithLabel puts a label on the subscription (it is prepended to the automatic
// id) that is sent to relays.
type WithLabel string

func (_ WithLabel) IsSubscriptionOption() {}

var _ SubscriptionOption = (WithLabel)("")

// GetID return the Nostr subscription ID as given to the Relay it is a
// concatenation of the label and a serial number.
func (sub *Subscription) GetID() string {
	return sub.label + ":" + strconv.Itoa(int(sub.counter))
}

func (sub *Subscription) dispatchEvent(ev *event.T) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.Load() {
		return
	}
	select {
	case sub.Events <- ev:
	case <-sub.Context.Done():
	}
}

func (sub *Subscription) dispatchEose() {
	if sub.Eosed.CompareAndSwap(false, true) {
		close(sub.EndOfStoredEvents)
	}
}

func (sub *Subscription) dispatchClosed(reason string) {
	select {
	case sub.ClosedReason <- reason:
	default:
	}
	// the relay already dropped it, no CLOSE to send
	sub.Live.Store(false)
	sub.Unsub()
}

// Unsub closes the subscription, sending "CLOSE" to relay as in NIP-01. Unsub()
// also closes the channel sub.Events.
func (sub *Subscription) Unsub() {
	sub.Cancel()
	// naïve sync.Once implementation:
	if sub.Live.CompareAndSwap(true, false) {
		sub.sendClose()
	}
	sub.Relay.Subscriptions.Delete(sub.GetID())
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.CompareAndSwap(false, true) {
		close(sub.Events)
	}
}

// Close just sends a CLOSE message. You probably want Unsub() instead.
func (sub *Subscription) Close() { sub.sendClose() }

func (sub *Subscription) sendClose() {
	if !sub.Relay.IsConnected() {
		return
	}
	closeMsg := &envelopes.Close{SubscriptionID: sub.GetID()}
	b, err := closeMsg.MarshalJSON()
	if chk.D(err) {
		return
	}
	log.D.F("{%s} sending %s", sub.Relay.URL, b)
	<-sub.Relay.Write(b)
}

// Sub sets sub.Filters and then calls sub.Fire(ctx). The subscription will be
// closed if the context expires.
func (sub *Subscription) Sub(_ context.T, ff filters.T) error {
	sub.Filters = ff
	return sub.Fire()
}

// Fire sends the "REQ" command to the relay, or "COUNT" when the
// subscription was prepared for counting.
func (sub *Subscription) Fire() (err error) {
	id := sub.GetID()
	var b []byte
	if sub.countResult == nil {
		b, err = (&envelopes.Req{SubscriptionID: id,
			Filters: sub.Filters}).MarshalJSON()
	} else {
		b, err = (&envelopes.CountRequest{ID: id,
			Filters: sub.Filters}).MarshalJSON()
	}
	if chk.E(err) {
		return
	}
	log.D.F("{%s} sending %s", sub.Relay.URL, b)
	sub.Live.Store(true)
	if err = <-sub.Relay.Write(b); chk.D(err) {
		sub.Live.Store(false)
		sub.Cancel()
		return fmt.Errorf("failed to write: %w", err)
	}
	return
}
