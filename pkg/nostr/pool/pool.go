// Package pool keeps one connection per relay and multiplexes subscriptions
// and publishing over a set of relays.
package pool

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/normalize"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/fiatjaf/generic-ristretto/z"
	"github.com/puzpuzpuz/xsync/v2"
)

var log, chk = slog.New(os.Stderr)

const MaxLocks = 50

const (
	DialTimeout    = 15 * time.Second
	ReconnectDelay = 3 * time.Second
	// EoseTimeout is how long SubManyEose waits for a relay's EOSE when the
	// context has no deadline of its own.
	EoseTimeout = 7 * time.Second
)

// ErrAllFailed is returned when an event could not be delivered to any relay.
var ErrAllFailed = errors.New("publishing failed on every relay")

type Option interface {
	IsPoolOption()
	Apply(*Simple)
}

// WithAuthHandler must be a function that signs the auth event when called.
// it will be called whenever any relay in the pool returns a `CLOSED` or `OK`
// message with the "auth-required:" prefix, only once for each relay
type WithAuthHandler func(authEvent *event.T) error

func (_ WithAuthHandler) IsPoolOption() {}
func (h WithAuthHandler) Apply(pool *Simple) {
	pool.authHandler = h
}

var _ Option = (WithAuthHandler)(nil)

type withRelayOptions []relay.Option

func (_ withRelayOptions) IsPoolOption() {}
func (o withRelayOptions) Apply(pool *Simple) {
	pool.relayOptions = append(pool.relayOptions, o...)
}

// WithRelayOptions are passed to every relay the pool connects to.
func WithRelayOptions(opts ...relay.Option) Option { return withRelayOptions(opts) }

// WithEoseTimeout replaces EoseTimeout. A relay that sent no EOSE by then is
// taken as finished with what it sent.
type WithEoseTimeout time.Duration

func (_ WithEoseTimeout) IsPoolOption()      {}
func (d WithEoseTimeout) Apply(pool *Simple) { pool.eoseTimeout = time.Duration(d) }

// WithReconnectDelay replaces ReconnectDelay.
type WithReconnectDelay time.Duration

func (_ WithReconnectDelay) IsPoolOption()      {}
func (d WithReconnectDelay) Apply(pool *Simple) { pool.reconnectDelay = time.Duration(d) }

var namedMutexPool = make([]sync.Mutex, MaxLocks)

func namedLock(name string) (unlock func()) {
	idx := z.MemHashString(name) % MaxLocks
	namedMutexPool[idx].Lock()
	return namedMutexPool[idx].Unlock
}

type Simple struct {
	Relays         *xsync.MapOf[string, *relay.T]
	Context        context.T
	cancel         context.F
	authHandler    func(*event.T) error
	relayOptions   []relay.Option
	eoseTimeout    time.Duration
	reconnectDelay time.Duration
}

type IncomingEvent struct {
	Event *event.T
	Relay *relay.T
}

func (ie IncomingEvent) String() string {
	return fmt.Sprintf("[%s] >> %s", ie.Relay.URL, ie.Event)
}

// PublishResult is the outcome of publishing on one relay.
type PublishResult struct {
	Relay  string
	Status relay.Status
	Err    error
}

func NewSimplePool(c context.T, opts ...Option) (p *Simple) {
	c, cancel := context.Cancel(c)
	p = &Simple{
		Relays:         xsync.NewMapOf[*relay.T](),
		Context:        c,
		cancel:         cancel,
		eoseTimeout:    EoseTimeout,
		reconnectDelay: ReconnectDelay,
	}
	for _, opt := range opts {
		opt.Apply(p)
	}
	return
}

// EnsureRelay returns the live connection to url, dialing a new one when
// there is none or the cached one died.
func (p *Simple) EnsureRelay(url string) (rl *relay.T, err error) {
	nm := normalize.URL(url)
	if nm == "" {
		return nil, fmt.Errorf("invalid relay URL '%s'", url)
	}
	defer namedLock(nm)()
	var ok bool
	rl, ok = p.Relays.Load(nm)
	if ok && rl.IsConnected() {
		// already connected, unlock and return
		return rl, nil
	}
	// the relay lives as long as the pool does
	rl = relay.New(p.Context, nm, p.relayOptions...)
	c, cancel := context.Timeout(p.Context, DialTimeout)
	defer cancel()
	if err = rl.Connect(c); chk.D(err) {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	p.Relays.Store(nm, rl)
	return
}

// SubMany opens a subscription with the given filters to multiple relays the
// subscriptions only end when the context is canceled. Relays that drop the
// connection are dialed again.
func (p *Simple) SubMany(c context.T, urls []string,
	ff filters.T) chan IncomingEvent {

	return p.subMany(c, urls, ff, true, false)
}

// SubManyNonUnique is like SubMany, but returns duplicate events if they come
// from different relays.
func (p *Simple) SubManyNonUnique(c context.T, urls []string,
	ff filters.T) chan IncomingEvent {

	return p.subMany(c, urls, ff, false, false)
}

// SubManyEose is like SubMany, but it stops subscriptions and closes the
// channel when every relay sent EOSE, closed the subscription or failed.
func (p *Simple) SubManyEose(c context.T, urls []string,
	ff filters.T) chan IncomingEvent {

	return p.subMany(c, urls, ff, true, true)
}

// SubManyEoseNonUnique is like SubManyEose, but returns duplicate events if
// they come from different relays.
func (p *Simple) SubManyEoseNonUnique(c context.T, urls []string,
	ff filters.T) chan IncomingEvent {

	return p.subMany(c, urls, ff, false, true)
}

func (p *Simple) subMany(c context.T, urls []string, ff filters.T, unique,
	eose bool) chan IncomingEvent {

	c, cancel := context.Cancel(c)
	events := make(chan IncomingEvent)
	seenAlready := xsync.NewMapOf[bool]()
	emit := func(ie IncomingEvent) bool {
		if unique {
			if _, dup := seenAlready.LoadOrStore(ie.Event.ID.String(),
				true); dup {
				return true
			}
		}
		select {
		case events <- ie:
			return true
		case <-c.Done():
			return false
		}
	}
	urls = normalize.URLs(urls)
	var wg sync.WaitGroup
	wg.Add(len(urls))
	go func() {
		// this will happen when all subscriptions get an eose (or when they
		// die)
		wg.Wait()
		cancel()
		close(events)
	}()
	for _, url := range urls {
		go func(nm string) {
			defer wg.Done()
			p.subRelay(c, nm, ff, eose, emit)
		}(url)
	}
	return events
}

func (p *Simple) subRelay(c context.T, nm string, ff filters.T, eose bool,
	emit func(IncomingEvent) bool) {

	authed := false
	for {
		rl, err := p.EnsureRelay(nm)
		if err != nil {
			log.D.F("{%s} %v", nm, err)
			if eose || !p.wait(c) {
				return
			}
			continue
		}
		sub, err := rl.Subscribe(c, ff)
		if err != nil {
			// the connection can drop between dialing and subscribing
			log.D.F("error subscribing to %s with %v: %s", rl, ff, err)
			if eose || !p.wait(c) {
				return
			}
			continue
		}
		eoseCh := sub.EndOfStoredEvents
		var deadline <-chan time.Time
		if _, ok := c.Deadline(); eose && !ok && p.eoseTimeout > 0 {
			timer := time.NewTimer(p.eoseTimeout)
			defer timer.Stop()
			deadline = timer.C
		}
	events:
		for {
			select {
			case <-c.Done():
				return
			case <-deadline:
				log.D.F("{%s} no EOSE after %v", nm, p.eoseTimeout)
				sub.Unsub()
				return
			case <-eoseCh:
				if eose {
					sub.Unsub()
					return
				}
				eoseCh = nil
			case ev, more := <-sub.Events:
				if !more {
					break events
				}
				if !emit(IncomingEvent{Event: ev, Relay: rl}) {
					return
				}
			}
		}
		// the subscription ended without being asked to
		select {
		case reason := <-sub.ClosedReason:
			prefix, _ := envelopes.SplitReason(reason)
			if prefix == envelopes.AuthRequired && p.authHandler != nil &&
				!authed {
				authed = true
				if _, err = rl.Auth(c, p.authHandler); !chk.D(err) {
					continue
				}
			}
			log.D.F("{%s} subscription closed: %s", nm, reason)
			return
		default:
		}
		if eose || !p.wait(c) {
			return
		}
	}
}

// wait pauses before reconnecting, false when c ended meanwhile.
func (p *Simple) wait(c context.T) bool {
	select {
	case <-time.After(p.reconnectDelay):
		return true
	case <-c.Done():
		return false
	}
}

// QuerySingle returns the first event returned by the first relay, cancels
// everything else.
func (p *Simple) QuerySingle(c context.T, urls []string,
	f *filter.T) *IncomingEvent {

	c, cancel := context.Cancel(c)
	defer cancel()
	for ie := range p.SubManyEose(c, urls, filters.T{f}) {
		return &ie
	}
	return nil
}

// PublishMany sends ev to every relay concurrently and returns one result per
// relay, in the order of urls. A relay rejecting with auth-required is
// authenticated with the pool's auth handler and tried again. The error is
// ErrAllFailed when no relay accepted or acknowledged the event.
func (p *Simple) PublishMany(c context.T, urls []string,
	ev *event.T) (results []PublishResult, err error) {

	return p.PublishManyWithAuth(c, urls, ev, p.authHandler)
}

// PublishManyWithAuth is PublishMany answering auth-required rejections with
// sign instead of the pool's auth handler.
func (p *Simple) PublishManyWithAuth(c context.T, urls []string, ev *event.T,
	sign func(*event.T) error) (results []PublishResult, err error) {

	urls = normalize.URLs(urls)
	results = make([]PublishResult, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, nm string) {
			defer wg.Done()
			results[i] = p.publish(c, nm, ev, sign)
		}(i, url)
	}
	wg.Wait()
	for _, res := range results {
		if res.Status != relay.PublishStatusFailed {
			return
		}
	}
	return results, ErrAllFailed
}

func (p *Simple) publish(c context.T, nm string, ev *event.T,
	sign func(*event.T) error) (res PublishResult) {

	res.Relay = nm
	res.Status = relay.PublishStatusFailed
	var rl *relay.T
	if rl, res.Err = p.EnsureRelay(nm); res.Err != nil {
		return
	}
	res.Status, res.Err = rl.Publish(c, ev)
	var pe *relay.PublishError
	if errors.As(res.Err, &pe) && pe.Prefix() == envelopes.AuthRequired &&
		sign != nil {

		if _, err := rl.Auth(c, sign); chk.D(err) {
			res.Err = fmt.Errorf("%w; auth failed: %v", res.Err, err)
			return
		}
		res.Status, res.Err = rl.Publish(c, ev)
	}
	log.D.F("{%s} publish %s: %s %v", nm, ev.ID, res.Status, res.Err)
	return
}

// Authenticate answers the pending AUTH challenge of each of the relays,
// signing with sign, and returns how many relays accepted it.
func (p *Simple) Authenticate(c context.T, urls []string,
	sign func(*event.T) error) (n int) {

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, url := range normalize.URLs(urls) {
		wg.Add(1)
		go func(nm string) {
			defer wg.Done()
			rl, err := p.EnsureRelay(nm)
			if err != nil || rl.Challenge() == "" {
				return
			}
			if status, err := rl.Auth(c, sign); chk.D(err) ||
				status != relay.PublishStatusSucceeded {
				return
			}
			mu.Lock()
			n++
			mu.Unlock()
		}(url)
	}
	wg.Wait()
	return
}

// Close disconnects every relay of the pool.
func (p *Simple) Close() {
	p.cancel()
	p.Relays.Range(func(url string, rl *relay.T) bool {
		chk.T(rl.Close())
		p.Relays.Delete(url)
		return true
	})
}
