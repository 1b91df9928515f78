// Package relay is a client for a single nostr relay: one websocket
// connection with a read loop dispatching relay messages to subscriptions and
// pending commands, and a write queue serialising everything sent.
package relay

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/hex"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/connection"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/normalize"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/puzpuzpuz/xsync/v2"
	"lukechampine.com/frand"
)

var log, chk = slog.New(os.Stderr)

// ErrNotConnected is returned for operations on a relay whose connection was
// never opened or has been lost.
var ErrNotConnected = errors.New("relay not connected")

// Default timeouts applied when the caller's context has no deadline.
const (
	ConnectTimeout = 7 * time.Second
	PublishTimeout = 7 * time.Second
	AuthTimeout    = 3 * time.Second
	PingInterval   = 29 * time.Second
)

// Option is the type of the argument passed for that. Some examples of this are
// WithNoticeHandler and WithAuthHandler.
type Option interface {
	IsRelayOption()
}

// WithNoticeHandler just takes notices and is expected to do something with
// them. when not given, defaults to logging the notices.
type WithNoticeHandler func(notice string)

func (_ WithNoticeHandler) IsRelayOption() {}

var _ Option = (WithNoticeHandler)(nil)

// WithAuthHandler takes an auth event and expects it to be signed. when not
// given, AUTH messages from relays are only recorded, see Challenge.
type WithAuthHandler func(c context.T, authEvent *event.T) (ok bool)

func (_ WithAuthHandler) IsRelayOption() {}

var _ Option = (WithAuthHandler)(nil)

// WithOrigin sets the Origin header of the websocket handshake.
type WithOrigin string

func (_ WithOrigin) IsRelayOption() {}

type assumeValid struct{}

func (_ assumeValid) IsRelayOption() {}

// WithAssumeValid skips id and signature checks of events received from the
// relay.
func WithAssumeValid() Option { return assumeValid{} }

type Status int

const (
	PublishStatusSent      Status = 0
	PublishStatusFailed    Status = -1
	PublishStatusSucceeded Status = 1
)

func (s Status) String() string {
	switch s {
	case PublishStatusSent:
		return "sent"
	case PublishStatusFailed:
		return "failed"
	case PublishStatusSucceeded:
		return "success"
	}
	return "unknown"
}

type T struct {
	URL           string
	RequestHeader http.Header
	Connection    *connection.C
	Subscriptions *xsync.MapOf[string, *Subscription]
	// AssumeValid skips verifying events received from this relay.
	AssumeValid bool

	ctx           context.T
	cancel        context.C
	closeOnce     sync.Once
	noticeHandler WithNoticeHandler
	authHandler   WithAuthHandler
	challenge     atomic.Pointer[string]
	authRequired  chan struct{}
	okCallbacks   *xsync.MapOf[string, func(bool, string)]
	writeQueue    chan writeRequest
	subIDPrefix   string
	subIDCounter  atomic.Int32
}

type writeRequest struct {
	msg    []byte
	answer chan error
}

// New returns a new relay that is not yet connected. The relay connection
// will be closed when the context is canceled.
func New(c context.T, url string, opts ...Option) (r *T) {
	c, cancel := context.CancelCause(c)
	r = &T{
		URL:           normalize.URL(url),
		ctx:           c,
		cancel:        cancel,
		Subscriptions: xsync.NewMapOf[*Subscription](),
		okCallbacks:   xsync.NewMapOf[func(bool, string)](),
		writeQueue:    make(chan writeRequest),
		authRequired:  make(chan struct{}, 1),
		subIDPrefix:   hex.Enc(frand.Bytes(4)),
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case WithNoticeHandler:
			r.noticeHandler = o
		case WithAuthHandler:
			r.authHandler = o
		case WithOrigin:
			if r.RequestHeader == nil {
				r.RequestHeader = http.Header{}
			}
			r.RequestHeader.Set("Origin", string(o))
		case assumeValid:
			r.AssumeValid = true
		}
	}
	return r
}

// Connect returns a relay object connected to url. Once successfully
// connected, cancelling c has no effect. To close the connection, call
// r.Close().
func Connect(c context.T, url string, opts ...Option) (r *T, err error) {
	r = New(context.Bg(), url, opts...)
	err = r.Connect(c)
	return
}

// String just returns the relay URL.
func (r *T) String() string { return r.URL }

// Context retrieves the context that is associated with this relay connection,
// it is done when the connection closes.
func (r *T) Context() context.T { return r.ctx }

// IsConnected returns true if the connection to this relay seems to be active.
func (r *T) IsConnected() bool { return r.Connection != nil && r.ctx.Err() == nil }

// ConnectionError returns why the connection ended, nil while it is alive.
func (r *T) ConnectionError() error {
	if r.ctx.Err() == nil {
		return nil
	}
	return context.Cause(r.ctx)
}

// Challenge returns the last NIP-42 challenge received, or "".
func (r *T) Challenge() string {
	if c := r.challenge.Load(); c != nil {
		return *c
	}
	return ""
}

// AuthRequired is signalled whenever the relay sends a challenge.
func (r *T) AuthRequired() <-chan struct{} { return r.authRequired }

// Connect tries to establish a websocket connection to r.URL. If the context
// expires before the connection is complete, an error is returned. Once
// successfully connected, context expiration has no effect: call r.Close to
// close the connection.
func (r *T) Connect(c context.T) (err error) {
	if r.ctx == nil || r.Subscriptions == nil {
		return fmt.Errorf("relay must be initialized with a call to New()")
	}
	if r.URL == "" {
		return fmt.Errorf("invalid relay URL '%s'", r.URL)
	}
	if _, ok := c.Deadline(); !ok {
		var cancel context.F
		c, cancel = context.Timeout(c, ConnectTimeout)
		defer cancel()
	}
	var conn *connection.C
	if conn, err = connection.NewConnection(c, r.URL, r.RequestHeader); chk.D(err) {
		return fmt.Errorf("error opening websocket to '%s': %w", r.URL, err)
	}
	r.Connection = conn
	ticker := time.NewTicker(PingInterval)
	go func() {
		<-r.ctx.Done()
		ticker.Stop()
		chk.T(conn.Close())
		r.Subscriptions.Range(func(_ string, sub *Subscription) bool {
			go sub.Unsub()
			return true
		})
	}()
	// queue all write operations here so we don't do mutex spaghetti
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.Ping(); chk.D(err) {
					log.D.F("{%s} error writing ping: %v; closing websocket",
						r.URL, err)
					r.cancel(fmt.Errorf("ping failed: %w", err))
					return
				}
			case wr := <-r.writeQueue:
				wr.answer <- conn.WriteMessage(r.ctx, wr.msg)
			case <-r.ctx.Done():
				return
			}
		}
	}()
	go r.readLoop(conn)
	return nil
}

func (r *T) readLoop(conn *connection.C) {
	buf := new(bytes.Buffer)
	for {
		buf.Reset()
		if err := conn.ReadMessage(r.ctx, buf); err != nil {
			log.D.F("{%s} connection ended: %v", r.URL, err)
			r.cancel(err)
			return
		}
		message := buf.Bytes()
		log.T.F("{%s} received %s", r.URL, message)
		env, err := envelopes.Parse(message)
		if chk.D(err) {
			continue
		}
		r.dispatch(env)
	}
}

func (r *T) dispatch(env envelopes.Enveloper) {
	switch env := env.(type) {
	case *envelopes.Notice:
		if r.noticeHandler != nil {
			r.noticeHandler(env.Message)
		} else {
			log.I.F("NOTICE from %s: '%s'", r.URL, env.Message)
		}
	case *envelopes.AuthChallenge:
		if env.Challenge == "" {
			return
		}
		challenge := env.Challenge
		r.challenge.Store(&challenge)
		select {
		case r.authRequired <- struct{}{}:
		default:
		}
		if r.authHandler != nil {
			go func() {
				status, err := r.Auth(r.ctx, func(ev *event.T) error {
					if !r.authHandler(r.ctx, ev) {
						return fmt.Errorf("auth handler declined")
					}
					return nil
				})
				log.D.F("{%s} auth %s %v", r.URL, status, err)
			}()
		}
	case *envelopes.EventResult:
		sub, ok := r.Subscriptions.Load(env.SubscriptionID)
		if !ok {
			log.D.F("{%s} no subscription with id '%s'", r.URL,
				env.SubscriptionID)
			return
		}
		if !sub.Filters.Match(env.Event) {
			log.D.F("{%s} filter does not match: %v ~ %v", r.URL,
				sub.Filters, env.Event)
			return
		}
		if !r.AssumeValid {
			if err := env.Event.Verify(); err != nil {
				log.D.F("{%s} dropping event %s: %v", r.URL, env.Event.ID, err)
				return
			}
		}
		sub.dispatchEvent(env.Event)
	case *envelopes.EOSE:
		if sub, ok := r.Subscriptions.Load(env.SubscriptionID); ok {
			sub.dispatchEose()
		}
	case *envelopes.Closed:
		if sub, ok := r.Subscriptions.Load(env.SubscriptionID); ok {
			sub.dispatchClosed(env.Reason)
		}
	case *envelopes.CountResponse:
		if sub, ok := r.Subscriptions.Load(env.ID); ok && sub.countResult != nil {
			select {
			case sub.countResult <- env.Count:
			default:
			}
		}
	case *envelopes.OK:
		if cb, ok := r.okCallbacks.Load(env.EventID.String()); ok {
			cb(env.OK, env.Reason)
		}
	}
}

// Write queues a message to be sent to the relay.
func (r *T) Write(msg []byte) <-chan error {
	ch := make(chan error, 1)
	if r.Connection == nil {
		ch <- ErrNotConnected
		return ch
	}
	select {
	case r.writeQueue <- writeRequest{msg: msg, answer: ch}:
	case <-r.ctx.Done():
		ch <- ErrNotConnected
	}
	return ch
}

// Close the connection, ending every subscription.
func (r *T) Close() (err error) {
	if r.Connection == nil {
		return ErrNotConnected
	}
	err = ErrNotConnected
	r.closeOnce.Do(func() {
		err = nil
		r.cancel(fmt.Errorf("relay connection closed by client"))
	})
	return
}
