// Package relaytest runs in-memory nostr relays over real websockets for
// tests. A Relay stores the events it is sent, answers REQ with the stored
// matches followed by EOSE, and forwards new events to open subscriptions.
package relaytest

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/hex"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"golang.org/x/net/websocket"
	"lukechampine.com/frand"
)

var log, chk = slog.New(os.Stderr)

type Option func(rl *Relay)

// RequireAuth makes the relay send a NIP-42 challenge on connect and refuse
// EVENT and REQ until the connection authenticated.
func RequireAuth() Option { return func(rl *Relay) { rl.requireAuth = true } }

// Reject answers every EVENT with OK false and this reason.
func Reject(reason string) Option { return func(rl *Relay) { rl.reject = reason } }

// CloseRequests answers every REQ with CLOSED and this reason.
func CloseRequests(reason string) Option {
	return func(rl *Relay) { rl.closeReason = reason }
}

// DropOK stores events without ever answering OK.
func DropOK() Option { return func(rl *Relay) { rl.dropOK = true } }

// NoEOSE never sends EOSE after the stored events.
func NoEOSE() Option { return func(rl *Relay) { rl.noEOSE = true } }

// Delay waits before answering each message.
func Delay(d time.Duration) Option { return func(rl *Relay) { rl.delay = d } }

// Tamper corrupts the content of every stored event sent to subscribers,
// leaving id and signature as they were.
func Tamper() Option { return func(rl *Relay) { rl.tamper = true } }

type Relay struct {
	Server *httptest.Server
	// URL is the ws:// address of the relay.
	URL string

	requireAuth bool
	reject      string
	closeReason string
	dropOK      bool
	noEOSE      bool
	delay       time.Duration
	tamper      bool

	mu        sync.Mutex
	events    []*event.T
	published []*event.T
	sessions  map[*session]struct{}
	requests  atomic.Int32
	authed    atomic.Int32
}

type session struct {
	conn      *websocket.Conn
	wmu       sync.Mutex
	challenge string
	authed    atomic.Pointer[string]
	smu       sync.Mutex
	subs      map[string]filters.T
}

// New starts a relay. Close it when done.
func New(opts ...Option) (rl *Relay) {
	rl = &Relay{sessions: make(map[*session]struct{})}
	for _, opt := range opts {
		opt(rl)
	}
	rl.Server = httptest.NewServer(&websocket.Server{
		Handshake: anyOriginHandshake,
		Handler:   rl.handle,
	})
	rl.URL = "ws" + strings.TrimPrefix(rl.Server.URL, "http")
	return
}

// anyOriginHandshake accepts clients that send no Origin, which
// golang.org/x/net/websocket refuses by default.
func anyOriginHandshake(conf *websocket.Config, r *http.Request) error {
	return nil
}

// Close drops every client connection and stops the server.
func (rl *Relay) Close() {
	rl.DropConnections()
	rl.Server.Close()
}

// DropConnections closes the websocket of every connected client.
func (rl *Relay) DropConnections() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for s := range rl.sessions {
		chk.T(s.conn.Close())
	}
}

// Store adds events as if they had been published earlier.
func (rl *Relay) Store(evs ...*event.T) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.events = append(rl.events, evs...)
}

// Events returns every stored event.
func (rl *Relay) Events() []*event.T {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return append([]*event.T(nil), rl.events...)
}

// Published returns the events received through EVENT, accepted or not.
func (rl *Relay) Published() []*event.T {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return append([]*event.T(nil), rl.published...)
}

// Requests is the number of REQ messages received.
func (rl *Relay) Requests() int { return int(rl.requests.Load()) }

// Authenticated is the number of successful AUTH messages received.
func (rl *Relay) Authenticated() int { return int(rl.authed.Load()) }

func (s *session) send(env envelopes.Enveloper) {
	b, err := env.MarshalJSON()
	if chk.E(err) {
		return
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	chk.D(websocket.Message.Send(s.conn, string(b)))
}

func (rl *Relay) handle(conn *websocket.Conn) {
	s := &session{conn: conn, subs: make(map[string]filters.T)}
	rl.mu.Lock()
	rl.sessions[s] = struct{}{}
	rl.mu.Unlock()
	defer func() {
		rl.mu.Lock()
		delete(rl.sessions, s)
		rl.mu.Unlock()
		chk.T(conn.Close())
	}()
	if rl.requireAuth {
		s.challenge = hex.Enc(frand.Bytes(16))
		s.send(&envelopes.AuthChallenge{Challenge: s.challenge})
	}
	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		if rl.delay > 0 {
			time.Sleep(rl.delay)
		}
		env, err := envelopes.Parse(msg)
		if err != nil {
			s.send(&envelopes.Notice{Message: "error: " + err.Error()})
			continue
		}
		switch env := env.(type) {
		case *envelopes.Event:
			rl.handleEvent(s, env.Event)
		case *envelopes.Req:
			rl.handleReq(s, env)
		case *envelopes.Close:
			s.smu.Lock()
			delete(s.subs, env.SubscriptionID)
			s.smu.Unlock()
		case *envelopes.CountRequest:
			rl.requests.Add(1)
			s.send(&envelopes.CountResponse{ID: env.ID,
				Count: int64(len(rl.query(env.Filters)))})
		case *envelopes.AuthResponse:
			rl.handleAuth(s, env.Event)
		default:
			s.send(&envelopes.Notice{Message: "error: unexpected " +
				env.Label()})
		}
	}
}

func (rl *Relay) handleEvent(s *session, ev *event.T) {
	rl.mu.Lock()
	rl.published = append(rl.published, ev)
	rl.mu.Unlock()
	ok := func(accepted bool, reason string) {
		if !rl.dropOK {
			s.send(&envelopes.OK{EventID: ev.ID, OK: accepted, Reason: reason})
		}
	}
	if err := ev.Verify(); err != nil {
		ok(false, envelopes.Invalid+": "+err.Error())
		return
	}
	if rl.requireAuth && s.authed.Load() == nil {
		ok(false, envelopes.AuthRequired+": authenticate first")
		return
	}
	if rl.reject != "" {
		ok(false, rl.reject)
		return
	}
	rl.mu.Lock()
	for _, stored := range rl.events {
		if stored.ID == ev.ID {
			rl.mu.Unlock()
			ok(true, envelopes.Duplicate+": already have this event")
			return
		}
	}
	rl.events = append(rl.events, ev)
	sessions := make([]*session, 0, len(rl.sessions))
	for ss := range rl.sessions {
		sessions = append(sessions, ss)
	}
	rl.mu.Unlock()
	ok(true, "")
	for _, ss := range sessions {
		ss.smu.Lock()
		var ids []string
		for id, ff := range ss.subs {
			if ff.Match(ev) {
				ids = append(ids, id)
			}
		}
		ss.smu.Unlock()
		for _, id := range ids {
			ss.send(&envelopes.EventResult{SubscriptionID: id, Event: ev})
		}
	}
}

func (rl *Relay) handleReq(s *session, req *envelopes.Req) {
	rl.requests.Add(1)
	if rl.requireAuth && s.authed.Load() == nil {
		s.send(&envelopes.Closed{SubscriptionID: req.SubscriptionID,
			Reason: envelopes.AuthRequired + ": authenticate first"})
		return
	}
	if rl.closeReason != "" {
		s.send(&envelopes.Closed{SubscriptionID: req.SubscriptionID,
			Reason: rl.closeReason})
		return
	}
	s.smu.Lock()
	s.subs[req.SubscriptionID] = req.Filters
	s.smu.Unlock()
	for _, ev := range rl.query(req.Filters) {
		if rl.tamper {
			ev = ev.Clone()
			ev.Content += " tampered"
		}
		s.send(&envelopes.EventResult{SubscriptionID: req.SubscriptionID,
			Event: ev})
	}
	if !rl.noEOSE {
		s.send(&envelopes.EOSE{SubscriptionID: req.SubscriptionID})
	}
}

func (rl *Relay) handleAuth(s *session, ev *event.T) {
	reply := func(accepted bool, reason string) {
		s.send(&envelopes.OK{EventID: ev.ID, OK: accepted, Reason: reason})
	}
	if err := ev.Verify(); err != nil {
		reply(false, envelopes.Invalid+": "+err.Error())
		return
	}
	if ev.Kind != kind.ClientAuthentication {
		reply(false, envelopes.Invalid+": wrong kind")
		return
	}
	ch := ev.Tags.GetFirst([]string{"challenge", s.challenge})
	if s.challenge == "" || ch == nil {
		reply(false, envelopes.Invalid+": challenge mismatch")
		return
	}
	pk := ev.PubKey
	s.authed.Store(&pk)
	rl.authed.Add(1)
	reply(true, "")
}

// query returns the stored events matching any of the filters, newest first,
// each filter honouring its limit.
func (rl *Relay) query(ff filters.T) (evs []*event.T) {
	rl.mu.Lock()
	stored := append([]*event.T(nil), rl.events...)
	rl.mu.Unlock()
	sort.Stable(event.Descending(stored))
	seen := make(map[eventid.T]struct{})
	for _, f := range ff {
		n := 0
		for _, ev := range stored {
			if f.Limit > 0 && n >= f.Limit {
				break
			}
			if !f.Matches(ev) {
				continue
			}
			n++
			if _, ok := seen[ev.ID]; ok {
				continue
			}
			seen[ev.ID] = struct{}{}
			evs = append(evs, ev)
		}
	}
	return
}
