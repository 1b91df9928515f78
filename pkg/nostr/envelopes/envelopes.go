// Package envelopes implements the JSON array messages exchanged between
// clients and relays: the label as the first element followed by the
// payload.
package envelopes

import (
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/mailru/easyjson/jwriter"
)

const (
	LEvent  = "EVENT"
	LReq    = "REQ"
	LClose  = "CLOSE"
	LClosed = "CLOSED"
	LEOSE   = "EOSE"
	LNotice = "NOTICE"
	LOK     = "OK"
	LAuth   = "AUTH"
	LCount  = "COUNT"
)

// Enveloper is a message that can be sent over the wire.
type Enveloper interface {
	Label() string
	MarshalJSON() ([]byte, error)
}

func build(label string, body func(w *jwriter.Writer)) ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	w.RawByte('[')
	w.String(label)
	w.RawByte(',')
	body(&w)
	w.RawByte(']')
	return w.BuildBytes()
}

// Event is a client publishing an event.
type Event struct{ Event *event.T }

func (env *Event) Label() string { return LEvent }
func (env *Event) MarshalJSON() ([]byte, error) {
	return build(LEvent, func(w *jwriter.Writer) { env.Event.MarshalTo(w) })
}

// EventResult is a relay delivering an event for a subscription.
type EventResult struct {
	SubscriptionID string
	Event          *event.T
}

func (env *EventResult) Label() string { return LEvent }
func (env *EventResult) MarshalJSON() ([]byte, error) {
	return build(LEvent, func(w *jwriter.Writer) {
		w.String(env.SubscriptionID)
		w.RawByte(',')
		env.Event.MarshalTo(w)
	})
}

// Req opens a subscription.
type Req struct {
	SubscriptionID string
	Filters        filters.T
}

func (env *Req) Label() string { return LReq }
func (env *Req) MarshalJSON() ([]byte, error) {
	return build(LReq, func(w *jwriter.Writer) {
		w.String(env.SubscriptionID)
		if len(env.Filters) > 0 {
			w.RawByte(',')
			env.Filters.MarshalTo(w)
		}
	})
}

// Close ends a subscription from the client side.
type Close struct{ SubscriptionID string }

func (env *Close) Label() string { return LClose }
func (env *Close) MarshalJSON() ([]byte, error) {
	return build(LClose, func(w *jwriter.Writer) { w.String(env.SubscriptionID) })
}

// Closed is a relay ending a subscription, with a reason.
type Closed struct {
	SubscriptionID string
	Reason         string
}

func (env *Closed) Label() string { return LClosed }
func (env *Closed) MarshalJSON() ([]byte, error) {
	return build(LClosed, func(w *jwriter.Writer) {
		w.String(env.SubscriptionID)
		w.RawByte(',')
		w.String(env.Reason)
	})
}

// EOSE marks the end of the stored events of a subscription.
type EOSE struct{ SubscriptionID string }

func (env *EOSE) Label() string { return LEOSE }
func (env *EOSE) MarshalJSON() ([]byte, error) {
	return build(LEOSE, func(w *jwriter.Writer) { w.String(env.SubscriptionID) })
}

// Notice is a human readable message from a relay.
type Notice struct{ Message string }

func (env *Notice) Label() string { return LNotice }
func (env *Notice) MarshalJSON() ([]byte, error) {
	return build(LNotice, func(w *jwriter.Writer) { w.String(env.Message) })
}

// OK is the result of an EVENT or AUTH command.
type OK struct {
	EventID eventid.T
	OK      bool
	Reason  string
}

func (env *OK) Label() string { return LOK }
func (env *OK) MarshalJSON() ([]byte, error) {
	return build(LOK, func(w *jwriter.Writer) {
		w.String(string(env.EventID))
		w.RawByte(',')
		w.Bool(env.OK)
		w.RawByte(',')
		w.String(env.Reason)
	})
}

// AuthChallenge is a relay asking the client to authenticate.
type AuthChallenge struct{ Challenge string }

func (env *AuthChallenge) Label() string { return LAuth }
func (env *AuthChallenge) MarshalJSON() ([]byte, error) {
	return build(LAuth, func(w *jwriter.Writer) { w.String(env.Challenge) })
}

// AuthResponse carries the signed kind 22242 event answering a challenge.
type AuthResponse struct{ Event *event.T }

func (env *AuthResponse) Label() string { return LAuth }
func (env *AuthResponse) MarshalJSON() ([]byte, error) {
	return build(LAuth, func(w *jwriter.Writer) { env.Event.MarshalTo(w) })
}

// CountRequest asks a relay for the number of matching events.
type CountRequest struct {
	ID      string
	Filters filters.T
}

func (env *CountRequest) Label() string { return LCount }
func (env *CountRequest) MarshalJSON() ([]byte, error) {
	return build(LCount, func(w *jwriter.Writer) {
		w.String(env.ID)
		if len(env.Filters) > 0 {
			w.RawByte(',')
			env.Filters.MarshalTo(w)
		}
	})
}

// CountResponse is the answer to a CountRequest.
type CountResponse struct {
	ID    string
	Count int64
}

func (env *CountResponse) Label() string { return LCount }
func (env *CountResponse) MarshalJSON() ([]byte, error) {
	return build(LCount, func(w *jwriter.Writer) {
		w.String(env.ID)
		w.RawString(`,{"count":`)
		w.Int64(env.Count)
		w.RawByte('}')
	})
}
