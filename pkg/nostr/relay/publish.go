package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
)

// ErrRejected is wrapped by every PublishError.
var ErrRejected = errors.New("rejected by relay")

// PublishError carries the reason of an OK false from the relay.
type PublishError struct {
	URL    string
	Reason string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: msg: %s", e.URL, e.Reason)
}

func (e *PublishError) Unwrap() error { return ErrRejected }

// Prefix returns the machine readable part of the reason, such as
// auth-required or blocked.
func (e *PublishError) Prefix() string {
	p, _ := envelopes.SplitReason(e.Reason)
	return p
}

// Publish sends an "EVENT" command to the relay r as in NIP-01 and waits for
// the OK. When the relay does not answer before the deadline the status stays
// PublishStatusSent and no error is returned.
func (r *T) Publish(c context.T, ev *event.T) (s Status, err error) {
	return r.publish(c, ev.ID.String(), &envelopes.Event{Event: ev},
		PublishTimeout)
}

// Auth sends an "AUTH" command client -> relay as in NIP-42. The event is
// built for the last challenge received and signed with sign.
func (r *T) Auth(c context.T, sign func(ev *event.T) error) (s Status,
	err error) {

	challenge := r.Challenge()
	if challenge == "" {
		return PublishStatusFailed, fmt.Errorf("no auth challenge from %s",
			r.URL)
	}
	authEvent := &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.ClientAuthentication,
		Tags: tags.T{
			{"relay", r.URL},
			{"challenge", challenge},
		},
		Content: "",
	}
	if err = sign(authEvent); chk.D(err) {
		return PublishStatusFailed, fmt.Errorf("error signing auth event: %w",
			err)
	}
	return r.publish(c, authEvent.ID.String(),
		&envelopes.AuthResponse{Event: authEvent}, AuthTimeout)
}

type okResult struct {
	ok     bool
	reason string
}

func (r *T) publish(c context.T, id string, env envelopes.Enveloper,
	timeout time.Duration) (s Status, err error) {

	if !r.IsConnected() {
		return PublishStatusFailed, ErrNotConnected
	}
	if _, ok := c.Deadline(); !ok {
		var cancel context.F
		c, cancel = context.Timeout(c, timeout)
		defer cancel()
	}
	answer := make(chan okResult, 1)
	r.okCallbacks.Store(id, func(ok bool, reason string) {
		select {
		case answer <- okResult{ok, reason}:
		default:
		}
	})
	defer r.okCallbacks.Delete(id)
	var b []byte
	if b, err = env.MarshalJSON(); chk.E(err) {
		return PublishStatusFailed, err
	}
	log.D.F("{%s} sending %s", r.URL, b)
	if err = <-r.Write(b); chk.D(err) {
		return PublishStatusFailed, err
	}
	select {
	case res := <-answer:
		if res.ok {
			return PublishStatusSucceeded, nil
		}
		return PublishStatusFailed, &PublishError{URL: r.URL,
			Reason: res.reason}
	case <-r.ctx.Done():
		return PublishStatusFailed, r.ConnectionError()
	case <-c.Done():
		log.D.F("{%s} no OK for %s: %v", r.URL, id, context.Cause(c))
		return PublishStatusSent, nil
	}
}
