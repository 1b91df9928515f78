package envelopes

import (
	"errors"
	"fmt"
	"os"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/tidwall/gjson"
)

var log, chk = slog.New(os.Stderr)

// ErrUnknownLabel is wrapped by UnknownLabelError.
var ErrUnknownLabel = errors.New("unknown envelope label")

// UnknownLabelError carries the label of a message that is a valid envelope
// shape but not one this package knows.
type UnknownLabelError struct{ Label string }

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownLabel, e.Label)
}

func (e *UnknownLabelError) Unwrap() error { return ErrUnknownLabel }

// Parse identifies the envelope in a message and decodes it.
func Parse(msg []byte) (env Enveloper, err error) {
	if !gjson.ValidBytes(msg) {
		return nil, fmt.Errorf("message is not valid JSON: %s", truncate(msg))
	}
	r := gjson.ParseBytes(msg)
	if !r.IsArray() {
		return nil, fmt.Errorf("message is not an array: %s", truncate(msg))
	}
	a := r.Array()
	if len(a) < 2 || a[0].Type != gjson.String {
		return nil, fmt.Errorf("message has no label and payload: %s",
			truncate(msg))
	}
	label := a[0].Str
	switch label {
	case LEvent:
		switch len(a) {
		case 2:
			ev := &event.T{}
			if err = ev.FromResult(a[1]); chk.D(err) {
				return
			}
			return &Event{Event: ev}, nil
		case 3:
			ev := &event.T{}
			if err = ev.FromResult(a[2]); chk.D(err) {
				return
			}
			return &EventResult{SubscriptionID: a[1].String(), Event: ev}, nil
		}
	case LReq:
		var f filters.T
		if f, err = filters.FromResults(a[2:]); chk.D(err) {
			return
		}
		return &Req{SubscriptionID: a[1].String(), Filters: f}, nil
	case LClose:
		return &Close{SubscriptionID: a[1].String()}, nil
	case LClosed:
		env := &Closed{SubscriptionID: a[1].String()}
		if len(a) > 2 {
			env.Reason = a[2].String()
		}
		return env, nil
	case LEOSE:
		return &EOSE{SubscriptionID: a[1].String()}, nil
	case LNotice:
		return &Notice{Message: a[1].String()}, nil
	case LOK:
		if len(a) < 3 {
			break
		}
		env := &OK{EventID: eventid.T(a[1].String()), OK: a[2].Bool()}
		if len(a) > 3 {
			env.Reason = a[3].String()
		}
		return env, nil
	case LAuth:
		if a[1].IsObject() {
			ev := &event.T{}
			if err = ev.FromResult(a[1]); chk.D(err) {
				return
			}
			return &AuthResponse{Event: ev}, nil
		}
		return &AuthChallenge{Challenge: a[1].String()}, nil
	case LCount:
		if len(a) < 3 {
			break
		}
		if c := a[2].Get("count"); len(a) == 3 && c.Type == gjson.Number {
			return &CountResponse{ID: a[1].String(), Count: c.Int()}, nil
		}
		var f filters.T
		if f, err = filters.FromResults(a[2:]); chk.D(err) {
			return
		}
		return &CountRequest{ID: a[1].String(), Filters: f}, nil
	default:
		return nil, &UnknownLabelError{Label: label}
	}
	return nil, fmt.Errorf("malformed %s envelope: %s", label, truncate(msg))
}

func truncate(b []byte) string {
	if len(b) > 256 {
		return string(b[:256]) + "..."
	}
	return string(b)
}
