package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/normalize"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pointers"
	"github.com/tidwall/gjson"
)

// Target is what an identifier resolves to: either a query or, for bare
// keys, a value that needs no network at all.
type Target struct {
	Filters filters.T
	// Relays replaces the relays of the call when the identifier carried
	// relay hints.
	Relays []string
	// Single is set when at most one event can match.
	Single bool
	// Value is the hex key an npub or nsec decodes to.
	Value string
	// Prefix is the NIP-19 prefix the identifier had, if any.
	Prefix string
}

// Query reports whether the target has to be fetched from relays.
func (t *Target) Query() bool { return len(t.Filters) > 0 }

// Resolve turns anything naming nostr data into a Target. Accepted are a REQ
// message as []any or JSON text, a filter as *filter.T, filter.T,
// map[string]any or JSON text, any NIP-19 identifier, and otherwise a bare
// event id.
func Resolve(anything any, relays []string) (t *Target, err error) {
	t = &Target{Relays: relays}
	switch a := anything.(type) {
	case *filter.T:
		t.Filters = filters.T{a}
	case filter.T:
		t.Filters = filters.T{&a}
	case filters.T:
		t.Filters = a
	case map[string]any:
		var f *filter.T
		if f, err = filterFromAny(a); chk.D(err) {
			return nil, err
		}
		t.Filters = filters.T{f}
	case []any:
		if len(a) < 3 || a[0] != envelopes.LReq {
			return nil, fmt.Errorf("%w: %v", ErrUnsupported, a)
		}
		for _, item := range a[2:] {
			var f *filter.T
			if f, err = filterFromAny(item); chk.D(err) {
				return nil, err
			}
			t.Filters = append(t.Filters, f)
		}
	case string:
		if err = t.fromString(strings.TrimSpace(a)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, anything)
	}
	return
}

func filterFromAny(v any) (f *filter.T, err error) {
	var b []byte
	if b, err = json.Marshal(v); chk.D(err) {
		return
	}
	f = &filter.T{}
	if err = f.UnmarshalJSON(b); chk.D(err) {
		return nil, fmt.Errorf("invalid filter %s: %w", b, err)
	}
	return
}

func (t *Target) fromString(s string) (err error) {
	switch {
	case strings.HasPrefix(s, "{"):
		f := &filter.T{}
		if err = f.UnmarshalJSON([]byte(s)); chk.D(err) {
			return fmt.Errorf("invalid filter %s: %w", s, err)
		}
		t.Filters = filters.T{f}
	case strings.HasPrefix(s, "["):
		if !gjson.Valid(s) {
			return fmt.Errorf("%w: invalid JSON %s", ErrUnsupported, s)
		}
		a := gjson.Parse(s).Array()
		if len(a) < 3 || a[0].Str != envelopes.LReq {
			return fmt.Errorf("%w: %s", ErrUnsupported, s)
		}
		if t.Filters, err = filters.FromResults(a[2:]); chk.D(err) {
			return
		}
	case bech32encoding.HasPrefix(s):
		return t.fromNIP19(s)
	default:
		t.Filters = filters.T{{IDs: []string{s}}}
		t.Single = true
	}
	return
}

func (t *Target) fromNIP19(s string) (err error) {
	var value any
	if t.Prefix, value, err = bech32encoding.Decode(s); chk.D(err) {
		return
	}
	switch v := value.(type) {
	case string:
		switch t.Prefix {
		case bech32encoding.NpubHRP, bech32encoding.NsecHRP:
			t.Value = v
		case bech32encoding.NoteHRP:
			t.Filters = filters.T{{IDs: []string{v}}}
			t.Single = true
		}
	case pointers.Profile:
		t.Filters = filters.T{{
			Kinds:   kinds.T{kind.ProfileMetadata},
			Authors: []string{v.PublicKey},
		}}
		t.hints(v.Relays)
	case pointers.Event:
		t.Filters = filters.T{{IDs: []string{v.ID.String()}}}
		t.Single = true
		t.hints(v.Relays)
	case pointers.Entity:
		t.Filters = filters.T{{
			Kinds:   kinds.T{v.Kind},
			Authors: []string{v.PublicKey},
			Tags:    filter.TagMap{"d": {v.Identifier}},
		}}
		t.Single = true
		t.hints(v.Relays)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, s)
	}
	return
}

func (t *Target) hints(relays []string) {
	if hints := normalize.URLs(relays); len(hints) > 0 {
		t.Relays = hints
	}
}
