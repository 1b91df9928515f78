package filters

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"
)

// T is the list of filters of a REQ, an event is wanted when any of them
// matches.
type T []*filter.T

func (eff T) Match(ev *event.T) bool {
	for _, f := range eff {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}

func (eff T) Clone() (c T) {
	c = make(T, len(eff))
	for i := range eff {
		c[i] = eff[i].Clone()
	}
	return
}

// MarshalTo writes the filters comma separated without enclosing brackets, as
// they appear in a REQ or COUNT envelope.
func (eff T) MarshalTo(w *jwriter.Writer) {
	for i, f := range eff {
		if i > 0 {
			w.RawByte(',')
		}
		f.MarshalTo(w)
	}
}

func (eff T) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	w.RawByte('[')
	eff.MarshalTo(&w)
	w.RawByte(']')
	return w.BuildBytes()
}

func (eff T) String() string {
	b, _ := eff.MarshalJSON()
	return string(b)
}

// FromResults reads a list of parsed filter objects.
func FromResults(rs []gjson.Result) (eff T, err error) {
	for i, r := range rs {
		f := &filter.T{}
		if err = f.FromResult(r); err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		eff = append(eff, f)
	}
	return
}

func (eff *T) UnmarshalJSON(b []byte) (err error) {
	r := gjson.ParseBytes(b)
	if !gjson.ValidBytes(b) || !r.IsArray() {
		return fmt.Errorf("filters must be a JSON array, got %s", b)
	}
	*eff, err = FromResults(r.Array())
	return
}
