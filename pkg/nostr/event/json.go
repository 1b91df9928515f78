package event

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tag"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"
)

// MarshalTo writes the event as a JSON object into an easyjson writer, so
// envelopes can embed it without an intermediate buffer.
func (ev *T) MarshalTo(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.String(string(ev.ID))
	w.RawString(`,"pubkey":`)
	w.String(ev.PubKey)
	w.RawString(`,"created_at":`)
	w.Int64(int64(ev.CreatedAt))
	w.RawString(`,"kind":`)
	w.Uint16(uint16(ev.Kind))
	w.RawString(`,"tags":`)
	MarshalTags(w, ev.Tags)
	w.RawString(`,"content":`)
	w.String(ev.Content)
	w.RawString(`,"sig":`)
	w.String(ev.Sig)
	w.RawByte('}')
}

// MarshalTags writes tags as an array of arrays of strings, nil as [].
func MarshalTags(w *jwriter.Writer, t tags.T) {
	w.RawByte('[')
	for i, tt := range t {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawByte('[')
		for j, s := range tt {
			if j > 0 {
				w.RawByte(',')
			}
			w.String(s)
		}
		w.RawByte(']')
	}
	w.RawByte(']')
}

func (ev *T) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	ev.MarshalTo(&w)
	return w.BuildBytes()
}

// String returns the JSON form of the event.
func (ev *T) String() string {
	b, _ := ev.MarshalJSON()
	return string(b)
}

func (ev *T) UnmarshalJSON(b []byte) (err error) {
	if !gjson.ValidBytes(b) {
		return fmt.Errorf("invalid event JSON: %s", b)
	}
	return ev.FromResult(gjson.ParseBytes(b))
}

// FromResult fills the event from an already parsed JSON object. Missing
// fields are left zero, fields of the wrong type are an error.
func (ev *T) FromResult(r gjson.Result) (err error) {
	if !r.IsObject() {
		return fmt.Errorf("event must be a JSON object, got %s", r.Type)
	}
	*ev = T{}
	var failed error
	r.ForEach(func(key, value gjson.Result) bool {
		switch key.Str {
		case "id":
			if value.Type != gjson.String {
				failed = fmt.Errorf("event id is not a string")
				return false
			}
			ev.ID = eventid.T(value.Str)
		case "pubkey":
			if value.Type != gjson.String {
				failed = fmt.Errorf("event pubkey is not a string")
				return false
			}
			ev.PubKey = value.Str
		case "created_at":
			if value.Type != gjson.Number {
				failed = fmt.Errorf("event created_at is not a number")
				return false
			}
			ev.CreatedAt = timestamp.T(value.Int())
		case "kind":
			k := value.Int()
			if value.Type != gjson.Number || k < 0 || k > 65535 {
				failed = fmt.Errorf("event kind %s is invalid", value.Raw)
				return false
			}
			ev.Kind = kind.T(k)
		case "tags":
			if ev.Tags, failed = TagsFromResult(value); failed != nil {
				return false
			}
		case "content":
			if value.Type != gjson.String {
				failed = fmt.Errorf("event content is not a string")
				return false
			}
			ev.Content = value.Str
		case "sig":
			if value.Type != gjson.String {
				failed = fmt.Errorf("event sig is not a string")
				return false
			}
			ev.Sig = value.Str
		}
		return true
	})
	return failed
}

// TagsFromResult reads an array of arrays of strings.
func TagsFromResult(r gjson.Result) (t tags.T, err error) {
	if r.Type == gjson.Null {
		return tags.T{}, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("tags must be an array, got %s", r.Raw)
	}
	t = tags.T{}
	for _, tr := range r.Array() {
		if !tr.IsArray() {
			return nil, fmt.Errorf("tag must be an array, got %s", tr.Raw)
		}
		tt := tag.T{}
		for _, s := range tr.Array() {
			if s.Type != gjson.String {
				return nil, fmt.Errorf("tag element must be a string, got %s",
					s.Raw)
			}
			tt = append(tt, s.Str)
		}
		t = append(t, tt)
	}
	return
}
