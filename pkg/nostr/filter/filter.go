package filter

import (
	"fmt"
	"os"
	"sort"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"
	"golang.org/x/exp/slices"
)

var log, chk = slog.New(os.Stderr)

// T is a query where one or all elements can be filled in.
//
// The Tags are a special case because they are not grouped under a key on the
// wire but unfolded into the object as "#e", "#p" and so on. They are kept
// here keyed by the bare tag name.
//
// A nil field is not part of the query. An empty but non-nil list matches
// nothing.
type T struct {
	IDs     []string
	Kinds   kinds.T
	Authors []string
	Tags    TagMap
	Since   *timestamp.T
	Until   *timestamp.T
	Limit   int
	Search  string
}

// TagMap holds the tag queries keyed by tag name without the '#'.
type TagMap map[string][]string

func (t TagMap) Clone() (t1 TagMap) {
	if t == nil {
		return
	}
	t1 = make(TagMap, len(t))
	for i := range t {
		t1[i] = slices.Clone(t[i])
	}
	return
}

// Matches reports whether the event satisfies every field that is set. Limit
// and Search are not considered.
func (f *T) Matches(ev *event.T) bool {
	if ev == nil {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, ev.ID.String()) {
		return false
	}
	if f.Kinds != nil && !f.Kinds.Contains(ev.Kind) {
		return false
	}
	if f.Authors != nil && !slices.Contains(f.Authors, ev.PubKey) {
		return false
	}
	for name, v := range f.Tags {
		if v != nil && !ev.Tags.ContainsAny(name, v...) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	return true
}

func ptrEqual[V comparable](a *V, b *V) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}

func Equal(a, b *T) bool {
	switch {
	case !a.Kinds.Equals(b.Kinds),
		!slices.Equal(a.IDs, b.IDs),
		!slices.Equal(a.Authors, b.Authors),
		len(a.Tags) != len(b.Tags),
		!ptrEqual(a.Since, b.Since),
		!ptrEqual(a.Until, b.Until),
		a.Limit != b.Limit,
		a.Search != b.Search:
		return false
	}
	for name, av := range a.Tags {
		if bv, ok := b.Tags[name]; !ok || !slices.Equal(av, bv) {
			return false
		}
	}
	return true
}

func (f *T) Clone() (clone *T) {
	clone = &T{
		IDs:     slices.Clone(f.IDs),
		Authors: slices.Clone(f.Authors),
		Kinds:   f.Kinds.Clone(),
		Limit:   f.Limit,
		Search:  f.Search,
		Tags:    f.Tags.Clone(),
	}
	if f.Since != nil {
		clone.Since = f.Since.Ptr()
	}
	if f.Until != nil {
		clone.Until = f.Until.Ptr()
	}
	return
}

// MarshalTo writes the filter as a JSON object. Tag queries are written
// after authors in key order so the output is deterministic.
func (f *T) MarshalTo(w *jwriter.Writer) {
	first := true
	key := func(k string) {
		if first {
			first = false
		} else {
			w.RawByte(',')
		}
		w.String(k)
		w.RawByte(':')
	}
	strs := func(ss []string) {
		w.RawByte('[')
		for i, s := range ss {
			if i > 0 {
				w.RawByte(',')
			}
			w.String(s)
		}
		w.RawByte(']')
	}
	w.RawByte('{')
	if f.IDs != nil {
		key("ids")
		strs(f.IDs)
	}
	if f.Kinds != nil {
		key("kinds")
		w.RawByte('[')
		for i, k := range f.Kinds {
			if i > 0 {
				w.RawByte(',')
			}
			w.Uint16(uint16(k))
		}
		w.RawByte(']')
	}
	if f.Authors != nil {
		key("authors")
		strs(f.Authors)
	}
	names := make([]string, 0, len(f.Tags))
	for name := range f.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if f.Tags[name] == nil {
			continue
		}
		key("#" + name)
		strs(f.Tags[name])
	}
	if f.Since != nil {
		key("since")
		w.Int64(int64(*f.Since))
	}
	if f.Until != nil {
		key("until")
		w.Int64(int64(*f.Until))
	}
	if f.Limit > 0 {
		key("limit")
		w.Int(f.Limit)
	}
	if f.Search != "" {
		key("search")
		w.String(f.Search)
	}
	w.RawByte('}')
}

func (f *T) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{NoEscapeHTML: true}
	f.MarshalTo(&w)
	return w.BuildBytes()
}

func (f *T) String() string {
	b, _ := f.MarshalJSON()
	return string(b)
}

// UnmarshalJSON unpacks a JSON encoded filter rolling the "#x" keys up into
// Tags. Unknown keys are ignored.
func (f *T) UnmarshalJSON(b []byte) (err error) {
	if f == nil {
		return fmt.Errorf("cannot unmarshal into nil filter")
	}
	if !gjson.ValidBytes(b) {
		return log.D.Err("invalid filter JSON: %s", b)
	}
	return f.FromResult(gjson.ParseBytes(b))
}

// FromResult fills the filter from an already parsed JSON object.
func (f *T) FromResult(r gjson.Result) (err error) {
	if !r.IsObject() {
		return fmt.Errorf("filter must be a JSON object, got %s", r.Raw)
	}
	*f = T{}
	r.ForEach(func(k, v gjson.Result) bool {
		switch name := k.Str; {
		case name == "ids":
			f.IDs, err = stringList(name, v)
		case name == "authors":
			f.Authors, err = stringList(name, v)
		case name == "kinds":
			if !v.IsArray() {
				err = fmt.Errorf("kinds must be an array, got %s", v.Raw)
				break
			}
			f.Kinds = kinds.T{}
			for _, kv := range v.Array() {
				n := kv.Int()
				if kv.Type != gjson.Number || n < 0 || n > 65535 {
					err = fmt.Errorf("invalid kind %s", kv.Raw)
					break
				}
				f.Kinds = append(f.Kinds, kind.T(n))
			}
		case name == "since", name == "until":
			if v.Type != gjson.Number {
				err = fmt.Errorf("%s must be a number, got %s", name, v.Raw)
				break
			}
			ts := timestamp.T(v.Int())
			if name == "since" {
				f.Since = &ts
			} else {
				f.Until = &ts
			}
		case name == "limit":
			if v.Type != gjson.Number {
				err = fmt.Errorf("limit must be a number, got %s", v.Raw)
				break
			}
			f.Limit = int(v.Int())
		case name == "search":
			if v.Type != gjson.String {
				err = fmt.Errorf("search must be a string, got %s", v.Raw)
				break
			}
			f.Search = v.Str
		case len(name) > 1 && name[0] == '#':
			var vals []string
			if vals, err = stringList(name, v); err != nil {
				break
			}
			if f.Tags == nil {
				f.Tags = TagMap{}
			}
			f.Tags[name[1:]] = vals
		}
		return err == nil
	})
	return
}

func stringList(name string, v gjson.Result) (ss []string, err error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%s must be an array, got %s", name, v.Raw)
	}
	ss = []string{}
	for _, s := range v.Array() {
		if s.Type != gjson.String {
			return nil, fmt.Errorf("%s must contain strings, got %s", name,
				s.Raw)
		}
		ss = append(ss, s.Str)
	}
	return
}
