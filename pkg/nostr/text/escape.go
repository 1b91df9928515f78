// Package text implements the string escaping of the nostr canonical event
// serialization, which is RFC8259 escaping with nothing beyond what RFC8259
// requires: no HTML escapes, no escaping of U+2028 and U+2029, and no
// escaping of the solidus.
package text

// The character constants are used as their names.
const (
	QuotationMark  = 0x22
	ReverseSolidus = 0x5c
	Backspace      = 0x08
	FormFeed       = 0x0c
	LineFeed       = 0x0a
	CarriageReturn = 0x0d
	Tab            = 0x09
	Space          = 0x20
)

const hexDigits = "0123456789abcdef"

// EscapedLen returns the length of s after escaping and wrapping in quotes.
func EscapedLen(s string) (length int) {
	length = len(s) + 2
	// iterate bytes, not runes, multi-byte UTF-8 sequences are copied as is.
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == QuotationMark, c == ReverseSolidus, c == Backspace,
			c == Tab, c == LineFeed, c == FormFeed, c == CarriageReturn:
			length++
		case c < Space:
			length += 5
		}
	}
	return
}

// AppendQuoted appends s to dst wrapped in double quotes with the quotation
// mark, the reverse solidus and the control characters (U+0000 through
// U+001F) escaped. The two character escapes are used where they exist and
// \u00XX otherwise.
func AppendQuoted(dst []byte, s string) []byte {
	if cap(dst)-len(dst) < EscapedLen(s) {
		nd := make([]byte, len(dst), len(dst)+EscapedLen(s))
		copy(nd, dst)
		dst = nd
	}
	dst = append(dst, QuotationMark)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == QuotationMark:
			dst = append(dst, ReverseSolidus, QuotationMark)
		case c == ReverseSolidus:
			dst = append(dst, ReverseSolidus, ReverseSolidus)
		case c == LineFeed:
			dst = append(dst, ReverseSolidus, 'n')
		case c == CarriageReturn:
			dst = append(dst, ReverseSolidus, 'r')
		case c == Tab:
			dst = append(dst, ReverseSolidus, 't')
		case c == Backspace:
			dst = append(dst, ReverseSolidus, 'b')
		case c == FormFeed:
			dst = append(dst, ReverseSolidus, 'f')
		case c < Space:
			dst = append(dst, ReverseSolidus, 'u', '0', '0',
				hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, QuotationMark)
}

// EscapeJSONStringAndWrap is AppendQuoted into a new slice.
func EscapeJSONStringAndWrap(s string) []byte { return AppendQuoted(nil, s) }
