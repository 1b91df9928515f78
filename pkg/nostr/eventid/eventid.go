package eventid

import (
	"fmt"

	"github.com/Hubmakerlabs/aionostr/pkg/hex"
)

// T is the SHA256 hash in hexadecimal of the canonical form of an event.
type T string

func (ei T) String() string { return string(ei) }

// Bytes decodes the id, an invalid id gives nil.
func (ei T) Bytes() (b []byte) {
	var err error
	if b, err = hex.Dec(string(ei)); err != nil {
		return nil
	}
	return
}

// New inspects a string and ensures it is a valid, 64 character long
// lowercase hexadecimal string, returns the string coerced to the type.
func New(s string) (ei T, err error) {
	ei = T(s)
	if err = ei.Validate(); err != nil {
		ei = ""
		return
	}
	return
}

// Validate checks the T string is valid lowercase hex and 64 characters long.
func (ei T) Validate() (err error) {
	if len(ei) != 64 {
		return fmt.Errorf("event ID invalid length: got %d expect 64", len(ei))
	}
	for i := 0; i < len(ei); i++ {
		c := ei[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return fmt.Errorf("event ID invalid character %q at %d", c, i)
		}
	}
	return
}
