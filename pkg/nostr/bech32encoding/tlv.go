package bech32encoding

import (
	"bytes"
	"fmt"
)

// TLV entry types used inside nprofile, nevent and naddr payloads.
const (
	TLVDefault uint8 = 0
	TLVRelay   uint8 = 1
	TLVAuthor  uint8 = 2
	TLVKind    uint8 = 3
)

// readTLVEntry returns the type and value of the entry at the start of data,
// a nil value means there is no complete entry left.
func readTLVEntry(data []byte) (typ uint8, value []byte) {
	if len(data) < 2 {
		return 0, nil
	}
	typ = data[0]
	length := int(data[1])
	if len(data) < 2+length {
		return 0, nil
	}
	value = data[2 : 2+length]
	return
}

// writeTLVEntry appends an entry, values longer than a length byte can
// describe are an error.
func writeTLVEntry(buf *bytes.Buffer, typ uint8, value []byte) (err error) {
	if len(value) > 255 {
		return fmt.Errorf("%w: type %d entry is %d bytes", ErrTLVTooLong, typ,
			len(value))
	}
	buf.WriteByte(typ)
	buf.WriteByte(uint8(len(value)))
	buf.Write(value)
	return
}

// writeRelays appends a relay entry for each url.
func writeRelays(buf *bytes.Buffer, relays []string) (err error) {
	for _, url := range relays {
		if err = writeTLVEntry(buf, TLVRelay, []byte(url)); chk.D(err) {
			return
		}
	}
	return
}
