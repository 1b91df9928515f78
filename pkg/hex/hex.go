// Package hex is the hex codec used for keys, ids and signatures.
package hex

import (
	"encoding/hex"
	"fmt"

	"github.com/templexxx/xhex"
)

type InvalidByteError = hex.InvalidByteError

var DecLen = hex.DecodedLen

// Enc encodes bytes to lowercase hex.
func Enc(b []byte) (s string) {
	dst := make([]byte, len(b)*2)
	xhex.Encode(dst, b)
	return string(dst)
}

// EncAppend appends the hex of src to dst.
func EncAppend(dst, src []byte) (b []byte) {
	l := len(dst)
	dst = append(dst, make([]byte, len(src)*2)...)
	xhex.Encode(dst[l:], src)
	return dst
}

// Dec decodes a hex string. Upper and lower case are both accepted.
func Dec(s string) (b []byte, err error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd length hex string: %d", len(s))
	}
	b = make([]byte, len(s)/2)
	if err = xhex.Decode(b, []byte(s)); err != nil {
		return nil, err
	}
	return
}
