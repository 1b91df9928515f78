// Package keys generates secp256k1 secret keys and converts between the hex
// and nsec forms they are written in.
package keys

import (
	"errors"
	"os"
	"strings"

	"github.com/Hubmakerlabs/aionostr/pkg/hex"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"lukechampine.com/frand"
)

var log, chk = slog.New(os.Stderr)

// ErrInvalidKey is returned for a string that is neither a 32 byte hex key nor
// an nsec.
var ErrInvalidKey = errors.New("invalid private key")

// GeneratePrivateKey returns a new random secret key in hex. Values that do
// not fall inside the curve order are redrawn.
func GeneratePrivateKey() string {
	b := make([]byte, 32)
	for {
		frand.Read(b)
		var s btcec.ModNScalar
		if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
			continue
		}
		return hex.Enc(b)
	}
}

// GetPublicKey returns the x-only public key of a hex secret key.
func GetPublicKey(sk string) (pk string, err error) {
	var b []byte
	if b, err = hex.Dec(sk); chk.D(err) {
		return
	}
	if len(b) != 32 {
		return "", ErrInvalidKey
	}
	_, p := btcec.PrivKeyFromBytes(b)
	return hex.Enc(schnorr.SerializePubKey(p)), nil
}

// IsValid32ByteHex reports whether the string is 64 lowercase hex characters.
func IsValid32ByteHex(pk string) bool {
	if strings.ToLower(pk) != pk {
		return false
	}
	dec, _ := hex.Dec(pk)
	return len(dec) == 32
}

// IsValidPublicKey reports whether the hex string is a key on the curve.
func IsValidPublicKey(pk string) bool {
	b, err := hex.Dec(pk)
	if err != nil {
		return false
	}
	_, err = schnorr.ParsePubKey(b)
	return err == nil
}

// SecretFrom accepts a secret key as nsec or hex, hex shorter than 64
// characters is left padded with zeroes, and returns it as 64 character hex.
func SecretFrom(s string) (sec string, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, bech32encoding.NsecHRP+"1") {
		var prefix string
		if prefix, sec, err = bech32encoding.DecodeToString(s); chk.D(err) ||
			prefix != bech32encoding.NsecHRP {
			return "", ErrInvalidKey
		}
		return
	}
	if s == "" || len(s) > 64 {
		return "", ErrInvalidKey
	}
	sec = strings.ToLower(strings.Repeat("0", 64-len(s)) + s)
	if !IsValid32ByteHex(sec) {
		return "", ErrInvalidKey
	}
	var sc btcec.ModNScalar
	b, _ := hex.Dec(sec)
	if overflow := sc.SetByteSlice(b); overflow || sc.IsZero() {
		log.D.Ln("secret key out of range")
		return "", ErrInvalidKey
	}
	return
}
