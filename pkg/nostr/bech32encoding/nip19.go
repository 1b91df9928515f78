// Package bech32encoding encodes and decodes the NIP-19 bech32 identifiers:
// npub, nsec and note for bare keys and ids, nprofile, nevent and naddr for
// pointers carrying relay hints.
package bech32encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Hubmakerlabs/aionostr/pkg/hex"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pointers"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

var log, chk = slog.New(os.Stderr)

const (
	NoteHRP     = "note"
	NsecHRP     = "nsec"
	NpubHRP     = "npub"
	NprofileHRP = "nprofile"
	NeventHRP   = "nevent"
	NentityHRP  = "naddr"
)

// ErrUnknownPrefix is returned for a well formed bech32 string whose human
// readable part is not one of the NIP-19 prefixes.
var ErrUnknownPrefix = errors.New("unknown nip19 prefix")

// ErrTLVTooLong is returned when a relay url or identifier does not fit in a
// TLV entry.
var ErrTLVTooLong = errors.New("tlv value longer than 255 bytes")

// HasPrefix reports whether s looks like a NIP-19 identifier.
func HasPrefix(s string) bool {
	for _, p := range []string{NpubHRP, NsecHRP, NoteHRP, NprofileHRP,
		NeventHRP, NentityHRP} {
		if strings.HasPrefix(s, p+"1") {
			return true
		}
	}
	return false
}

// DecodeToString decodes npub, nsec and note identifiers into hex.
func DecodeToString(bech32String string) (prefix, value string, err error) {
	var s any
	if prefix, s, err = Decode(bech32String); chk.D(err) {
		return
	}
	var ok bool
	if value, ok = s.(string); ok {
		return
	}
	err = log.D.Err("%s was not decoded to a string, found %T", prefix, s)
	return
}

// Decode returns the human readable prefix and the decoded value: a hex string
// for npub, nsec and note, otherwise a pointers.Profile, pointers.Event or
// pointers.Entity. The bech32 90 character length limit is not applied, as
// pointers with several relays exceed it.
func Decode(bech32string string) (prefix string, value any, err error) {
	var bits5 []byte
	if prefix, bits5, err = bech32.DecodeNoLimit(bech32string); chk.D(err) {
		return
	}
	var data []byte
	if data, err = bech32.ConvertBits(bits5, 5, 8, false); chk.D(err) {
		return prefix, nil, fmt.Errorf("failed translating data into 8 bits: %w",
			err)
	}
	switch prefix {
	case NpubHRP, NsecHRP, NoteHRP:
		if len(data) < 32 {
			return prefix, nil, fmt.Errorf("data is less than 32 bytes (%d)",
				len(data))
		}
		return prefix, hex.Enc(data[0:32]), nil
	case NprofileHRP:
		var result pointers.Profile
		for curr := 0; ; {
			t, v := readTLVEntry(data[curr:])
			if v == nil {
				if result.PublicKey == "" {
					return prefix, result, fmt.Errorf("no pubkey found for nprofile")
				}
				return prefix, result, nil
			}
			switch t {
			case TLVDefault:
				if len(v) != 32 {
					return prefix, nil, fmt.Errorf("pubkey is not 32 bytes (%d)",
						len(v))
				}
				result.PublicKey = hex.Enc(v)
			case TLVRelay:
				result.Relays = append(result.Relays, string(v))
			}
			curr = curr + 2 + len(v)
		}
	case NeventHRP:
		var result pointers.Event
		for curr := 0; ; {
			t, v := readTLVEntry(data[curr:])
			if v == nil {
				if result.ID == "" {
					return prefix, result, fmt.Errorf("no id found for nevent")
				}
				return prefix, result, nil
			}
			switch t {
			case TLVDefault:
				if len(v) != 32 {
					return prefix, nil, fmt.Errorf("id is not 32 bytes (%d)",
						len(v))
				}
				result.ID = eventid.T(hex.Enc(v))
			case TLVRelay:
				result.Relays = append(result.Relays, string(v))
			case TLVAuthor:
				if len(v) != 32 {
					return prefix, nil, fmt.Errorf("author is not 32 bytes (%d)",
						len(v))
				}
				result.Author = hex.Enc(v)
			case TLVKind:
				if len(v) != 4 {
					return prefix, nil, fmt.Errorf("kind is not 4 bytes (%d)",
						len(v))
				}
				result.Kind = kind.T(binary.BigEndian.Uint32(v))
			}
			curr = curr + 2 + len(v)
		}
	case NentityHRP:
		var result pointers.Entity
		var haveKind bool
		for curr := 0; ; {
			t, v := readTLVEntry(data[curr:])
			if v == nil {
				if !haveKind || result.PublicKey == "" {
					return prefix, result, fmt.Errorf("incomplete naddr")
				}
				return prefix, result, nil
			}
			switch t {
			case TLVDefault:
				result.Identifier = string(v)
			case TLVRelay:
				result.Relays = append(result.Relays, string(v))
			case TLVAuthor:
				if len(v) != 32 {
					return prefix, nil, fmt.Errorf("author is not 32 bytes (%d)",
						len(v))
				}
				result.PublicKey = hex.Enc(v)
			case TLVKind:
				if len(v) != 4 {
					return prefix, nil, fmt.Errorf("kind is not 4 bytes (%d)",
						len(v))
				}
				result.Kind = kind.T(binary.BigEndian.Uint32(v))
				haveKind = true
			default:
				log.D.Ln("got a bogus TLV type code", t)
			}
			curr = curr + 2 + len(v)
		}
	}
	return prefix, data, fmt.Errorf("%w: %s", ErrUnknownPrefix, prefix)
}

func encode32(hrp, hexValue string) (s string, err error) {
	var b []byte
	if b, err = hex.Dec(hexValue); chk.D(err) {
		return "", fmt.Errorf("invalid %s hex '%s': %w", hrp, hexValue, err)
	}
	if len(b) != 32 {
		return "", fmt.Errorf("%s must be 32 bytes, got %d", hrp, len(b))
	}
	var bits5 []byte
	if bits5, err = bech32.ConvertBits(b, 8, 5, true); chk.D(err) {
		return
	}
	return bech32.Encode(hrp, bits5)
}

func EncodePublicKey(publicKeyHex string) (string, error) {
	return encode32(NpubHRP, publicKeyHex)
}

func EncodePrivateKey(privateKeyHex string) (string, error) {
	return encode32(NsecHRP, privateKeyHex)
}

func EncodeNote(eventIDHex string) (string, error) {
	return encode32(NoteHRP, eventIDHex)
}

func EncodeProfile(publicKeyHex string, relays []string) (s string, err error) {
	buf := &bytes.Buffer{}
	var pb []byte
	if pb, err = hex.Dec(publicKeyHex); chk.D(err) || len(pb) != 32 {
		return "", fmt.Errorf("invalid pubkey '%s': %v", publicKeyHex, err)
	}
	writeTLVEntry(buf, TLVDefault, pb)
	if err = writeRelays(buf, relays); err != nil {
		return
	}
	var bits5 []byte
	if bits5, err = bech32.ConvertBits(buf.Bytes(), 8, 5, true); chk.D(err) {
		return
	}
	return bech32.Encode(NprofileHRP, bits5)
}

// EncodeEvent encodes an nevent, the author is included when it is a valid
// 32 byte hex key and left out otherwise.
func EncodeEvent(eventIDHex eventid.T, relays []string,
	author string) (s string, err error) {

	buf := &bytes.Buffer{}
	var id []byte
	if id, err = hex.Dec(eventIDHex.String()); chk.D(err) || len(id) != 32 {
		return "", fmt.Errorf("invalid id '%s': %v", eventIDHex, err)
	}
	writeTLVEntry(buf, TLVDefault, id)
	if err = writeRelays(buf, relays); err != nil {
		return
	}
	if pubkey, _ := hex.Dec(author); len(pubkey) == 32 {
		writeTLVEntry(buf, TLVAuthor, pubkey)
	}
	var bits5 []byte
	if bits5, err = bech32.ConvertBits(buf.Bytes(), 8, 5, true); chk.D(err) {
		return
	}
	return bech32.Encode(NeventHRP, bits5)
}

func EncodeEntity(publicKey string, k kind.T, identifier string,
	relays []string) (s string, err error) {

	buf := &bytes.Buffer{}
	if err = writeTLVEntry(buf, TLVDefault, []byte(identifier)); chk.D(err) {
		return
	}
	if err = writeRelays(buf, relays); err != nil {
		return
	}
	var pb []byte
	if pb, err = hex.Dec(publicKey); chk.D(err) || len(pb) != 32 {
		return "", fmt.Errorf("invalid pubkey '%s': %v", publicKey, err)
	}
	writeTLVEntry(buf, TLVAuthor, pb)
	kindBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(kindBytes, uint32(k))
	writeTLVEntry(buf, TLVKind, kindBytes)
	var bits5 []byte
	if bits5, err = bech32.ConvertBits(buf.Bytes(), 8, 5, true); chk.D(err) {
		return "", fmt.Errorf("failed to convert bits: %w", err)
	}
	return bech32.Encode(NentityHRP, bits5)
}

// Encode makes an identifier of the named type from a hex key or id, with
// relay hints for the pointer types. naddr needs a kind and identifier and
// is only available through EncodeEntity.
func Encode(ntype, hexValue string, relays []string) (string, error) {
	switch ntype {
	case NpubHRP:
		return EncodePublicKey(hexValue)
	case NsecHRP:
		return EncodePrivateKey(hexValue)
	case NoteHRP:
		return EncodeNote(hexValue)
	case NprofileHRP:
		return EncodeProfile(hexValue, relays)
	case NeventHRP:
		return EncodeEvent(eventid.T(hexValue), relays, "")
	case NentityHRP:
		return "", fmt.Errorf("naddr needs a kind and an identifier")
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPrefix, ntype)
}
