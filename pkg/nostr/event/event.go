package event

import (
	"errors"
	"os"
	"strconv"

	"github.com/Hubmakerlabs/aionostr/pkg/hex"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/text"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/minio/sha256-simd"
)

var log, chk = slog.New(os.Stderr)

var (
	ErrInvalidID  = errors.New("event id does not match its content")
	ErrInvalidSig = errors.New("event signature is invalid")
)

func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}

// T is the primary datatype of nostr. This is the form of the structure
// that defines its JSON string based format.
type T struct {

	// ID is the SHA256 hash of the canonical encoding of the event
	ID eventid.T `json:"id"`

	// PubKey is the public key of the event creator in *hexadecimal* format
	PubKey string `json:"pubkey"`

	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator (never trust a timestamp!)
	CreatedAt timestamp.T `json:"created_at"`

	// Kind is the nostr protocol code for the type of event. See kind.T
	Kind kind.T `json:"kind"`

	// Tags are a list of tags, which are a list of strings usually structured
	// as a 3 layer scheme indicating specific features of an event.
	Tags tags.T `json:"tags"`

	// Content is an arbitrary string that can contain anything, but usually
	// conforming to a specification relating to the Kind and the Tags.
	Content string `json:"content"`

	// Sig is the signature on the ID hash that validates as coming from the
	// Pubkey.
	Sig string `json:"sig"`
}

// Ascending is a slice of events that sorts in ascending chronological order
type Ascending []*T

func (ev Ascending) Len() int           { return len(ev) }
func (ev Ascending) Less(i, j int) bool { return ev[i].CreatedAt < ev[j].CreatedAt }
func (ev Ascending) Swap(i, j int)      { ev[i], ev[j] = ev[j], ev[i] }

// Descending sorts a slice of events in reverse chronological order (newest
// first)
type Descending []*T

func (e Descending) Len() int           { return len(e) }
func (e Descending) Less(i, j int) bool { return e[i].CreatedAt > e[j].CreatedAt }
func (e Descending) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }

// Serialize returns the canonical form the ID hash is computed over:
//
//	[0,<pubkey>,<created_at>,<kind>,<tags>,<content>]
func (ev *T) Serialize() (b []byte) {
	b = make([]byte, 0, 100+len(ev.Content)+len(ev.Tags)*80)
	b = append(b, `[0,"`...)
	b = append(b, ev.PubKey...)
	b = append(b, `",`...)
	b = strconv.AppendInt(b, int64(ev.CreatedAt), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(ev.Kind), 10)
	b = append(b, ',')
	b = ev.Tags.MarshalTo(b)
	b = append(b, ',')
	b = text.AppendQuoted(b, ev.Content)
	b = append(b, ']')
	return
}

// GetIDBytes returns the raw SHA256 hash of the canonical form of an T.
func (ev *T) GetIDBytes() []byte { return Hash(ev.Serialize()) }

// GetID serializes and returns the event ID as a hexadecimal string.
func (ev *T) GetID() eventid.T { return eventid.T(hex.Enc(ev.GetIDBytes())) }

// CheckID reports whether the ID field matches the content of the event.
func (ev *T) CheckID() bool { return ev.GetID() == ev.ID }

// CheckSignature checks if the signature is valid for the id (which is a hash
// of the serialized event content). returns an error if the signature itself is
// invalid.
func (ev *T) CheckSignature() (valid bool, err error) {
	var pkBytes []byte
	if pkBytes, err = hex.Dec(ev.PubKey); chk.D(err) {
		err = log.D.Err("event pubkey '%s' is invalid hex: %w", ev.PubKey, err)
		return
	}
	var pk *btcec.PublicKey
	if pk, err = schnorr.ParsePubKey(pkBytes); chk.D(err) {
		err = log.D.Err("event has invalid pubkey '%s': %w", ev.PubKey, err)
		return
	}
	var sigBytes []byte
	if sigBytes, err = hex.Dec(ev.Sig); chk.D(err) {
		err = log.D.Err("signature '%s' is invalid hex: %w", ev.Sig, err)
		return
	}
	var sig *schnorr.Signature
	if sig, err = schnorr.ParseSignature(sigBytes); chk.D(err) {
		err = log.D.Err("failed to parse signature: %w", err)
		return
	}
	valid = sig.Verify(ev.GetIDBytes(), pk)
	return
}

// Verify checks both the ID and the signature, returning an error naming the
// one that failed.
func (ev *T) Verify() (err error) {
	if !ev.CheckID() {
		return ErrInvalidID
	}
	var valid bool
	if valid, err = ev.CheckSignature(); err != nil {
		return
	}
	if !valid {
		return ErrInvalidSig
	}
	return
}

// Sign signs an event with a given Secret Key encoded in hexadecimal.
func (ev *T) Sign(skStr string) (err error) {
	if len(skStr) != 64 {
		err = log.D.Err("invalid secret key length, 64 required, got %d",
			len(skStr))
		return
	}
	var skBytes []byte
	if skBytes, err = hex.Dec(skStr); chk.D(err) {
		err = log.D.Err("sign called with invalid secret key: %w", err)
		return
	}
	sk, _ := btcec.PrivKeyFromBytes(skBytes)
	return ev.SignWithSecKey(sk)
}

// SignWithSecKey signs an event with a given *btcec.PrivateKey, setting the
// PubKey, ID and Sig fields.
func (ev *T) SignWithSecKey(sk *btcec.PrivateKey) (err error) {
	// the pubkey is part of the canonical form so it must be set first.
	ev.PubKey = hex.Enc(schnorr.SerializePubKey(sk.PubKey()))
	var sig *schnorr.Signature
	id := ev.GetIDBytes()
	if sig, err = schnorr.Sign(sk, id); chk.D(err) {
		return err
	}
	ev.ID = eventid.T(hex.Enc(id))
	ev.Sig = hex.Enc(sig.Serialize())
	log.T.C(func() string { return "signed " + ev.String() })
	return nil
}

// Clone makes a deep copy of the event.
func (ev *T) Clone() *T {
	c := *ev
	c.Tags = ev.Tags.Clone()
	return &c
}
