package event

import (
	"encoding/json"
	"testing"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSec = "7f7ff03d123792d6ac594bfa67bf6d0c0ab55b6b1fdb6249303fe861f1ccba9a"

func sample() *T {
	return &T{
		CreatedAt: timestamp.T(1700000000),
		Kind:      kind.TextNote,
		Tags: tags.T{
			{"e", "5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36", "wss://nostr.example.com"},
			{"t", "hello \"world\""},
		},
		Content: "multi\nline\tcontent with \"quotes\", a \\ backslash, " +
			"<html> & ünïcödé 🚀",
	}
}

func TestSignAndVerify(t *testing.T) {
	ev := sample()
	require.NoError(t, ev.Sign(testSec))
	assert.Len(t, ev.PubKey, 64)
	assert.Len(t, ev.Sig, 128)
	assert.True(t, ev.CheckID())
	assert.NoError(t, ev.Verify())

	tampered := ev.Clone()
	tampered.Content += "!"
	assert.ErrorIs(t, tampered.Verify(), ErrInvalidID)

	tampered = ev.Clone()
	tampered.Sig = ev.Sig[:126] + "00"
	if tampered.Sig == ev.Sig {
		tampered.Sig = ev.Sig[:126] + "01"
	}
	assert.Error(t, tampered.Verify())

	assert.Error(t, ev.Clone().Sign("abcd"))
}

func TestSerializeMatchesGoNostr(t *testing.T) {
	ev := sample()
	require.NoError(t, ev.Sign(testSec))

	ref := nostr.Event{
		PubKey:    ev.PubKey,
		CreatedAt: nostr.Timestamp(ev.CreatedAt),
		Kind:      int(ev.Kind),
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
	for _, tg := range ev.Tags {
		ref.Tags = append(ref.Tags, nostr.Tag(tg))
	}
	assert.Equal(t, string(ref.Serialize()), string(ev.Serialize()))
	assert.Equal(t, ref.GetID(), ev.ID.String())
	ref.ID = ev.ID.String()
	ok, err := ref.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)

	// and the other way around
	other := nostr.Event{CreatedAt: 1, Kind: 20000, Tags: nostr.Tags{},
		Content: "test"}
	require.NoError(t, other.Sign(testSec))
	var mine T
	b, err := json.Marshal(other)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &mine))
	assert.NoError(t, mine.Verify())
}

func TestJSON(t *testing.T) {
	ev := sample()
	ev.Tags = nil
	require.NoError(t, ev.Sign(testSec))
	b, err := ev.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tags":[]`)
	assert.Contains(t, string(b), `<html> & `)

	var back T
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ev.ID, back.ID)
	assert.Equal(t, ev.Content, back.Content)
	assert.NoError(t, back.Verify())

	for _, bad := range []string{
		`[]`,
		`{"kind":"1"}`,
		`{"kind":70000}`,
		`{"tags":[["a",1]]}`,
		`{"tags":"x"}`,
		`{"content":5}`,
		`{"id":`,
	} {
		assert.Error(t, back.UnmarshalJSON([]byte(bad)), bad)
	}
}
