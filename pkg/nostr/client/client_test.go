package client

import (
	"testing"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/config"
	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pool"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relaytest"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, sk string, k kind.T, content string,
	created int64) *event.T {

	t.Helper()
	ev := &event.T{Kind: k, Content: content, CreatedAt: timestamp.T(created),
		Tags: tags.T{}}
	require.NoError(t, ev.Sign(sk))
	return ev
}

func newClient(t *testing.T, relays ...string) *T {
	cfg, err := config.FromMap(map[string]string{})
	require.NoError(t, err)
	cfg.Relays = relays
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

func TestGetAnythingProfile(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	pk, err := keys.GetPublicKey(sk)
	require.NoError(t, err)
	rl := relaytest.New()
	defer rl.Close()
	profile := signed(t, sk, kind.ProfileMetadata, `{"name":"tester"}`, 1)
	rl.Store(profile, signed(t, sk, kind.TextNote, "not a profile", 2))
	nprofile, err := bech32encoding.EncodeProfile(pk, []string{rl.URL})
	require.NoError(t, err)
	// no default relays, the hint is enough
	c := newClient(t)
	results, err := c.GetAll(context.Bg(), nprofile, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, profile.ID, results[0].Event.ID)
	assert.Equal(t, rl.URL, results[0].Relay)
}

func TestGetAnythingLimit(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	a, b := relaytest.New(), relaytest.New()
	defer a.Close()
	defer b.Close()
	for i := 0; i < 15; i++ {
		a.Store(signed(t, sk, kind.TextNote, "a", int64(i)))
		b.Store(signed(t, sk, kind.TextNote, "b", int64(i)))
		b.Store(signed(t, sk, kind.Reaction, "+", int64(i)))
	}
	c := newClient(t, a.URL, b.URL)
	results, err := c.GetAll(context.Bg(), `{"kinds":[1],"limit":10}`, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 10)
	assert.NotEmpty(t, results)
	ids := make(map[string]bool)
	for _, res := range results {
		assert.Equal(t, kind.TextNote, res.Event.Kind)
		assert.False(t, ids[res.Event.ID.String()])
		ids[res.Event.ID.String()] = true
	}
}

func TestGetAnythingKeyNeedsNoRelays(t *testing.T) {
	npub, err := bech32encoding.EncodePublicKey(fiatjaf)
	require.NoError(t, err)
	c := newClient(t)
	results, err := c.GetAll(context.Bg(), npub, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fiatjaf, results[0].Value)
	assert.Nil(t, results[0].Event)
	_, err = c.GetAnything(context.Bg(), someID, nil)
	assert.ErrorIs(t, err, ErrNoRelays)
}

func TestAddEventThenGet(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	rl := relaytest.New()
	defer rl.Close()
	c := newClient(t, rl.URL)
	id, results, err := c.AddEvent(context.Bg(), nil, EventParams{
		PrivateKey: sk,
		Kind:       20000,
		Content:    "test",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, relay.PublishStatusSucceeded, results[0].Status)
	require.NoError(t, id.Validate())
	stored := rl.Events()
	require.Len(t, stored, 1)
	assert.Equal(t, tags.T{}, stored[0].Tags)
	assert.NotZero(t, stored[0].CreatedAt)
	got, err := c.GetAll(context.Bg(), id.String(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "test", got[0].Event.Content)
	assert.Equal(t, kind.T(20000), got[0].Event.Kind)
}

func TestAddEventKeys(t *testing.T) {
	rl := relaytest.New()
	defer rl.Close()
	c := newClient(t, rl.URL)
	_, _, err := c.AddEvent(context.Bg(), nil, EventParams{Content: "x"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, _, err = c.AddEvent(context.Bg(), nil, EventParams{PrivateKey: "zz"})
	assert.ErrorIs(t, err, keys.ErrInvalidKey)
	sk := keys.GeneratePrivateKey()
	_, _, err = c.AddEvent(context.Bg(), nil, EventParams{PrivateKey: sk,
		PubKey: fiatjaf})
	assert.ErrorIs(t, err, ErrPubKeyMismatch)
	// nsec and the configured key both work
	nsec, err := bech32encoding.EncodePrivateKey(sk)
	require.NoError(t, err)
	_, _, err = c.AddEvent(context.Bg(), nil, EventParams{PrivateKey: nsec,
		Content: "nsec"})
	require.NoError(t, err)
	c.Key = sk
	_, _, err = c.AddEvent(context.Bg(), nil, EventParams{Content: "default",
		CreatedAt: 1234})
	require.NoError(t, err)
	assert.Len(t, rl.Events(), 2)
	// a pre-signed event is sent as is, a tampered one is refused
	ev := signed(t, sk, kind.TextNote, "presigned", 99)
	id, _, err := c.AddEvent(context.Bg(), nil, EventParams{Event: ev})
	require.NoError(t, err)
	assert.Equal(t, ev.ID, id)
	ev.Content = "changed"
	_, _, err = c.AddEvent(context.Bg(), nil, EventParams{Event: ev})
	assert.ErrorIs(t, err, event.ErrInvalidID)
}

func TestAddEventAllFailed(t *testing.T) {
	rl := relaytest.New(relaytest.Reject("blocked: nope"))
	defer rl.Close()
	c := newClient(t, rl.URL)
	_, results, err := c.AddEvent(context.Bg(), nil, EventParams{
		PrivateKey: keys.GeneratePrivateKey(), Content: "x"})
	assert.ErrorIs(t, err, pool.ErrAllFailed)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, relay.ErrRejected)
}

func TestAddEventAuthenticates(t *testing.T) {
	rl := relaytest.New(relaytest.RequireAuth())
	defer rl.Close()
	c := newClient(t, rl.URL)
	_, results, err := c.AddEvent(context.Bg(), nil, EventParams{
		PrivateKey: keys.GeneratePrivateKey(), Content: "members only"})
	require.NoError(t, err)
	assert.Equal(t, relay.PublishStatusSucceeded, results[0].Status)
	assert.GreaterOrEqual(t, rl.Authenticated(), 1)
}

func TestAddEvents(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	rl := relaytest.New()
	defer rl.Close()
	c := newClient(t, rl.URL)
	events := make(chan *event.T, 3)
	for i := 1; i <= 3; i++ {
		events <- signed(t, sk, kind.TextNote, "batch", int64(i))
	}
	close(events)
	var ok int
	err := c.AddEvents(context.Bg(), nil, events,
		func(ev *event.T, results []pool.PublishResult, err error) {
			if err == nil {
				ok++
			}
		})
	require.NoError(t, err)
	assert.Equal(t, 3, ok)
	assert.Len(t, rl.Events(), 3)
}

func TestQueryStream(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	rl := relaytest.New()
	defer rl.Close()
	c := newClient(t, rl.URL)
	cx, cancel := context.Cancel(context.Bg())
	defer cancel()
	results, err := c.Query(cx, filters.T{{Kinds: kinds.T{kind.TextNote}}},
		nil, true)
	require.NoError(t, err)
	// give the subscription time to be open before publishing
	time.Sleep(100 * time.Millisecond)
	_, _, err = c.AddEvent(context.Bg(), nil, EventParams{PrivateKey: sk,
		Kind: kind.TextNote, Content: "streamed"})
	require.NoError(t, err)
	select {
	case res := <-results:
		assert.Equal(t, "streamed", res.Event.Content)
	case <-time.After(3 * time.Second):
		t.Fatal("no streamed event")
	}
	cancel()
	for range results {
	}
}

func TestGetAllWithoutEose(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	rl := relaytest.New(relaytest.NoEOSE())
	defer rl.Close()
	ev := signed(t, sk, kind.TextNote, "stored", 1)
	rl.Store(ev)
	cfg, err := config.FromMap(map[string]string{"NOSTR_TIMEOUT": "500ms"})
	require.NoError(t, err)
	cfg.Relays = []string{rl.URL}
	c := New(cfg)
	defer c.Close()
	start := time.Now()
	results, err := c.GetAll(context.Bg(), `{"kinds":[1]}`, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ev.ID, results[0].Event.ID)
	assert.Less(t, time.Since(start), 5*time.Second)
	// single event lookups are bounded the same way
	start = time.Now()
	results, err = c.GetAll(context.Bg(), `{"kinds":[7]}`, nil,
		SingleEvent(true))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Less(t, time.Since(start), 5*time.Second)
}
