package pool

import (
	"testing"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relaytest"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(t *testing.T, sk, content string, created int64) *event.T {
	t.Helper()
	ev := &event.T{Kind: kind.TextNote, Content: content,
		CreatedAt: timestamp.T(created)}
	require.NoError(t, ev.Sign(sk))
	return ev
}

var textNotes = filters.T{{Kinds: kinds.T{kind.TextNote}}}

func collect(t *testing.T, ch chan IncomingEvent) (got []IncomingEvent) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ie, ok := <-ch:
			if !ok {
				return
			}
			got = append(got, ie)
		case <-timeout:
			t.Fatal("channel was not closed")
		}
	}
}

// twoRelays returns relays sharing three events and holding one of their own.
func twoRelays(t *testing.T) (a, b *relaytest.Relay) {
	sk := keys.GeneratePrivateKey()
	a, b = relaytest.New(), relaytest.New()
	for i := 1; i <= 3; i++ {
		ev := note(t, sk, "shared", int64(i))
		a.Store(ev)
		b.Store(ev)
	}
	a.Store(note(t, sk, "only a", 10))
	b.Store(note(t, sk, "only b", 11))
	return
}

func TestSubManyEose(t *testing.T) {
	a, b := twoRelays(t)
	defer a.Close()
	defer b.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	got := collect(t, p.SubManyEose(context.Bg(), []string{a.URL, b.URL},
		textNotes))
	assert.Len(t, got, 5)
	ids := make(map[string]bool)
	for _, ie := range got {
		assert.False(t, ids[ie.Event.ID.String()], "duplicate %s", ie)
		ids[ie.Event.ID.String()] = true
	}
	got = collect(t, p.SubManyEoseNonUnique(context.Bg(),
		[]string{a.URL, b.URL}, textNotes))
	assert.Len(t, got, 8)
	// one connection per relay however often they are used
	n := 0
	p.Relays.Range(func(string, *relay.T) bool { n++; return true })
	assert.Equal(t, 2, n)
}

func TestSubManyEoseFailedRelay(t *testing.T) {
	a, b := twoRelays(t)
	defer a.Close()
	dead := b.URL
	b.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	got := collect(t, p.SubManyEose(context.Bg(), []string{a.URL, dead},
		textNotes))
	assert.Len(t, got, 4)
	for _, ie := range got {
		assert.Equal(t, a.URL, ie.Relay.URL)
	}
}

func TestSubManyEoseNeedsEveryRelay(t *testing.T) {
	a := relaytest.New()
	defer a.Close()
	slow := relaytest.New(relaytest.NoEOSE())
	defer slow.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	c, cancel := context.Timeout(context.Bg(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	collect(t, p.SubManyEose(c, []string{a.URL, slow.URL}, textNotes))
	// the merged channel only closed when the context expired
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestSubManyEoseTimeout(t *testing.T) {
	slow := relaytest.New(relaytest.NoEOSE())
	defer slow.Close()
	slow.Store(note(t, keys.GeneratePrivateKey(), "stored", 1))
	p := NewSimplePool(context.Bg(), WithEoseTimeout(300*time.Millisecond))
	defer p.Close()
	start := time.Now()
	// no deadline on the context, the pool gives up waiting for EOSE
	got := collect(t, p.SubManyEose(context.Bg(), []string{slow.URL},
		textNotes))
	require.Len(t, got, 1)
	assert.Equal(t, "stored", got[0].Event.Content)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSubManyStreams(t *testing.T) {
	r := relaytest.New()
	defer r.Close()
	sk := keys.GeneratePrivateKey()
	r.Store(note(t, sk, "stored", 1))
	p := NewSimplePool(context.Bg())
	defer p.Close()
	c, cancel := context.Cancel(context.Bg())
	ch := p.SubMany(c, []string{r.URL}, textNotes)
	select {
	case ie := <-ch:
		assert.Equal(t, "stored", ie.Event.Content)
	case <-time.After(3 * time.Second):
		t.Fatal("no stored event")
	}
	live := note(t, sk, "live", 2)
	results, err := p.PublishMany(context.Bg(), []string{r.URL}, live)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, relay.PublishStatusSucceeded, results[0].Status)
	select {
	case ie := <-ch:
		assert.Equal(t, live.ID, ie.Event.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("no live event")
	}
	cancel()
	collect(t, ch)
}

func TestQuerySingle(t *testing.T) {
	a, b := twoRelays(t)
	defer a.Close()
	defer b.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	ev := b.Events()[3]
	ie := p.QuerySingle(context.Bg(), []string{a.URL, b.URL},
		&filter.T{IDs: []string{ev.ID.String()}})
	require.NotNil(t, ie)
	assert.Equal(t, ev.ID, ie.Event.ID)
	assert.Equal(t, b.URL, ie.Relay.URL)
	assert.Nil(t, p.QuerySingle(context.Bg(), []string{a.URL},
		&filter.T{IDs: []string{ev.ID.String()}}))
}

func TestPublishMany(t *testing.T) {
	ok := relaytest.New()
	defer ok.Close()
	blocked := relaytest.New(relaytest.Reject("blocked: not on the list"))
	defer blocked.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	ev := note(t, keys.GeneratePrivateKey(), "hello", 1)
	results, err := p.PublishMany(context.Bg(), []string{ok.URL, blocked.URL},
		ev)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ok.URL, results[0].Relay)
	assert.Equal(t, relay.PublishStatusSucceeded, results[0].Status)
	assert.Equal(t, relay.PublishStatusFailed, results[1].Status)
	assert.ErrorIs(t, results[1].Err, relay.ErrRejected)
	assert.Len(t, ok.Events(), 1)
	results, err = p.PublishMany(context.Bg(), []string{blocked.URL}, ev)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Len(t, results, 1)
}

func TestPublishManyAuth(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	r := relaytest.New(relaytest.RequireAuth())
	defer r.Close()
	p := NewSimplePool(context.Bg(),
		WithAuthHandler(func(ev *event.T) error { return ev.Sign(sk) }))
	defer p.Close()
	results, err := p.PublishMany(context.Bg(), []string{r.URL},
		note(t, sk, "members", 1))
	require.NoError(t, err)
	assert.Equal(t, relay.PublishStatusSucceeded, results[0].Status)
	assert.Equal(t, 1, r.Authenticated())
	// without a handler the rejection is reported
	p2 := NewSimplePool(context.Bg())
	defer p2.Close()
	results, err = p2.PublishMany(context.Bg(), []string{r.URL},
		note(t, sk, "members", 2))
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.ErrorIs(t, results[0].Err, relay.ErrRejected)
}

func TestSubManyEoseAuth(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	r := relaytest.New(relaytest.RequireAuth())
	defer r.Close()
	r.Store(note(t, sk, "secret", 1))
	p := NewSimplePool(context.Bg(),
		WithAuthHandler(func(ev *event.T) error { return ev.Sign(sk) }))
	defer p.Close()
	got := collect(t, p.SubManyEose(context.Bg(), []string{r.URL}, textNotes))
	require.Len(t, got, 1)
	assert.Equal(t, "secret", got[0].Event.Content)
}

func TestAuthenticate(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	r := relaytest.New(relaytest.RequireAuth())
	defer r.Close()
	open := relaytest.New()
	defer open.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	rl, err := p.EnsureRelay(r.URL)
	require.NoError(t, err)
	select {
	case <-rl.AuthRequired():
	case <-time.After(3 * time.Second):
		t.Fatal("no challenge")
	}
	n := p.Authenticate(context.Bg(), []string{r.URL, open.URL},
		func(ev *event.T) error { return ev.Sign(sk) })
	assert.Equal(t, 1, n)
}

func TestEnsureRelayReconnects(t *testing.T) {
	r := relaytest.New()
	defer r.Close()
	p := NewSimplePool(context.Bg())
	defer p.Close()
	rl1, err := p.EnsureRelay(r.URL)
	require.NoError(t, err)
	rl2, err := p.EnsureRelay(r.URL + "/")
	require.NoError(t, err)
	assert.Same(t, rl1, rl2)
	r.DropConnections()
	assert.Eventually(t, func() bool { return !rl1.IsConnected() },
		3*time.Second, 10*time.Millisecond)
	rl3, err := p.EnsureRelay(r.URL)
	require.NoError(t, err)
	assert.NotSame(t, rl1, rl3)
	assert.True(t, rl3.IsConnected())
	_, err = p.EnsureRelay("")
	assert.Error(t, err)
}

func TestSubManyResubscribes(t *testing.T) {
	r := relaytest.New()
	defer r.Close()
	sk := keys.GeneratePrivateKey()
	p := NewSimplePool(context.Bg(),
		WithReconnectDelay(50*time.Millisecond))
	defer p.Close()
	c, cancel := context.Cancel(context.Bg())
	ch := p.SubMany(c, []string{r.URL}, textNotes)
	time.Sleep(100 * time.Millisecond)
	r.DropConnections()
	// publish until the subscription is back and gets the event
	var ev *event.T
	deadline := time.After(5 * time.Second)
	for i := int64(1); ev == nil; i++ {
		live := note(t, sk, "after drop", i)
		_, _ = p.PublishMany(context.Bg(), []string{r.URL}, live)
		select {
		case ie := <-ch:
			ev = ie.Event
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("subscription did not come back")
		}
	}
	assert.Equal(t, "after drop", ev.Content)
	cancel()
	collect(t, ch)
}
