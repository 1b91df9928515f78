package mirror

import (
	"testing"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relaytest"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/seen"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var textNotes = filters.T{{Kinds: kinds.T{kind.TextNote}}}

func fill(t *testing.T, rl *relaytest.Relay, n int) (evs []*event.T) {
	sk := keys.GeneratePrivateKey()
	for i := 1; i <= n; i++ {
		ev := &event.T{Kind: kind.TextNote, Content: "mirror me",
			CreatedAt: timestamp.T(i)}
		require.NoError(t, ev.Sign(sk))
		rl.Store(ev)
		evs = append(evs, ev)
	}
	// not matching the filter
	other := &event.T{Kind: kind.Reaction, Content: "+", CreatedAt: 1}
	require.NoError(t, other.Sign(sk))
	rl.Store(other)
	return
}

func TestMirrorSkipsSeen(t *testing.T) {
	source, target := relaytest.New(), relaytest.New()
	defer source.Close()
	defer target.Close()
	evs := fill(t, source, 3)
	s := seen.NewMemory()
	require.NoError(t, s.Add(evs[0].ID))
	stats, err := Mirror(context.Bg(), Params{Source: source.URL,
		Target: target.URL, Filters: textNotes, Seen: s})
	require.NoError(t, err)
	assert.Equal(t, Stats{Received: 3, Published: 2, Skipped: 1}, stats)
	assert.Len(t, target.Events(), 2)
	assert.Equal(t, 3, s.Len())
	// a second run has nothing left to do
	stats, err = Mirror(context.Bg(), Params{Source: source.URL,
		Target: target.URL, Filters: textNotes, Seen: s})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Skipped)
	assert.Zero(t, stats.Published)
}

func TestMirrorPersistentSeen(t *testing.T) {
	source, target := relaytest.New(), relaytest.New()
	defer source.Close()
	defer target.Close()
	fill(t, source, 2)
	dir := t.TempDir()
	s, err := seen.OpenBadger(dir)
	require.NoError(t, err)
	stats, err := Mirror(context.Bg(), Params{Source: source.URL,
		Target: target.URL, Filters: textNotes, Seen: s})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Published)
	require.NoError(t, s.Close())
	s, err = seen.OpenBadger(dir)
	require.NoError(t, err)
	defer s.Close()
	stats, err = Mirror(context.Bg(), Params{Source: source.URL,
		Target: target.URL, Filters: textNotes, Seen: s})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Skipped)
}

func TestMirrorFailures(t *testing.T) {
	source := relaytest.New()
	defer source.Close()
	target := relaytest.New(relaytest.Reject("blocked: read only"))
	defer target.Close()
	fill(t, source, 2)
	stats, err := Mirror(context.Bg(), Params{Source: source.URL,
		Target: target.URL, Filters: textNotes})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Zero(t, stats.Published)
	_, err = Mirror(context.Bg(), Params{Source: source.URL,
		Target: source.URL, Filters: textNotes})
	assert.Error(t, err)
}

func TestMirrorStream(t *testing.T) {
	source, target := relaytest.New(), relaytest.New()
	defer source.Close()
	defer target.Close()
	fill(t, source, 1)
	c, cancel := context.Timeout(context.Bg(), 500*time.Millisecond)
	defer cancel()
	start := time.Now()
	stats, err := Mirror(c, Params{Source: source.URL, Target: target.URL,
		Filters: textNotes, Stream: true})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, int64(1), stats.Published)
}

func TestMirrorUnconfirmed(t *testing.T) {
	source := relaytest.New()
	defer source.Close()
	target := relaytest.New(relaytest.DropOK())
	defer target.Close()
	evs := fill(t, source, 2)
	s := seen.NewMemory()
	stats, err := Mirror(context.Bg(), Params{Source: source.URL,
		Target: target.URL, Filters: textNotes, Seen: s,
		Timeout: 300 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, Stats{Received: 2, Unconfirmed: 2}, stats)
	assert.Len(t, target.Published(), 2)
	// without an OK nothing is remembered, the next run sends them again
	for _, ev := range evs {
		assert.False(t, s.Has(ev.ID))
	}
	assert.Zero(t, s.Len())
	assert.Contains(t, stats.String(), "unconfirmed 2")
}
