package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pointers"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relaytest"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command line with empty settings unless the test set
// them, and returns the output lines.
func run(t *testing.T, args ...string) (out []string, errOut string,
	err error) {

	t.Helper()
	app := newApp()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	app.Writer, app.ErrWriter = stdout, stderr
	err = app.Run(append([]string{"aionostr"}, args...))
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out, stderr.String(), err
}

// pipe makes the given lines the piped input of the commands run by the test.
func pipe(t *testing.T, lines ...string) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	old := stdin
	stdin = r
	t.Cleanup(func() {
		stdin = old
		r.Close()
	})
}

func noPipe(t *testing.T) {
	old := stdin
	stdin = nil
	t.Cleanup(func() { stdin = old })
}

func setEnv(t *testing.T, relays, key string) {
	t.Setenv("NOSTR_RELAYS", relays)
	t.Setenv("NOSTR_KEY", key)
	t.Setenv("LOG_LEVEL", "off")
}

func note(t *testing.T, sec, content string, created int64) *event.T {
	t.Helper()
	ev := &event.T{Kind: kind.TextNote, Content: content,
		CreatedAt: timestamp.T(created), Tags: tags.T{}}
	require.NoError(t, ev.Sign(sec))
	return ev
}

func TestGenThenSend(t *testing.T) {
	noPipe(t)
	rl := relaytest.New()
	defer rl.Close()
	setEnv(t, rl.URL, "")
	out, _, err := run(t, "gen")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, strings.HasPrefix(out[0], "nsec1"))
	assert.True(t, strings.HasPrefix(out[1], "npub1"))
	_, pub, err := bech32encoding.DecodeToString(out[1])
	require.NoError(t, err)

	t.Setenv("NOSTR_KEY", out[0])
	out, _, err = run(t, "send", "--kind", "1", "--content", "hello",
		"--tags", `[["t","test"]]`)
	require.NoError(t, err)
	require.Len(t, out, 2)
	published := rl.Published()
	require.Len(t, published, 1)
	assert.Equal(t, eventid.T(out[0]), published[0].ID)
	assert.Equal(t, pub, published[0].PubKey)
	assert.Equal(t, "hello", published[0].Content)
	assert.True(t, published[0].Tags.ContainsAny("t", "test"))
	_, value, err := bech32encoding.Decode(out[1])
	require.NoError(t, err)
	ptr := value.(pointers.Event)
	assert.Equal(t, published[0].ID, ptr.ID)
	assert.Equal(t, []string{rl.URL}, ptr.Relays)
}

func TestSendWithoutKey(t *testing.T) {
	noPipe(t)
	rl := relaytest.New()
	defer rl.Close()
	setEnv(t, rl.URL, "")
	_, _, err := run(t, "send", "--content", "hello")
	assert.Error(t, err)
	assert.Empty(t, rl.Published())
}

func TestSendPipedEvent(t *testing.T) {
	rl := relaytest.New()
	defer rl.Close()
	setEnv(t, "", "")
	ev := note(t, keys.GeneratePrivateKey(), "piped", 1700000000)
	pipe(t, ev.String())
	out, _, err := run(t, "-r", rl.URL, "send")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, ev.ID.String(), out[0])
	require.Len(t, rl.Published(), 1)
	assert.Equal(t, ev.ID, rl.Published()[0].ID)
}

func TestSendRejected(t *testing.T) {
	noPipe(t)
	rl := relaytest.New(relaytest.Reject("blocked: no"))
	defer rl.Close()
	setEnv(t, rl.URL, keys.GeneratePrivateKey())
	out, errOut, err := run(t, "send", "--content", "hello")
	assert.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "blocked: no")
}

func TestGet(t *testing.T) {
	noPipe(t)
	rl := relaytest.New()
	defer rl.Close()
	setEnv(t, rl.URL, "")
	sec := keys.GeneratePrivateKey()
	ev := note(t, sec, "stored", 1700000000)
	rl.Store(ev)

	out, _, err := run(t, "get", ev.ID.String())
	require.NoError(t, err)
	require.Len(t, out, 1)
	got := &event.T{}
	require.NoError(t, got.UnmarshalJSON([]byte(out[0])))
	assert.Equal(t, ev.ID, got.ID)

	npub, err := bech32encoding.EncodePublicKey(ev.PubKey)
	require.NoError(t, err)
	out, _, err = run(t, "get", npub)
	require.NoError(t, err)
	assert.Equal(t, []string{ev.PubKey}, out)
}

func TestQuery(t *testing.T) {
	noPipe(t)
	rl := relaytest.New()
	defer rl.Close()
	setEnv(t, "", "")
	sec := keys.GeneratePrivateKey()
	for i := 0; i < 5; i++ {
		rl.Store(note(t, sec, "note", int64(1700000000+i)))
	}
	out, _, err := run(t, "-r", rl.URL, "query", `{"kinds":[1],"limit":3}`)
	require.NoError(t, err)
	assert.Len(t, out, 3)

	_, _, err = run(t, "-r", rl.URL, "query", `{"kinds":`)
	assert.Error(t, err)
}

func TestQueryPiped(t *testing.T) {
	rl := relaytest.New()
	defer rl.Close()
	setEnv(t, rl.URL, "")
	sec := keys.GeneratePrivateKey()
	ev := note(t, sec, "note", 1700000000)
	rl.Store(ev)
	pipe(t, `{"ids":["`+ev.ID.String()+`"]}`, `{"kinds":[7]}`)
	out, _, err := run(t, "query")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], ev.ID.String())
}

func TestMirror(t *testing.T) {
	noPipe(t)
	source, target := relaytest.New(), relaytest.New()
	defer source.Close()
	defer target.Close()
	setEnv(t, "", "")
	sec := keys.GeneratePrivateKey()
	for i := 0; i < 3; i++ {
		source.Store(note(t, sec, "mirrored", int64(1700000000+i)))
	}
	state := t.TempDir()
	_, errOut, err := run(t, "mirror", "-r", source.URL, "-t", target.URL,
		"--state", state, `{"kinds":[1]}`)
	require.NoError(t, err)
	assert.Contains(t, errOut, "published 3")
	assert.Len(t, target.Events(), 3)

	// the state remembers what was sent
	_, errOut, err = run(t, "mirror", "-r", source.URL, "-t", target.URL,
		"--state", state, `{"kinds":[1]}`)
	require.NoError(t, err)
	assert.Contains(t, errOut, "skipped 3")
	assert.Len(t, target.Published(), 3)
}

func TestNip19AndDecode(t *testing.T) {
	noPipe(t)
	setEnv(t, "", "")
	id := "5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36"
	out, _, err := run(t, "nip19", "note", id)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0], "note1"))

	out, _, err = run(t, "decode", out[0])
	require.NoError(t, err)
	assert.Equal(t, []string{id}, out)

	out, _, err = run(t, "nip19", "-r", "wss://nos.lol", "nevent", id)
	require.NoError(t, err)
	require.Len(t, out, 1)
	out, _, err = run(t, "decode", out[0])
	require.NoError(t, err)
	decoded := strings.Join(out, "\n")
	assert.Contains(t, decoded, id)
	assert.Contains(t, decoded, "wss://nos.lol")

	_, _, err = run(t, "nip19", "nwhat", id)
	assert.Error(t, err)
}

func TestEnv(t *testing.T) {
	setEnv(t, "", "")
	out, _, err := run(t, "env")
	require.NoError(t, err)
	joined := strings.Join(out, "\n")
	assert.Contains(t, joined, "NOSTR_RELAYS")
	assert.Contains(t, joined, "NOSTR_KEY")
}
