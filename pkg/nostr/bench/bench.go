// Package bench measures how fast a relay stores and serves events.
package bench

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/hex"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filter"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/keys"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/tags"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

var log, chk = slog.New(os.Stderr)

// Result is the count of operations done in a duration.
type Result struct {
	Name     string
	Count    int
	Duration time.Duration
}

func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Count) / r.Duration.Seconds()
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %d in %.2f seconds. %.1f/sec", r.Name, r.Count,
		r.Duration.Seconds(), r.Throughput())
}

// Func is one benchmark run against a relay.
type Func func(c context.T) (Result, error)

// MakeEvents signs n events of kind Benchmark with random content under a
// fresh key.
func MakeEvents(n int) (evs []*event.T, err error) {
	sk := keys.GeneratePrivateKey()
	for i := 0; i < n; i++ {
		ev := &event.T{
			CreatedAt: timestamp.Now(),
			Kind:      kind.Benchmark,
			Tags:      tags.T{},
			Content:   hex.Enc(frand.Bytes(6)),
		}
		if err = ev.Sign(sk); chk.E(err) {
			return
		}
		evs = append(evs, ev)
	}
	return
}

// AddsPerSecond publishes n events one after the other, waiting for each OK.
func AddsPerSecond(c context.T, url string, n int) (res Result, err error) {
	res.Name = "Add"
	var evs []*event.T
	if evs, err = MakeEvents(n); err != nil {
		return
	}
	var rl *relay.T
	if rl, err = relay.Connect(c, url); chk.E(err) {
		return
	}
	defer rl.Close()
	start := time.Now()
	for _, ev := range evs {
		var status relay.Status
		if status, err = rl.Publish(c, ev); chk.E(err) {
			return
		}
		if status == relay.PublishStatusSucceeded {
			res.Count++
		}
	}
	res.Duration = time.Since(start)
	log.I.Ln(res)
	return
}

func query(k kind.T, limit int) *filter.T {
	return &filter.T{Kinds: kinds.T{k}, Limit: limit}
}

// EventsPerSecond reads the stored events of a kind up to limit in one
// subscription.
func EventsPerSecond(c context.T, url string, k kind.T,
	limit int) (res Result, err error) {

	res.Name = "Events"
	var rl *relay.T
	if rl, err = relay.Connect(c, url); chk.E(err) {
		return
	}
	defer rl.Close()
	start := time.Now()
	var sub *relay.Subscription
	if sub, err = rl.Subscribe(c, filters.T{query(k, limit)},
		relay.WithLabel("bench")); chk.E(err) {
		return
	}
	defer sub.Unsub()
	for done := false; !done; {
		select {
		case _, ok := <-sub.Events:
			if !ok {
				done = true
				break
			}
			res.Count++
		case <-sub.EndOfStoredEvents:
			done = true
		case <-c.Done():
			return res, context.Cause(c)
		}
	}
	res.Duration = time.Since(start)
	log.I.Ln(res)
	return
}

// ReqPerSecond repeats subscribing, reading the stored events and
// unsubscribing for the duration, counting the rounds.
func ReqPerSecond(c context.T, url string, k kind.T, limit int,
	duration time.Duration) (res Result, err error) {

	res.Name = "Req"
	var rl *relay.T
	if rl, err = relay.Connect(c, url); chk.E(err) {
		return
	}
	defer rl.Close()
	start := time.Now()
	stop := start.Add(duration)
	for time.Now().Before(stop) {
		if _, err = rl.QuerySync(c, query(k, limit),
			relay.WithLabel("bench")); chk.E(err) {
			return
		}
		res.Count++
	}
	res.Duration = time.Since(start)
	log.I.Ln(res)
	return
}

// Run starts concurrency copies of fn at once and returns their summed
// throughput.
func Run(c context.T, concurrency int, fn Func) (total float64,
	results []Result, err error) {

	g, c := errgroup.WithContext(c)
	var mu sync.Mutex
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			res, err := fn(c)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			total += res.Throughput()
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	return
}
