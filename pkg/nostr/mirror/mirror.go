// Package mirror copies the events matching a query from one relay to
// another.
package mirror

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Hubmakerlabs/aionostr/pkg/config"
	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/client"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/event"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/filters"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/normalize"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/pool"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/relay"
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/seen"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

type Params struct {
	Source  string
	Target  string
	Filters filters.T
	// Stream keeps mirroring new events after the source sent EOSE.
	Stream bool
	// Seen holds the ids already mirrored, an in memory store is used when
	// nil.
	Seen seen.Store
	// Timeout bounds publishing each event, the client default when zero.
	Timeout time.Duration
	Verbose bool
}

// Stats counts what happened to the received events. Unconfirmed events were
// sent but the target never answered OK, they are not marked seen so the next
// run sends them again.
type Stats struct {
	Received    int64
	Published   int64
	Skipped     int64
	Unconfirmed int64
	Failed      int64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"received %d, published %d, skipped %d, unconfirmed %d, failed %d",
		s.Received, s.Published, s.Skipped, s.Unconfirmed, s.Failed)
}

// accepted is true when some relay answered OK true.
func accepted(res []pool.PublishResult) bool {
	for _, r := range res {
		if r.Status == relay.PublishStatusSucceeded {
			return true
		}
	}
	return false
}

// Mirror subscribes to the source and publishes every event it did not see
// before to the target, until the source sent EOSE or, when streaming, c
// ends.
func Mirror(c context.T, p Params) (stats Stats, err error) {
	source, target := normalize.URL(p.Source), normalize.URL(p.Target)
	if source == "" || target == "" {
		return stats, errors.New("mirror needs a source and a target relay")
	}
	if source == target {
		return stats, errors.New("source and target are the same relay")
	}
	if p.Seen == nil {
		p.Seen = seen.NewMemory()
	}
	cl := client.New(&config.C{Relays: []string{target}, Timeout: p.Timeout},
		client.WithVerbose(p.Verbose))
	defer cl.Close()
	var results <-chan client.Result
	if results, err = cl.Query(c, p.Filters, []string{source},
		p.Stream); chk.E(err) {
		return
	}
	var received, published, skipped, unconfirmed, failed atomic.Int64
	events := make(chan *event.T)
	go func() {
		defer close(events)
		for res := range results {
			received.Add(1)
			if p.Seen.Has(res.Event.ID) {
				skipped.Add(1)
				continue
			}
			select {
			case events <- res.Event:
			case <-c.Done():
				return
			}
		}
	}()
	err = cl.AddEvents(c, []string{target}, events,
		func(ev *event.T, res []pool.PublishResult, err error) {
			if err != nil {
				failed.Add(1)
				log.W.F("mirroring %s failed: %v", ev.ID, err)
				return
			}
			if !accepted(res) {
				unconfirmed.Add(1)
				log.W.F("%s sent but not confirmed by %s", ev.ID, target)
				return
			}
			published.Add(1)
			chk.E(p.Seen.Add(ev.ID))
			if p.Verbose {
				log.I.F("mirrored %s", ev.ID)
			}
		})
	stats = Stats{
		Received:    received.Load(),
		Published:   published.Load(),
		Skipped:     skipped.Load(),
		Unconfirmed: unconfirmed.Load(),
		Failed:      failed.Load(),
	}
	if p.Stream && c.Err() != nil {
		// a stream only ends with its context
		err = nil
	}
	return
}
