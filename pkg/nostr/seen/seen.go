// Package seen records which event ids were already handled, so that a
// mirror run can skip them, in memory or persisted in badger.
package seen

import (
	"os"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/puzpuzpuz/xsync/v2"
)

var log, chk = slog.New(os.Stderr)

type Store interface {
	Has(id eventid.T) bool
	Add(id eventid.T) error
	Close() error
}

// Memory is a Store that forgets everything when the process ends.
type Memory struct {
	ids *xsync.MapOf[string, struct{}]
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{ids: xsync.NewMapOf[struct{}]()} }

func (m *Memory) Has(id eventid.T) bool {
	_, ok := m.ids.Load(id.String())
	return ok
}

func (m *Memory) Add(id eventid.T) error {
	m.ids.Store(id.String(), struct{}{})
	return nil
}

// Len is the number of ids recorded.
func (m *Memory) Len() int { return m.ids.Size() }

func (m *Memory) Close() error { return nil }
