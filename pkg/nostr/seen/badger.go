package seen

import (
	"errors"

	"github.com/Hubmakerlabs/aionostr/pkg/nostr/eventid"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
	"github.com/dgraph-io/badger/v4"
)

// Prefix is prepended to the raw id bytes to form a key.
const Prefix = "seen:"

// Badger is a Store persisted in a badger database directory.
type Badger struct {
	Path string
	*badger.DB
}

var _ Store = (*Badger)(nil)

// OpenBadger opens or creates the database at path.
func OpenBadger(path string) (b *Badger, err error) {
	log.D.Ln("opening seen store at", path)
	opts := badger.DefaultOptions(path).
		WithLogger(logger{Level: slog.GetLogLevel(), Label: path})
	b = &Badger{Path: path}
	if b.DB, err = badger.Open(opts); chk.E(err) {
		return nil, err
	}
	return
}

func key(id eventid.T) []byte {
	raw := id.Bytes()
	if raw == nil {
		// not hex, keep it as given
		raw = []byte(id)
	}
	return append([]byte(Prefix), raw...)
}

func (b *Badger) Has(id eventid.T) (found bool) {
	err := b.View(func(txn *badger.Txn) (err error) {
		_, err = txn.Get(key(id))
		return
	})
	if err == nil {
		return true
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		log.E.F("seen store %s: %v", b.Path, err)
	}
	return false
}

func (b *Badger) Add(id eventid.T) (err error) {
	return b.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id), nil)
	})
}

// Count returns the number of ids recorded.
func (b *Badger) Count() (n int, err error) {
	err = b.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(Prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return
}

func (b *Badger) Close() error { return b.DB.Close() }
