// Package badger implements the reading store on BadgerDB (LSM tree).
//
// Reads are served from MVCC snapshots, so readers never take a lock the
// writer could wait on. The trade-off against the SQLite backend: Badger
// holds an exclusive directory lock, so producer and dashboard must run
// inside one process when this engine is selected.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

// Keys are prefix + big-endian timestamp + big-endian id, so byte order
// is exactly (timestamp, id) order and window scans are range scans.
var (
	readingPrefix = []byte("r!")
	seqKey        = []byte("seq!readings")
)

// seqBandwidth is the id lease size. A crash burns the unused part of the
// current lease: ids stay monotonic but need not be dense.
const seqBandwidth = 128

// Store is the Badger-backed reading log.
type Store struct {
	db   *badger.DB
	seq  *badger.Sequence
	path string
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open creates or opens a Badger database in the given directory.
// Returns *store.UnavailableError when the directory cannot be used
// (missing parent, bad permissions, or another process holds the lock).
func Open(path string) (*Store, error) {
	return open(path, badger.DefaultOptions(path))
}

// OpenInMemory opens a throwaway in-memory store. Used by tests and the
// scenario harness.
func OpenInMemory() (*Store, error) {
	return open("(in-memory)", badger.DefaultOptions("").WithInMemory(true))
}

func open(path string, opts badger.Options) (*Store, error) {
	// Readings are immutable; one version per key is enough. Badger's
	// own logger prints straight to stderr, which garbles CLI output.
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &store.UnavailableError{Path: path, Err: err}
	}

	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		db.Close()
		return nil, &store.UnavailableError{Path: path, Err: err}
	}

	return &Store{db: db, seq: seq, path: path, now: time.Now}, nil
}

// Close releases the unused id lease and shuts the database down.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.seq != nil {
		if err := s.seq.Release(); err != nil {
			s.db.Close()
			return err
		}
	}
	return s.db.Close()
}

// Path returns the directory the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Insert appends one reading. A zero Timestamp is replaced with the
// current wall time. The id comes from a persisted sequence, so ids keep
// increasing across restarts and are never reused.
func (s *Store) Insert(ctx context.Context, r reading.Reading) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &store.WriteError{Op: "insert", Err: err}
	}

	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	id, err := s.nextID()
	if err != nil {
		return 0, &store.WriteError{Op: "insert", Err: err}
	}
	r.ID = id

	value, err := json.Marshal(r)
	if err != nil {
		return 0, &store.WriteError{Op: "insert", Err: err}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(r.Timestamp, r.ID), value)
	})
	if err != nil {
		return 0, &store.WriteError{Op: "insert", Err: err}
	}

	return id, nil
}

// InsertBatch appends readings in one transaction and returns their ids
// in input order. All rows land or none do; a failed batch still burns
// its ids.
func (s *Store) InsertBatch(ctx context.Context, rs []reading.Reading) ([]int64, error) {
	if len(rs) == 0 {
		return []int64{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &store.WriteError{Op: "insert batch", Err: err}
	}

	ids := make([]int64, 0, len(rs))
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, r := range rs {
			if r.Timestamp.IsZero() {
				r.Timestamp = s.now()
			}

			id, err := s.nextID()
			if err != nil {
				return err
			}
			r.ID = id

			value, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := txn.Set(makeKey(r.Timestamp, r.ID), value); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, &store.WriteError{Op: "insert batch", Err: err}
	}

	return ids, nil
}

// Window returns up to limit readings with timestamp >= since, oldest to
// newest. The scan walks the key range backwards from the newest reading
// and stops at the cutoff or the limit, then the slice is reversed back
// to ascending order.
func (s *Store) Window(ctx context.Context, since time.Time, limit int) ([]reading.Reading, error) {
	if limit <= 0 {
		return []reading.Reading{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &store.ReadError{Op: "window", Err: err}
	}

	cutoff := since.UnixNano()
	readings := []reading.Reading{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = readingPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(maxReadingKey()); it.Valid(); it.Next() {
			item := it.Item()
			if keyTimestamp(item.Key()) < cutoff {
				break
			}

			var r reading.Reading
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			// JSON keeps the writer's zone offset; reads are always UTC.
			r.Timestamp = r.Timestamp.UTC()
			readings = append(readings, r)

			if len(readings) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, &store.ReadError{Op: "window", Err: err}
	}

	// Newest-first from the scan; callers get oldest-first.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}

	return readings, nil
}

// Latest returns the most recent reading, or store.ErrNoReadings when
// the store holds none. Timestamp ties resolve to the higher id via key
// order.
func (s *Store) Latest(ctx context.Context) (reading.Reading, error) {
	if err := ctx.Err(); err != nil {
		return reading.Reading{}, &store.ReadError{Op: "latest", Err: err}
	}

	var r reading.Reading
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = readingPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(maxReadingKey())
		if !it.Valid() {
			return nil
		}
		found = true
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return reading.Reading{}, &store.ReadError{Op: "latest", Err: err}
	}
	if !found {
		return reading.Reading{}, store.ErrNoReadings
	}
	r.Timestamp = r.Timestamp.UTC()

	return r, nil
}

// Count returns the total number of stored readings by walking keys
// only; values are not fetched.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &store.ReadError{Op: "count", Err: err}
	}

	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = readingPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, &store.ReadError{Op: "count", Err: err}
	}

	return count, nil
}

// nextID returns the next reading id. Sequence values start at 0; ids
// start at 1 to match the SQLite backend.
func (s *Store) nextID() (int64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}

// makeKey encodes (timestamp, id) as an order-preserving key.
func makeKey(ts time.Time, id int64) []byte {
	key := make([]byte, len(readingPrefix)+16)
	copy(key, readingPrefix)
	binary.BigEndian.PutUint64(key[len(readingPrefix):], uint64(ts.UnixNano()))
	binary.BigEndian.PutUint64(key[len(readingPrefix)+8:], uint64(id))
	return key
}

// keyTimestamp extracts the Unix-nanosecond timestamp from a reading key.
func keyTimestamp(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(readingPrefix) : len(readingPrefix)+8]))
}

// maxReadingKey is the seek target for reverse scans: the largest
// possible key under the reading prefix.
func maxReadingKey() []byte {
	key := make([]byte, len(readingPrefix)+16)
	copy(key, readingPrefix)
	for i := len(readingPrefix); i < len(key); i++ {
		key[i] = 0xff
	}
	return key
}
