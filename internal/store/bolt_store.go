package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"matchforge/internal/common"
)

// BoltStore is the durable TradeStore backing: one bbolt bucket per pair,
// keyed by big-endian sequence, holding the deterministic binary encoding
// from encoding.go. bbolt's single-writer/multi-reader MVCC transactions
// give the append/list isolation spec.md §4.2 requires without any locking
// of our own beyond the in-memory sequence counters.
type BoltStore struct {
	db *bolt.DB
	al *common.Allowlist

	seqMu sync.Mutex
	seq   map[common.Pair]*atomic.Uint64
}

// OpenBoltStore opens (creating if absent) a bbolt database at path and
// pre-creates a bucket per allow-listed pair, resuming each pair's sequence
// counter from the last persisted record so restarts never reuse a
// sequence number.
func OpenBoltStore(path string, al *common.Allowlist) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStore, path, err)
	}

	s := &BoltStore{
		db:  db,
		al:  al,
		seq: make(map[common.Pair]*atomic.Uint64, len(al.Pairs())),
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, pair := range al.Pairs() {
			bucket, err := tx.CreateBucketIfNotExists(bucketName(pair))
			if err != nil {
				return err
			}
			last := uint64(0)
			if k, _ := bucket.Cursor().Last(); k != nil {
				last = binary.BigEndian.Uint64(k)
			}
			counter := &atomic.Uint64{}
			counter.Store(last)
			s.seq[pair] = counter
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init buckets: %v", common.ErrStore, err)
	}

	return s, nil
}

func bucketName(pair common.Pair) []byte {
	return []byte(pair.String())
}

func seqKey(sequence uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sequence)
	return buf
}

// Append implements TradeStore. Amortized O(1): the sequence is tracked
// in-memory, so append never scans the bucket.
func (s *BoltStore) Append(_ context.Context, pair common.Pair, trade common.Trade) error {
	counter, ok := s.seq[pair]
	if !ok {
		return fmt.Errorf("%w: pair %s has no bucket", common.ErrInternal, pair)
	}

	sequence := counter.Add(1)
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(pair))
		if bucket == nil {
			return fmt.Errorf("missing bucket for %s", pair)
		}
		return bucket.Put(seqKey(sequence), encodeTrade(trade))
	})
	if err != nil {
		return fmt.Errorf("%w: append %s: %v", common.ErrStore, pair, err)
	}
	return nil
}

// List implements TradeStore, per spec.md §4.2's pagination contract.
func (s *BoltStore) List(_ context.Context, pair common.Pair, after *Cursor, limit int) ([]common.Trade, *Cursor, int, error) {
	effectiveLimit, err := clampLimit(limit)
	if err != nil {
		return nil, nil, 0, err
	}

	var start uint64 = 1
	if after != nil {
		start = after.sequence + 1
	}

	var items []common.Trade
	var lastSeq uint64
	var haveMore bool

	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(pair))
		if bucket == nil {
			return fmt.Errorf("missing bucket for %s", pair)
		}
		c := bucket.Cursor()
		k, v := c.Seek(seqKey(start))
		for k != nil && len(items) < effectiveLimit {
			trade, err := decodeTrade(pair, v)
			if err != nil {
				return err
			}
			items = append(items, trade)
			lastSeq = binary.BigEndian.Uint64(k)
			k, v = c.Next()
		}
		haveMore = k != nil
		return nil
	})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: list %s: %v", common.ErrStore, pair, err)
	}

	var next *Cursor
	if haveMore && len(items) > 0 {
		c, err := newCursor(s.al, pair, lastSeq)
		if err != nil {
			return nil, nil, 0, err
		}
		next = &c
	}

	return items, next, effectiveLimit, nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
