// Package checkpoint implements CheckpointStore: the authoritative,
// durable map from Bitcoin block height to a difficulty-anchored
// checkpoint. It is a leaf component with no dependency on the rest of
// the core, backed by goleveldb the way the teacher's blockchain/
// indexers package sits atop an abstract database.DB — here made
// concrete, since no retrieved example ships a reusable abstract DB
// interface outside the full node it belongs to.
package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/hashcredit/core/internal/eventlog"
	"github.com/hashcredit/core/internal/model"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var log = btclog.Disabled

// UseLogger sets the package-level logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// ErrNotFound is returned by Get when no checkpoint exists at the
// requested height.
var ErrNotFound = errors.New("checkpoint: not found")

// ErrNotMonotonic is returned by Set when height is not strictly
// greater than the current latest height.
var ErrNotMonotonic = errors.New("checkpoint: height is not strictly greater than latestHeight")

const keyPrefix = "cp/"

// Store is the checkpoint authority's durable map. The zero value is
// not usable; construct with Open.
type Store struct {
	mu           sync.RWMutex
	db           *leveldb.DB
	latestHeight uint32
	haveLatest   bool
	cache        map[uint32]model.Checkpoint
	sink         *eventlog.Sink
}

// Open opens (creating if absent) a goleveldb database at dir and
// reconstructs latestHeight from its contents.
func Open(dir string, sink *eventlog.Sink) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, cache: make(map[uint32]model.Checkpoint), sink: sink}
	if err := s.loadLatestHeight(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a Store backed by an in-memory goleveldb storage,
// for tests and short-lived processes that do not need durability
// across restarts.
func OpenInMemory(sink *eventlog.Sink) (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cache: make(map[uint32]model.Checkpoint), sink: sink}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadLatestHeight() error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		var cp model.Checkpoint
		if err := json.Unmarshal(iter.Value(), &cp); err != nil {
			return err
		}
		s.cache[cp.Height] = cp
		if !s.haveLatest || cp.Height > s.latestHeight {
			s.latestHeight = cp.Height
			s.haveLatest = true
		}
	}
	return iter.Error()
}

// Set records a new checkpoint. It fails with ErrNotMonotonic if
// height is not strictly greater than the current latest height (the
// very first write always succeeds and establishes latestHeight).
// Once written, a checkpoint is immutable: Set never updates an
// existing height.
func (s *Store) Set(height uint32, blockHash model.Hash, chainWork [32]byte, timestamp uint32, bits uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.haveLatest && height <= s.latestHeight {
		return ErrNotMonotonic
	}

	cp := model.Checkpoint{
		Height:    height,
		BlockHash: blockHash,
		ChainWork: chainWork,
		Timestamp: timestamp,
		Bits:      bits,
	}

	buf, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	if err := s.db.Put(checkpointKey(height), buf, nil); err != nil {
		return err
	}

	s.cache[height] = cp
	s.latestHeight = height
	s.haveLatest = true

	if s.sink != nil {
		s.sink.Emit("CheckpointSet", map[string]any{
			"height": height,
			"bits":   bits,
		})
	}
	log.Infof("checkpoint set at height %d (bits %08x)", height, bits)
	return nil
}

// Get returns the checkpoint at height, or ErrNotFound.
func (s *Store) Get(height uint32) (model.Checkpoint, error) {
	s.mu.RLock()
	if cp, ok := s.cache[height]; ok {
		s.mu.RUnlock()
		return cp, nil
	}
	s.mu.RUnlock()

	buf, err := s.db.Get(checkpointKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return model.Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return model.Checkpoint{}, err
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(buf, &cp); err != nil {
		return model.Checkpoint{}, err
	}

	s.mu.Lock()
	s.cache[height] = cp
	s.mu.Unlock()
	return cp, nil
}

// Latest returns the highest-height checkpoint recorded so far, or
// ErrNotFound if no checkpoint has ever been set.
func (s *Store) Latest() (model.Checkpoint, error) {
	s.mu.RLock()
	height, ok := s.latestHeight, s.haveLatest
	s.mu.RUnlock()

	if !ok {
		return model.Checkpoint{}, ErrNotFound
	}
	return s.Get(height)
}

// LatestHeight returns the highest height written so far and whether
// any checkpoint has ever been written. LatestHeight is monotonic
// (P2): it never decreases across the lifetime of the Store.
func (s *Store) LatestHeight() (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestHeight, s.haveLatest
}

func checkpointKey(height uint32) []byte {
	key := make([]byte, len(keyPrefix)+4)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint32(key[len(keyPrefix):], height)
	return key
}
