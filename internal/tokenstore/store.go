// Package tokenstore persists tracking-token checkpoints in Pebble, one
// checkpoint per processor segment.
package tokenstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/strand/internal/storage/pebble"
	"github.com/rzbill/strand/pkg/token"
)

// Store is a durable checkpoint store over a Pebble database.
type Store struct {
	db *pebblestore.DB
}

// Open creates or opens the checkpoint store at dir. Writes fsync by default.
func Open(dir string) (*Store, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already opened database.
func NewStore(db *pebblestore.DB) *Store {
	return &Store{db: db}
}

// Commit stores tok for the processor segment idempotently. If the stored
// checkpoint already covers tok the commit is ignored, so redelivered
// progress never moves a checkpoint backwards.
func (s *Store) Commit(processor string, segment uint32, tok token.Token) error {
	if tok == nil {
		return errors.New("tokenstore: cannot commit a nil token")
	}
	key := KeyCheckpoint(processor, segment)

	cur, err := s.db.Get(key)
	if err != nil && !errors.Is(err, pebblestore.ErrNotFound) {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if err == nil {
		prev, derr := token.Unmarshal(cur)
		if derr != nil {
			return fmt.Errorf("decode stored checkpoint: %w", derr)
		}
		if prev != nil {
			covers, cerr := prev.Covers(tok)
			if cerr != nil {
				return fmt.Errorf("compare checkpoint: %w", cerr)
			}
			if covers {
				return nil
			}
		}
	}

	data, err := token.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return s.db.Set(key, data)
}

// Load returns the stored checkpoint for a processor segment, or false when
// no checkpoint exists.
func (s *Store) Load(processor string, segment uint32) (token.Token, bool, error) {
	cur, err := s.db.Get(KeyCheckpoint(processor, segment))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tok, err := token.Unmarshal(cur)
	if err != nil {
		return nil, false, fmt.Errorf("decode stored checkpoint: %w", err)
	}
	return tok, true, nil
}

// Reset removes the checkpoint for a processor segment. Missing checkpoints
// are not an error.
func (s *Store) Reset(processor string, segment uint32) error {
	return s.db.Delete(KeyCheckpoint(processor, segment))
}

// Segments lists the segments with a stored checkpoint for a processor, in
// ascending order.
func (s *Store) Segments(processor string) ([]uint32, error) {
	prefix := KeyCheckpointPrefix(processor)
	upper := append(append([]byte(nil), prefix...), 0xff)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var segs []uint32
	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		if len(key) < len(prefix)+4 {
			continue
		}
		segs = append(segs, binary.BigEndian.Uint32(key[len(key)-4:]))
	}
	return segs, it.Error()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
