package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
)

// Registry stores participant/<name> → lastSeen (unix nanos, big endian).
type Registry struct {
	db    *badger.DB
	clock clock.Clock
}

func NewRegistry(db *badger.DB, clk clock.Clock) *Registry {
	return &Registry{db: db, clock: clk}
}

func encodeSeen(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func decodeSeen(b []byte) (time.Time, error) {
	if len(b) != 8 {
		return time.Time{}, fmt.Errorf("corrupt lastSeen value of %d bytes", len(b))
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b))).UTC(), nil
}

func (r *Registry) Register(_ context.Context, name string) (model.Participant, error) {
	var p model.Participant
	err := update(r.db, "register", func(txn *badger.Txn) error {
		k := key(participantPrefix, name)
		_, err := txn.Get(k)
		switch {
		case err == nil:
			return fmt.Errorf("%w: participant %q already present", model.ErrConflict, name)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		now := r.clock.Now().UTC()
		p = model.Participant{Name: name, LastSeen: now}
		return txn.Set(k, encodeSeen(now))
	})
	if err != nil {
		return model.Participant{}, err
	}
	return p, nil
}

func (r *Registry) Heartbeat(_ context.Context, name string) error {
	return update(r.db, "heartbeat", func(txn *badger.Txn) error {
		k := key(participantPrefix, name)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: participant %q", model.ErrNotFound, name)
			}
			return err
		}
		return txn.Set(k, encodeSeen(r.clock.Now()))
	})
}

func (r *Registry) List(_ context.Context) ([]model.Participant, error) {
	list := []model.Participant{}
	err := view(r.db, "list participants", func(txn *badger.Txn) error {
		var err error
		list, err = scanParticipants(txn)
		return err
	})
	return list, err
}

func (r *Registry) IsPresent(_ context.Context, name string) (bool, error) {
	var present bool
	err := view(r.db, "is present", func(txn *badger.Txn) error {
		_, err := txn.Get(key(participantPrefix, name))
		switch {
		case err == nil:
			present = true
		case errors.Is(err, badger.ErrKeyNotFound):
			present = false
		default:
			return err
		}
		return nil
	})
	return present, err
}

// EvictStaleBefore scans and deletes inside one transaction. A heartbeat that
// commits in between makes this commit conflict; the retry then sees it.
func (r *Registry) EvictStaleBefore(_ context.Context, threshold time.Time) ([]model.Participant, error) {
	var evicted []model.Participant
	err := update(r.db, "evict", func(txn *badger.Txn) error {
		evicted = nil
		all, err := scanParticipants(txn)
		if err != nil {
			return err
		}
		for _, p := range all {
			if !p.LastSeen.Before(threshold) {
				continue
			}
			if err := txn.Delete(key(participantPrefix, p.Name)); err != nil {
				return err
			}
			evicted = append(evicted, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func scanParticipants(txn *badger.Txn) ([]model.Participant, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = participantPrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	list := []model.Participant{}
	for it.Seek(participantPrefix); it.ValidForPrefix(participantPrefix); it.Next() {
		item := it.Item()
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		seen, err := decodeSeen(raw)
		if err != nil {
			return nil, err
		}
		name := string(item.Key()[len(participantPrefix):])
		list = append(list, model.Participant{Name: name, LastSeen: seen})
	}
	return list, nil
}
