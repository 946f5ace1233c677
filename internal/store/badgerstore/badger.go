// Package badgerstore persists participants and messages in an embedded BadgerDB.
//
// Every mutation runs in a single read-write transaction. Badger detects
// read/write conflicts between concurrent transactions at commit time; the
// loser is retried from scratch, so register, heartbeat, evict and delete
// behave as if serialized.
package badgerstore

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

const maxConflictRetries = 16

var (
	participantPrefix = []byte("participant/")
	messagePrefix     = []byte("message/")
	messageIDPrefix   = []byte("message-id/")
	messageSeqKey     = []byte("seq/message")
)

// Open opens (or creates) the database at path.
func Open(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, store.Unavailable("open badger", err)
	}
	return db, nil
}

// update runs fn in a read-write transaction, retrying on commit conflicts.
// Errors from the model taxonomy pass through; anything else is reported as
// storage unavailability.
func update(db *badger.DB, op string, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	return classify(op, err)
}

func view(db *badger.DB, op string, fn func(txn *badger.Txn) error) error {
	return classify(op, db.View(fn))
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrUnauthorized),
		errors.Is(err, model.ErrInvalidArgument):
		return err
	default:
		return store.Unavailable(op, err)
	}
}

func key(prefix []byte, suffix string) []byte {
	k := make([]byte, 0, len(prefix)+len(suffix))
	k = append(k, prefix...)
	return append(k, suffix...)
}
