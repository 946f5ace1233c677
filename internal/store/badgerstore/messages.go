package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

// MessageStore keeps messages under message/<seq> so that key order is append
// order, plus a message-id/<id> → message/<seq> index for deletes.
type MessageStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	clock clock.Clock
}

func NewMessageStore(db *badger.DB, clk clock.Clock) (*MessageStore, error) {
	seq, err := db.GetSequence(messageSeqKey, 100)
	if err != nil {
		return nil, store.Unavailable("message sequence", err)
	}
	return &MessageStore{db: db, seq: seq, clock: clk}, nil
}

// Close returns unused sequence numbers. It does not close the database.
func (s *MessageStore) Close() error {
	return s.seq.Release()
}

func messageKey(seq uint64) []byte {
	return key(messagePrefix, fmt.Sprintf("%020d", seq))
}

func (s *MessageStore) Append(_ context.Context, msg model.Message) (model.Message, error) {
	n, err := s.seq.Next()
	if err != nil {
		return model.Message{}, store.Unavailable("append", err)
	}
	msg.ID = uuid.NewString()
	msg.Time = s.clock.Now().Format(clock.DisplayLayout)

	raw, err := json.Marshal(msg)
	if err != nil {
		return model.Message{}, store.Unavailable("append", err)
	}
	mk := messageKey(n)
	err = update(s.db, "append", func(txn *badger.Txn) error {
		if err := txn.Set(mk, raw); err != nil {
			return err
		}
		return txn.Set(key(messageIDPrefix, msg.ID), mk)
	})
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// QueryVisible walks the log newest first so a limit can stop early, then
// restores append order.
func (s *MessageStore) QueryVisible(_ context.Context, viewer string, limit *int) ([]model.Message, error) {
	if err := store.CheckLimit(limit); err != nil {
		return nil, err
	}

	visible := []model.Message{}
	err := view(s.db, "query messages", func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = messagePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(key(messagePrefix, "~")); it.ValidForPrefix(messagePrefix); it.Next() {
			if limit != nil && len(visible) == *limit {
				break
			}
			var msg model.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return err
			}
			if msg.VisibleTo(viewer) {
				visible = append(visible, msg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(visible)
	return visible, nil
}

func (s *MessageStore) DeleteByID(_ context.Context, id, requester string) error {
	return update(s.db, "delete message", func(txn *badger.Txn) error {
		idKey := key(messageIDPrefix, id)
		item, err := txn.Get(idKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: message %q", model.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		mk, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(mk)
		if err != nil {
			return err
		}
		var msg model.Message
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &msg) }); err != nil {
			return err
		}
		if msg.From != requester {
			return fmt.Errorf("%w: %q is not the author of message %q", model.ErrUnauthorized, requester, id)
		}
		if err := txn.Delete(mk); err != nil {
			return err
		}
		return txn.Delete(idKey)
	})
}
