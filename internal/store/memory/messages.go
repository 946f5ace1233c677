package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

// MessageStore is an append-ordered slice of messages.
type MessageStore struct {
	clock clock.Clock

	mu  sync.RWMutex
	log []model.Message
}

func NewMessageStore(clk clock.Clock) *MessageStore {
	return &MessageStore{clock: clk}
}

func (s *MessageStore) Append(_ context.Context, msg model.Message) (model.Message, error) {
	msg.ID = uuid.NewString()
	msg.Time = s.clock.Now().Format(clock.DisplayLayout)

	s.mu.Lock()
	s.log = append(s.log, msg)
	s.mu.Unlock()
	return msg, nil
}

func (s *MessageStore) QueryVisible(_ context.Context, viewer string, limit *int) ([]model.Message, error) {
	if err := store.CheckLimit(limit); err != nil {
		return nil, err
	}

	s.mu.RLock()
	visible := lo.Filter(s.log, func(m model.Message, _ int) bool { return m.VisibleTo(viewer) })
	s.mu.RUnlock()

	return store.Tail(visible, limit), nil
}

// DeleteByID checks ownership and removes under one write lock.
func (s *MessageStore) DeleteByID(_ context.Context, id, requester string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.log, func(m model.Message) bool { return m.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: message %q", model.ErrNotFound, id)
	}
	if s.log[i].From != requester {
		return fmt.Errorf("%w: %q is not the author of message %q", model.ErrUnauthorized, requester, id)
	}
	s.log = slices.Delete(s.log, i, i+1)
	return nil
}
