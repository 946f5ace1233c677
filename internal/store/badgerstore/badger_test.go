package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestMessageStore(t *testing.T, db *badger.DB, clk clock.Clock) *MessageStore {
	t.Helper()
	s, err := NewMessageStore(db, clk)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegistry_RegisterHeartbeatEvict(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	r := NewRegistry(openTestDB(t), clk)

	_, err := r.Register(ctx, "Bob")
	req.NoError(err)
	_, err = r.Register(ctx, "Bob")
	req.ErrorIs(err, model.ErrConflict)

	clk.Advance(6 * time.Second)
	_, err = r.Register(ctx, "Alice")
	req.NoError(err)
	clk.Advance(5 * time.Second)
	req.NoError(r.Heartbeat(ctx, "Alice"))
	req.ErrorIs(r.Heartbeat(ctx, "Ghost"), model.ErrNotFound)

	evicted, err := r.EvictStaleBefore(ctx, clk.Now().Add(-10*time.Second))
	req.NoError(err)
	req.Equal([]model.Participant{{Name: "Bob", LastSeen: epoch}}, evicted)

	list, err := r.List(ctx)
	req.NoError(err)
	req.Equal([]model.Participant{{Name: "Alice", LastSeen: epoch.Add(11 * time.Second)}}, list)

	present, err := r.IsPresent(ctx, "Bob")
	req.NoError(err)
	req.False(present)
	req.ErrorIs(r.Heartbeat(ctx, "Bob"), model.ErrNotFound)
}

func TestRegistry_ConcurrentRegisterSameName(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	r := NewRegistry(openTestDB(t), clock.Real{})

	var ok, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Register(ctx, "Alice")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	req.EqualValues(1, ok.Load())
	req.EqualValues(9, conflicts.Load())
}

func TestMessageStore_VisibilityAndLimit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestMessageStore(t, openTestDB(t), clock.NewManual(epoch))

	for i := 1; i <= 5; i++ {
		_, err := s.Append(ctx, model.Message{From: "Alice", To: model.BroadcastTarget, Text: fmt.Sprintf("m%d", i), Type: model.TypeBroadcast})
		req.NoError(err)
	}
	_, err := s.Append(ctx, model.Message{From: "Alice", To: "Bob", Text: "secret", Type: model.TypePrivate})
	req.NoError(err)

	carol, err := s.QueryVisible(ctx, "Carol", lo.ToPtr(2))
	req.NoError(err)
	req.Equal([]string{"m4", "m5"}, lo.Map(carol, func(m model.Message, _ int) string { return m.Text }))

	bob, err := s.QueryVisible(ctx, "Bob", nil)
	req.NoError(err)
	req.Len(bob, 6)
	req.Equal("secret", bob[5].Text)
	req.Equal("09:00:00", bob[5].Time)

	_, err = s.QueryVisible(ctx, "Bob", lo.ToPtr(-1))
	req.ErrorIs(err, model.ErrInvalidArgument)
}

func TestMessageStore_DeleteByID(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestMessageStore(t, openTestDB(t), clock.NewManual(epoch))

	msg, err := s.Append(ctx, model.Message{From: "Alice", To: model.BroadcastTarget, Text: "oops", Type: model.TypeBroadcast})
	req.NoError(err)

	req.ErrorIs(s.DeleteByID(ctx, msg.ID, "Bob"), model.ErrUnauthorized)
	req.ErrorIs(s.DeleteByID(ctx, "missing", "Alice"), model.ErrNotFound)
	req.NoError(s.DeleteByID(ctx, msg.ID, "Alice"))
	req.ErrorIs(s.DeleteByID(ctx, msg.ID, "Alice"), model.ErrNotFound)

	left, err := s.QueryVisible(ctx, "Alice", nil)
	req.NoError(err)
	req.Empty(left)
}

func TestMessageStore_SurvivesReopen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(dir)
	req.NoError(err)
	s, err := NewMessageStore(db, clock.NewManual(epoch))
	req.NoError(err)
	_, err = s.Append(ctx, model.Message{From: "Alice", To: model.BroadcastTarget, Text: "first", Type: model.TypeBroadcast})
	req.NoError(err)
	req.NoError(s.Close())
	req.NoError(db.Close())

	db, err = Open(dir)
	req.NoError(err)
	defer db.Close()
	s, err = NewMessageStore(db, clock.NewManual(epoch))
	req.NoError(err)
	defer s.Close()
	_, err = s.Append(ctx, model.Message{From: "Alice", To: model.BroadcastTarget, Text: "second", Type: model.TypeBroadcast})
	req.NoError(err)

	all, err := s.QueryVisible(ctx, "Alice", nil)
	req.NoError(err)
	req.Equal([]string{"first", "second"}, lo.Map(all, func(m model.Message, _ int) string { return m.Text }))
}
