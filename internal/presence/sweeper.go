// Package presence evicts participants that stopped sending heartbeats.
package presence

import (
	"context"
	"log"
	"time"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

// Sweeper periodically removes participants whose last heartbeat is older
// than ttl and announces each departure in the message log.
type Sweeper struct {
	registry store.ParticipantRegistry
	messages store.MessageStore
	clock    clock.Clock
	interval time.Duration
	ttl      time.Duration
}

func NewSweeper(
	registry store.ParticipantRegistry,
	messages store.MessageStore,
	clk clock.Clock,
	interval, ttl time.Duration,
) *Sweeper {
	return &Sweeper{
		registry: registry,
		messages: messages,
		clock:    clk,
		interval: interval,
		ttl:      ttl,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Printf("[Sweeper] Started: interval=%s ttl=%s", s.interval, s.ttl)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Sweeper] Stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one eviction pass and returns the evicted participants.
// Departure events are appended from the eviction result itself, so each
// evicted participant gets at most one "left" message. Storage failures are
// logged and the next tick tries again.
func (s *Sweeper) Sweep(ctx context.Context) []model.Participant {
	threshold := s.clock.Now().Add(-s.ttl)

	evicted, err := s.registry.EvictStaleBefore(ctx, threshold)
	if err != nil {
		log.Printf("[Sweeper] ❌ Eviction failed: %v", err)
		return nil
	}

	for _, p := range evicted {
		if _, err := s.messages.Append(ctx, model.StatusEvent(p.Name, model.LeftText)); err != nil {
			log.Printf("[Sweeper] ❌ Failed to record departure of %q: %v", p.Name, err)
			continue
		}
		log.Printf("[Sweeper] 👋 Evicted %q (last seen %s)", p.Name, p.LastSeen.Format(time.RFC3339))
	}
	return evicted
}
