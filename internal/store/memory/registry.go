// Package memory keeps participants and messages in process memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"chatrelay/internal/clock"
	"chatrelay/internal/model"
)

// Registry is a mutex-guarded name→lastSeen map.
type Registry struct {
	clock clock.Clock

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewRegistry(clk clock.Clock) *Registry {
	return &Registry{
		clock:    clk,
		lastSeen: make(map[string]time.Time),
	}
}

func (r *Registry) Register(_ context.Context, name string) (model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lastSeen[name]; ok {
		return model.Participant{}, fmt.Errorf("%w: participant %q already present", model.ErrConflict, name)
	}
	now := r.clock.Now()
	r.lastSeen[name] = now
	return model.Participant{Name: name, LastSeen: now}, nil
}

func (r *Registry) Heartbeat(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lastSeen[name]; !ok {
		return fmt.Errorf("%w: participant %q", model.ErrNotFound, name)
	}
	r.lastSeen[name] = r.clock.Now()
	return nil
}

func (r *Registry) List(_ context.Context) ([]model.Participant, error) {
	r.mu.Lock()
	list := lo.MapToSlice(r.lastSeen, func(name string, seen time.Time) model.Participant {
		return model.Participant{Name: name, LastSeen: seen}
	})
	r.mu.Unlock()

	slices.SortFunc(list, func(a, b model.Participant) int { return strings.Compare(a.Name, b.Name) })
	return list, nil
}

func (r *Registry) IsPresent(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.lastSeen[name]
	return ok, nil
}

// EvictStaleBefore scans and deletes under the same lock hold.
func (r *Registry) EvictStaleBefore(_ context.Context, threshold time.Time) ([]model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []model.Participant
	for name, seen := range r.lastSeen {
		if seen.Before(threshold) {
			evicted = append(evicted, model.Participant{Name: name, LastSeen: seen})
			delete(r.lastSeen, name)
		}
	}
	return evicted, nil
}
