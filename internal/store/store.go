//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package store

import (
	"context"
	"fmt"
	"time"

	"chatrelay/internal/model"
)

// ParticipantRegistry owns the set of present participants.
type ParticipantRegistry interface {
	// Register adds name with lastSeen = now, or fails with model.ErrConflict.
	Register(ctx context.Context, name string) (model.Participant, error)
	// Heartbeat refreshes lastSeen, or fails with model.ErrNotFound.
	Heartbeat(ctx context.Context, name string) error
	List(ctx context.Context) ([]model.Participant, error)
	IsPresent(ctx context.Context, name string) (bool, error)
	// EvictStaleBefore removes every participant with lastSeen < threshold in one
	// atomic step and returns exactly the removed set.
	EvictStaleBefore(ctx context.Context, threshold time.Time) ([]model.Participant, error)
}

// MessageStore is the ordered message log.
type MessageStore interface {
	// Append assigns ID and Time and stores msg at the end of the log.
	Append(ctx context.Context, msg model.Message) (model.Message, error)
	// QueryVisible returns, in append order, the messages viewer may read.
	// A non-nil limit keeps only the most recent *limit of them.
	QueryVisible(ctx context.Context, viewer string, limit *int) ([]model.Message, error)
	// DeleteByID removes the message if requester authored it.
	DeleteByID(ctx context.Context, id, requester string) error
}

// CheckLimit rejects non-positive limits.
func CheckLimit(limit *int) error {
	if limit != nil && *limit <= 0 {
		return fmt.Errorf("%w: limit must be a positive integer, got %d", model.ErrInvalidArgument, *limit)
	}
	return nil
}

// Tail returns the last *limit elements of s, or s itself when limit is nil.
func Tail[T any](s []T, limit *int) []T {
	if limit == nil || *limit >= len(s) {
		return s
	}
	return s[len(s)-*limit:]
}

// Unavailable wraps a collaborator failure as model.ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrStorageUnavailable, op, err)
}
