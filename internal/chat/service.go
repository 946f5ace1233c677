// Package chat routes join, post, query, heartbeat and delete requests
// against the participant registry and the message log, enforcing the
// cross-entity rules between them.
package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"chatrelay/internal/model"
	"chatrelay/internal/store"
)

var validate = validator.New()

// JoinRequest is the body of a join.
type JoinRequest struct {
	Name string `json:"name" validate:"required"`
}

// PostRequest is the body of a posted message. Clients may not post status events.
type PostRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=broadcast_message private_message"`
}

// Service is the gatekeeper between transport requests and the two stores.
type Service struct {
	registry store.ParticipantRegistry
	messages store.MessageStore
}

func NewService(registry store.ParticipantRegistry, messages store.MessageStore) *Service {
	return &Service{registry: registry, messages: messages}
}

// Join registers the participant and announces it.
func (s *Service) Join(ctx context.Context, in JoinRequest) (model.Participant, error) {
	if err := validate.Struct(in); err != nil {
		return model.Participant{}, invalid(err)
	}

	p, err := s.registry.Register(ctx, in.Name)
	if err != nil {
		return model.Participant{}, err
	}
	if _, err := s.messages.Append(ctx, model.StatusEvent(in.Name, model.JoinedText)); err != nil {
		return model.Participant{}, err
	}
	return p, nil
}

func (s *Service) Participants(ctx context.Context) ([]model.Participant, error) {
	return s.registry.List(ctx)
}

// Post stores a message from a present participant. A sender that is not
// present is reported as an invalid argument, like a malformed body.
func (s *Service) Post(ctx context.Context, from string, in PostRequest) (model.Message, error) {
	if err := validate.Struct(in); err != nil {
		return model.Message{}, invalid(err)
	}

	present, err := s.registry.IsPresent(ctx, from)
	if err != nil {
		return model.Message{}, err
	}
	if !present {
		return model.Message{}, fmt.Errorf("%w: sender %q is not present", model.ErrInvalidArgument, from)
	}

	return s.messages.Append(ctx, model.Message{
		From: from,
		To:   in.To,
		Text: in.Text,
		Type: model.MessageType(in.Type),
	})
}

// Messages returns what viewer may read. rawLimit is the unparsed query value;
// empty means no limit. No presence check: a participant who left can still
// read history.
func (s *Service) Messages(ctx context.Context, viewer, rawLimit string) ([]model.Message, error) {
	var limit *int
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: limit %q is not an integer", model.ErrInvalidArgument, rawLimit)
		}
		limit = &n
	}
	return s.messages.QueryVisible(ctx, viewer, limit)
}

func (s *Service) Heartbeat(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: missing identity", model.ErrNotFound)
	}
	return s.registry.Heartbeat(ctx, name)
}

func (s *Service) Delete(ctx context.Context, id, requester string) error {
	return s.messages.DeleteByID(ctx, id, requester)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
}
