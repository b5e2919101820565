package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo manages user conversational state in Redis.
type StateRepo struct {
	client KV
	ttl    time.Duration
}

func NewStateRepo(client KV, ttl time.Duration) *StateRepo {
	return &StateRepo{client: client, ttl: ttl}
}

func (s *StateRepo) stateKey(userID string) string {
	return "conv_state:" + userID
}

func (s *StateRepo) SetState(ctx context.Context, userID string, state *repository.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(userID), data, s.ttl)
}

func (s *StateRepo) GetState(ctx context.Context, userID string) (*repository.ConversationState, error) {
	data, err := s.client.Get(ctx, s.stateKey(userID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var state repository.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *StateRepo) ClearState(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.stateKey(userID))
}
