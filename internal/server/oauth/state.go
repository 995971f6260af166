package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/redis/go-redis/v9"
)

// StateTTL bounds how long a user may take on the consent screen.
const StateTTL = 10 * time.Minute

const stateKeyPrefix = "oauth:state:"

// StateStore keeps issued state values until they come back on the
// callback. Consume succeeds at most once per value and returns
// common.ErrInvalidOAuthState for unknown, expired or reused values.
type StateStore interface {
	Save(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) error
}

// NewState returns a random state value.
func NewState() (string, error) {
	return common.MakeRandHexString(16)
}

type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Save(ctx context.Context, state string) error {
	if err := s.client.Set(ctx, stateKeyPrefix+state, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return common.ErrInvalidOAuthState
	}
	err := s.client.GetDel(ctx, stateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return common.ErrInvalidOAuthState
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}

// MemoryStateStore is a single-process StateStore used when Redis is not
// configured.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Save(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.states[state]
	if !ok {
		return common.ErrInvalidOAuthState
	}
	delete(s.states, state)
	if s.now().After(exp) {
		return common.ErrInvalidOAuthState
	}
	return nil
}
