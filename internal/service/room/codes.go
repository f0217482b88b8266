package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore reserves room codes so two rooms never share one, including
// across server instances when backed by redis.
type CodeStore interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Touch(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}

type memoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]struct{}
}

func NewMemoryCodeStore() CodeStore {
	return &memoryCodeStore{codes: make(map[string]struct{})}
}

func (m *memoryCodeStore) Reserve(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code]; ok {
		return false, nil
	}
	m.codes[code] = struct{}{}
	return true, nil
}

func (m *memoryCodeStore) Touch(ctx context.Context, code string) error {
	return nil
}

func (m *memoryCodeStore) Release(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, code)
	return nil
}

type redisCodeStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCodeStore keeps reservations as expiring keys; live rooms refresh
// them through Touch.
func NewRedisCodeStore(rdb *redis.Client, ttl time.Duration) CodeStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &redisCodeStore{rdb: rdb, ttl: ttl}
}

func (s *redisCodeStore) Reserve(ctx context.Context, code string) (bool, error) {
	return s.rdb.SetNX(ctx, buildCodeKey(code), time.Now().Unix(), s.ttl).Result()
}

func (s *redisCodeStore) Touch(ctx context.Context, code string) error {
	return s.rdb.Expire(ctx, buildCodeKey(code), s.ttl).Err()
}

func (s *redisCodeStore) Release(ctx context.Context, code string) error {
	err := s.rdb.Del(ctx, buildCodeKey(code)).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func buildCodeKey(code string) string {
	return fmt.Sprintf("room:code:%s", code)
}
