package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatementStore holds serialised statements. Invalidate drops every entry at
// once; it is called after any ledger mutation commits.
//
// Get reports the generation it read under, hit or miss. Set only stores a
// value while that generation is still current, so a statement built from
// reads that raced an invalidation is never cached.
type StatementStore interface {
	Get(ctx context.Context, key string) (value []byte, gen string, ok bool)
	Set(ctx context.Context, key, gen string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context)
}

func StatementKey(scope string, id int64) string {
	return NormalizeScope(scope) + ":" + strconv.FormatInt(id, 10)
}

type memoryStatementStore struct {
	mu         sync.Mutex
	generation uint64
	items      Cache[string, []byte]
}

func NewMemoryStatementStore() StatementStore {
	return &memoryStatementStore{items: NewTTLCache[string, []byte]()}
}

func (s *memoryStatementStore) Get(_ context.Context, key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := strconv.FormatUint(s.generation, 10)
	value, ok := s.items.Get(gen + "|" + key)
	return value, gen, ok
}

func (s *memoryStatementStore) Set(_ context.Context, key, gen string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != strconv.FormatUint(s.generation, 10) {
		return
	}
	s.items.Set(gen+"|"+key, value, ttl)
}

func (s *memoryStatementStore) Invalidate(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.items.Purge()
}

const (
	redisStatementPrefix = "schoolbilling:statement:"
	redisGenerationKey   = redisStatementPrefix + "generation"
)

// redisStatementStore shares cached statements across replicas. Entries are
// namespaced by a generation counter so invalidation is a single INCR.
type redisStatementStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStatementStore(client *redis.Client, log *zap.Logger) StatementStore {
	return &redisStatementStore{client: client, log: log.Named("statement.cache")}
}

func (s *redisStatementStore) generation(ctx context.Context) (string, error) {
	gen, err := s.client.Get(ctx, redisGenerationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (s *redisStatementStore) Get(ctx context.Context, key string) ([]byte, string, bool) {
	gen, err := s.generation(ctx)
	if err != nil {
		s.log.Warn("statement cache generation lookup failed", zap.Error(err))
		return nil, "", false
	}
	value, err := s.client.Get(ctx, redisStatementPrefix+gen+":"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("statement cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, gen, false
	}
	return value, gen, true
}

// Set writes under the caller's generation. An INCR landing between the
// check and the write leaves the value in a namespace no reader uses.
func (s *redisStatementStore) Set(ctx context.Context, key, gen string, value []byte, ttl time.Duration) {
	if gen == "" {
		return
	}
	current, err := s.generation(ctx)
	if err != nil || current != gen {
		return
	}
	if err := s.client.Set(ctx, redisStatementPrefix+gen+":"+key, value, ttl).Err(); err != nil {
		s.log.Warn("statement cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *redisStatementStore) Invalidate(ctx context.Context) {
	if err := s.client.Incr(ctx, redisGenerationKey).Err(); err != nil {
		s.log.Error("statement cache invalidation failed", zap.Error(err))
	}
}

// NormalizeScope keeps cache keys stable regardless of caller casing.
func NormalizeScope(scope string) string {
	return strings.ToLower(strings.TrimSpace(scope))
}
