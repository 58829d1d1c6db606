package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/kv"
	"github.com/redis/go-redis/v9"
)

// casLua swaps KEYS[1] to ARGV[2] only if it currently holds ARGV[1].
// ARGV[3] is "1" when the key must be absent instead. ARGV[4] is the TTL in ms, 0 for none.
const casLua = `
local cur = redis.call("GET", KEYS[1])
if ARGV[3] == "1" then
  if cur then return 0 end
else
  if not cur or cur ~= ARGV[1] then return 0 end
end
local ttl = tonumber(ARGV[4])
if ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`

// Store is a kv.Store on Redis. Compare-and-swap runs as a Lua script so it
// is atomic across replicas sharing the instance.
type Store struct {
	rdb    *redis.Client
	script *redis.Script
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

// NewStore wraps an existing client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, script: redis.NewScript(casLua)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	mustBeAbsent := "0"
	if prev == nil {
		mustBeAbsent = "1"
	}
	n, err := s.script.Run(ctx, s.rdb, []string{key}, prev, next, mustBeAbsent, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis cas %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		out[key] = b
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return out, nil
}

var _ kv.Store = (*Store)(nil)
