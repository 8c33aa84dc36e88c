// ABOUTME: Redis implementation of the window store using go-redis
// ABOUTME: Windows are redis lists maintained with LPUSH/LTRIM and read with LRANGE

package window

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// pushIfAbsentScript pushes ARGV[1] to the front of KEYS[1] and trims the
// list to ARGV[2] entries unless the value is already in the list.
var pushIfAbsentScript = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
for _, v in ipairs(items) do
	if v == ARGV[1] then
		return 0
	end
end
redis.call('LPUSH', KEYS[1], ARGV[1])
local size = tonumber(ARGV[2])
if size > 0 then
	redis.call('LTRIM', KEYS[1], 0, size - 1)
end
return 1
`)

// RedisOptions holds connection parameters for NewRedisStore.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore implements Store and AtomicStore against a redis server.
// The underlying client is a connection pool safe for concurrent use.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a store with its own client. No connection is made
// until the first command; call Ping to verify connectivity.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	return NewRedisStoreFromClient(client)
}

// NewRedisStoreFromClient wraps an existing client. The store takes
// ownership and closes the client in Close.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	logger := slog.Default().With("component", "window-redis")
	logger.Debug("redis window store initialized",
		"addr", client.Options().Addr,
		"db", client.Options().DB)
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

// Fetch returns the whole list at key via LRANGE key 0 -1.
func (s *RedisStore) Fetch(ctx context.Context, key string) ([]string, error) {
	items, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lrange %s: %v", ErrUnavailable, key, err)
	}
	return items, nil
}

// Push prepends value via LPUSH.
func (s *RedisStore) Push(ctx context.Context, key, value string) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Trim keeps indices [0, size-1] via LTRIM. A non-positive size is a no-op
// because LTRIM key 0 -1 would keep the whole list anyway.
func (s *RedisStore) Trim(ctx context.Context, key string, size int) error {
	if size <= 0 {
		return nil
	}
	if err := s.client.LTrim(ctx, key, 0, int64(size-1)).Err(); err != nil {
		return fmt.Errorf("%w: ltrim %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// PushIfAbsent runs the membership test, push and trim as one Lua script,
// which redis executes without interleaving other commands.
func (s *RedisStore) PushIfAbsent(ctx context.Context, key, value string, size int) (bool, error) {
	pushed, err := pushIfAbsentScript.Run(ctx, s.client, []string{key}, value, size).Int()
	if err != nil {
		return false, fmt.Errorf("%w: push-if-absent %s: %v", ErrUnavailable, key, err)
	}
	return pushed == 1, nil
}

// Ping sends PING to the server.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the client and its connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
