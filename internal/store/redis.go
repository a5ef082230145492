package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisNamespace = "rendezvous"

// RedisStore keeps entries as plain string keys and mirrors their names in a
// sorted set scored 0, so prefix listing is a lexicographic range query.
// Both writes run as Lua scripts to keep the entry and the index in step.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// createScript: KEYS[1] entry, KEYS[2] index; ARGV[1] value, ARGV[2] name.
var createScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
	redis.call("ZADD", KEYS[2], 0, ARGV[2])
	return 1
end
return 0
`)

// renameScript: KEYS[1] old entry, KEYS[2] new entry, KEYS[3] index;
// ARGV[1] old name, ARGV[2] new name.
var renameScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
	redis.call("DEL", KEYS[1])
	redis.call("ZREM", KEYS[3], ARGV[1])
	return 0
end
redis.call("RENAME", KEYS[1], KEYS[2])
redis.call("ZREM", KEYS[3], ARGV[1])
redis.call("ZADD", KEYS[3], 0, ARGV[2])
return 1
`)

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, namespace: defaultRedisNamespace}, nil
}

// Client exposes the underlying connection, shared with the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// entryKey returns the Redis key holding the value of key.
func (s *RedisStore) entryKey(key string) string {
	return fmt.Sprintf("%s:entry:%s", s.namespace, key)
}

// indexKey returns the key of the sorted set listing every entry name.
func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:index", s.namespace)
}

func (s *RedisStore) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	n, err := createScript.Run(ctx, s.client,
		[]string{s.entryKey(key), s.indexKey()},
		value, key,
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) RenameIfExists(ctx context.Context, oldKey, newKey string) (bool, error) {
	if err := validateKey(oldKey); err != nil {
		return false, err
	}
	if err := validateKey(newKey); err != nil {
		return false, err
	}
	n, err := renameScript.Run(ctx, s.client,
		[]string{s.entryKey(oldKey), s.entryKey(newKey), s.indexKey()},
		oldKey, newKey,
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	lo, hi := "-", "+"
	if prefix != "" {
		lo = "[" + prefix
		hi = "(" + prefix + "\xff"
	}
	return s.client.ZRangeByLex(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: lo,
		Max: hi,
	}).Result()
}
