package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// compare-and-set scripts, the value is the lease holder token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// SetIfAbsent stores value under key only when the key does not exist.
func (s *Store) SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// ExpireIfOwner extends the ttl of key when it still holds value.
func (s *Store) ExpireIfOwner(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, s.client, []string{key}, value, ttl.Milliseconds()).Int64()
	return n == 1, err
}

// DeleteIfOwner removes key when it still holds value.
func (s *Store) DeleteIfOwner(ctx context.Context, key string, value string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, value).Int64()
	return n == 1, err
}
