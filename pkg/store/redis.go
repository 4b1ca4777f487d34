package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	ConnectionURL  string        `env:"ALYTICA_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"ALYTICA_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"ALYTICA_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"ALYTICA_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	KeyPrefix      string        `env:"ALYTICA_REDIS_KEY_PREFIX" envDefault:"alytica:"`
}

// ConnectRedis connects to Redis, retrying up to cfg.RetryAttempts times.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyRedisURL
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrRedisURL, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrRedisNotReady, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}

		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

const (
	lockTTL          = 5 * time.Second
	lockPollInterval = 10 * time.Millisecond
)

// releaseLock deletes the lock only if it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBackend stores values in Redis. It lets several processes share
// identity records, much like tabs share a browser's cookie jar.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend wraps client. Keys are namespaced with prefix.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Read(ctx context.Context, key string) (string, error) {
	val, err := b.client.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (b *RedisBackend) Write(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, b.prefix+key, value, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.prefix+key).Err()
}

// Lock acquires a short-lived advisory lock with SET NX PX and polls until
// it succeeds or ctx is done. The lock expires on its own if the holder dies.
func (b *RedisBackend) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := b.prefix + key + ":lock"
	token := newLockToken()

	for {
		ok, err := b.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Use a fresh context: the caller's may already be canceled.
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseLock.Run(ctx, b.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTaken, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Healthcheck returns a function that pings Redis.
func (b *RedisBackend) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := b.client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrRedisNotReady, err)
		}
		return nil
	}
}

func newLockToken() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
