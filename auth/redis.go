package auth

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the session in RedisBackend.
const DefaultRedisKey = "moneymanager:session"

// RedisBackend stores the session as a redis hash, so that several hosts
// can share one login.
type RedisBackend struct {
	Client *redis.Client
	Key    string
}

// NewRedisBackend connects to the redis server at url (redis://...).
func NewRedisBackend(ctx context.Context, url string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cannot parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBackend{Client: client, Key: DefaultRedisKey}, nil
}

func (r *RedisBackend) key() string {
	if r.Key == "" {
		return DefaultRedisKey
	}
	return r.Key
}

func (r *RedisBackend) Load(ctx context.Context) (Session, error) {
	m, err := r.Client.HGetAll(ctx, r.key()).Result()
	if err != nil {
		return Session{}, fmt.Errorf("cannot read session from redis: %w", err)
	}
	return fromMap(m), nil
}

// Save replaces the hash in a single MULTI so that stale fields of a
// previous session cannot survive.
func (r *RedisBackend) Save(ctx context.Context, s Session) error {
	fields := make(map[string]any)
	for k, v := range toMap(s) {
		fields[k] = v
	}
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key())
		pipe.HSet(ctx, r.key(), fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot write session to redis: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context) error {
	if err := r.Client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("cannot delete session from redis: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *RedisBackend) Close() error { return r.Client.Close() }
