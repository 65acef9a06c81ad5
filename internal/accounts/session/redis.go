package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a hash with a TTL equal to the idle
// timeout. Any access pushes the TTL out again.
type RedisStore struct {
	client      redis.UniversalClient
	prefix      string
	idleTimeout time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, idleTimeout time.Duration) *RedisStore {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if prefix == "" {
		prefix = "accounts:session:"
	}
	return &RedisStore{client: client, prefix: prefix, idleTimeout: idleTimeout}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Get(ctx context.Context, id, key string) (string, bool, error) {
	var get *redis.StringCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.HGet(ctx, s.key(id), key)
		p.Expire(ctx, s.key(id), s.idleTimeout)
		return nil
	})
	return stringResult(get, err)
}

func (s *RedisStore) Set(ctx context.Context, id, key, value string) error {
	if id == "" {
		return ErrInvalidID
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.key(id), key, value)
		p.Expire(ctx, s.key(id), s.idleTimeout)
		return nil
	})
	return err
}

func (s *RedisStore) Remove(ctx context.Context, id, key string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, s.key(id), key)
		p.Expire(ctx, s.key(id), s.idleTimeout)
		return nil
	})
	return err
}

// Take runs HGET and HDEL in one MULTI/EXEC block.
func (s *RedisStore) Take(ctx context.Context, id, key string) (string, bool, error) {
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.HGet(ctx, s.key(id), key)
		p.HDel(ctx, s.key(id), key)
		p.Expire(ctx, s.key(id), s.idleTimeout)
		return nil
	})
	return stringResult(get, err)
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

// stringResult folds a missing field (redis.Nil) into "not found". A
// pipeline reports redis.Nil as its error when any command hit it.
func stringResult(cmd *redis.StringCmd, pipeErr error) (string, bool, error) {
	if pipeErr != nil && !errors.Is(pipeErr, redis.Nil) {
		return "", false, pipeErr
	}
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
