package target

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"echoburst/internal/runner"
)

const personKeyPrefix = "person:"

// RedisStore keeps each person in a hash keyed by email.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects and pings.
func OpenRedis(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 200,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) AddPerson(ctx context.Context, p runner.Record) (runner.Record, error) {
	if p.Email == "" {
		return runner.Record{}, ErrInvalidPerson
	}
	key := personKeyPrefix + p.Email

	var get *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"firstName", p.FirstName,
			"lastName", p.LastName,
			"email", p.Email,
		)
		get = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return runner.Record{}, fmt.Errorf("store person: %w", err)
	}

	fields := get.Val()
	return runner.Record{
		FirstName: fields["firstName"],
		LastName:  fields["lastName"],
		Email:     fields["email"],
	}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
