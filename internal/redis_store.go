package internal

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "authfetch"

// RedisStore shares one session between several gateway replicas.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ SessionStore = (*RedisStore)(nil)

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (rs *RedisStore) key(slot Slot) string {
	return rs.prefix + ":" + string(slot)
}

func (rs *RedisStore) Get(ctx context.Context, slot Slot) (string, error) {
	value, err := rs.rdb.Get(ctx, rs.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", slot)
	}
	return value, nil
}

func (rs *RedisStore) Set(ctx context.Context, slot Slot, value string) error {
	if value == "" {
		if err := rs.rdb.Del(ctx, rs.key(slot)).Err(); err != nil {
			return errors.Wrapf(err, "failed to delete %s", slot)
		}
		return nil
	}
	if err := rs.rdb.Set(ctx, rs.key(slot), value, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to write %s", slot)
	}
	return nil
}

func (rs *RedisStore) Clear(ctx context.Context) error {
	if err := rs.rdb.Del(ctx, rs.key(AccessSlot), rs.key(RefreshSlot)).Err(); err != nil {
		return errors.Wrap(err, "failed to clear credentials")
	}
	return nil
}

func (rs *RedisStore) Close() error {
	return rs.rdb.Close()
}

func (rs *RedisStore) Check() *PingCheck {
	return &PingCheck{
		name: "session-redis",
		ping: func(ctx context.Context) error { return rs.rdb.Ping(ctx).Err() },
	}
}
