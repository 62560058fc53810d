package snapshot

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// RedisStore keeps snapshots in Redis: one key per snapshot plus a key
// holding the ID of the latest one.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at url and verifies the
// connection.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis")
	}
	return NewRedisStoreFromClient(client, prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pkgcheck:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string { return s.prefix + "snapshot:" + id }
func (s *RedisStore) latestKey() string    { return s.prefix + "snapshot:" + LatestFile }

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validateID(snap.ID); err != nil {
		return err
	}
	data, err := Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(snap.ID), data, 0)
		pipe.Set(ctx, s.latestKey(), snap.ID, 0)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save snapshot %s", snap.ID)
	}
	return nil
}

func (s *RedisStore) Latest(ctx context.Context) (*Snapshot, error) {
	id, err := s.client.Get(ctx, s.latestKey()).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, notFound(LatestFile)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read latest pointer")
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read snapshot %s", id)
	}
	return Unmarshal(data)
}

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
