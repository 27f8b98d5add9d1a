package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// removeBatch bounds the number of keys sent in a single DEL.
const removeBatch = 500

// Redis is a Backend on top of a Redis server. Unlike an in-process store
// it survives restarts of every cache process and can be shared, though the
// cache itself does no cross-process coordination.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key on the wire and stripped again by
	// ListKeys, so several applications can share one database.
	Prefix string
}

// NewRedis creates a Redis-backed Backend. The connection is established
// lazily; use Ping to verify reachability.
func NewRedis(opts RedisOptions) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Redis{rdb: rdb, prefix: opts.Prefix}
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set stores val without a Redis-side expiry; validity is decided by the
// cache when the entry is read back.
func (r *Redis) Set(ctx context.Context, key string, val []byte) error {
	return r.rdb.Set(ctx, r.prefix+key, val, 0).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}

// ListKeys walks the keyspace with SCAN so large databases are not blocked.
func (r *Redis) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *Redis) RemoveMany(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += removeBatch {
		end := min(start+removeBatch, len(keys))
		wire := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			wire = append(wire, r.prefix+k)
		}
		if err := r.rdb.Del(ctx, wire...).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
