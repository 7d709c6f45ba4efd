package prefstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces preference hashes in a shared redis.
const DefaultRedisPrefix = "deeptrace:prefs"

const updatedAtSuffix = ":updated_at"

// RedisStore keeps one origin's preferences in a redis hash, so several
// dashboard instances behind one origin share them.
type RedisStore struct {
	client  redis.UniversalClient
	hash    string
	timeout time.Duration
	owned   bool
}

// NewRedisStore connects to the redis described by opts.
func NewRedisStore(opts Options, origin Origin) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	s := NewRedisStoreWithClient(client, opts.RedisPrefix, origin)
	if opts.RedisTimeout > 0 {
		s.timeout = opts.RedisTimeout
	}
	s.owned = true
	return s
}

// NewRedisStoreWithClient uses an existing client. The client is not closed
// by Close.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, origin Origin) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client:  client,
		hash:    prefix + ":" + origin.Key(),
		timeout: 2 * time.Second,
	}
}

// Hash returns the redis key holding this origin's preferences.
func (r *RedisStore) Hash() string {
	return r.hash
}

// Get returns the value for key.
func (r *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", key, err)
	}
	return v, true, nil
}

// Entry returns the value for key with its write time.
func (r *RedisStore) Entry(key string) (Entry, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	vals, err := r.client.HMGet(ctx, r.hash, key, key+updatedAtSuffix).Result()
	if err != nil {
		return Entry{}, false, unavailable("get", key, err)
	}
	value, ok := vals[0].(string)
	if !ok {
		return Entry{}, false, nil
	}

	e := Entry{Value: value}
	if ts, ok := vals[1].(string); ok {
		if unix, err := strconv.ParseInt(ts, 10, 64); err == nil {
			e.UpdatedAt = time.Unix(unix, 0)
		}
	}
	return e, true, nil
}

// Set stores value under key.
func (r *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.client.HSet(ctx, r.hash,
		key, value,
		key+updatedAtSuffix, strconv.FormatInt(time.Now().Unix(), 10),
	).Err()
	if err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Clear deletes key.
func (r *RedisStore) Clear(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.HDel(ctx, r.hash, key, key+updatedAtSuffix).Err(); err != nil {
		return unavailable("clear", key, err)
	}
	return nil
}

// Close releases the client if this store created it.
func (r *RedisStore) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
