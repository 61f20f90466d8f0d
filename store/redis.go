package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis stores the document under one key with no expiry.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis connects to url (redis://host:port/db) and pings it.
func NewRedis(ctx context.Context, url, key string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, unavailable(err, "ping redis")
	}
	return NewRedisClient(rdb, key), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{rdb: rdb, key: key}
}

func (r *Redis) Load(ctx context.Context) (*Document, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable(err, "load redis document")
	}
	d, err := Decode(data)
	if err != nil {
		return nil, unavailable(err, "load redis document")
	}
	return d, nil
}

func (r *Redis) Save(ctx context.Context, d *Document) error {
	payload, err := Encode(d)
	if err != nil {
		return err
	}
	return unavailable(r.rdb.Set(ctx, r.key, payload, 0).Err(), "save redis document")
}

func (r *Redis) Delete(ctx context.Context) error {
	return unavailable(r.rdb.Del(ctx, r.key).Err(), "delete redis document")
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
