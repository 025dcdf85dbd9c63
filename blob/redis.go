package blob

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"
)

// Redis stores payloads as plain redis strings under a key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the redis server at addr and checks it answers.
func OpenRedis(addr, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to reach redis at %q: %w", addr, err)
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(name string) string { return r.prefix + name }

func (r *Redis) Get(ctx context.Context, name string) ([]byte, error) {
	v, err := r.client.WithContext(ctx).Get(r.key(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", name, err)
	}
	return v, nil
}

func (r *Redis) Put(ctx context.Context, name string, payload []byte) error {
	if err := r.client.WithContext(ctx).Set(r.key(name), payload, 0).Err(); err != nil {
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, name string) (bool, error) {
	n, err := r.client.WithContext(ctx).Exists(r.key(name)).Result()
	if err != nil {
		return false, fmt.Errorf("could not check %q: %w", name, err)
	}
	return n > 0, nil
}

func (r *Redis) Delete(ctx context.Context, name string) error {
	if err := r.client.WithContext(ctx).Del(r.key(name)).Err(); err != nil {
		return fmt.Errorf("could not delete %q: %w", name, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
