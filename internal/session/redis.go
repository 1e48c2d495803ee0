package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-admin-console/config"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

// Ensure implementation satisfies the interface
var _ Persister = (*RedisPersister)(nil)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// RedisPersister stores sessions as JSON under prefix+id with the session TTL.
type RedisPersister struct {
	client redis.Cmdable
	prefix string
}

func NewRedisPersister(client redis.Cmdable, prefix string) *RedisPersister {
	if prefix == "" {
		prefix = "console:session:"
	}
	return &RedisPersister{client: client, prefix: prefix}
}

func (p *RedisPersister) key(id string) string { return p.prefix + id }

func (p *RedisPersister) Load(ctx context.Context, id string) (*contracts.Session, error) {
	b, err := p.client.Get(ctx, p.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	var s contracts.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}

func (p *RedisPersister) Save(ctx context.Context, id string, s *contracts.Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := p.client.Set(ctx, p.key(id), b, ttl).Err(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, id string) error {
	if err := p.client.Del(ctx, p.key(id)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
