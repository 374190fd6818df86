package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/domain"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

// RedisCache holds the flights list served by GET /flights.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(client *redis.Client, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, flightsTTL: flightsTTL}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// RedisProcessedStore remembers which events a consumer already handled. A key
// holds processedLease while a handler runs and processedDone once it succeeded.
type RedisProcessedStore struct {
	client *redis.Client
	lease  time.Duration
	ttl    time.Duration
}

const (
	processedLease = "lease"
	processedDone  = "done"
)

func NewRedisProcessedStore(client *redis.Client, lease, ttl time.Duration) *RedisProcessedStore {
	return &RedisProcessedStore{client: client, lease: lease, ttl: ttl}
}

func (s *RedisProcessedStore) Done(ctx context.Context, consumer, eventID string) (bool, error) {
	v, err := s.client.Get(ctx, processedKey(consumer, eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s for %s: %w", eventID, consumer, err)
	}
	return v == processedDone, nil
}

// Acquire leases the event for one attempt. It returns false while another lease
// or the done mark exists.
func (s *RedisProcessedStore) Acquire(ctx context.Context, consumer, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, processedKey(consumer, eventID), processedLease, s.lease).Result()
	if err != nil {
		return false, fmt.Errorf("lease %s for %s: %w", eventID, consumer, err)
	}
	return ok, nil
}

func (s *RedisProcessedStore) Complete(ctx context.Context, consumer, eventID string) error {
	return s.client.Set(ctx, processedKey(consumer, eventID), processedDone, s.ttl).Err()
}

// Release drops a lease. A done mark is left alone.
func (s *RedisProcessedStore) Release(ctx context.Context, consumer, eventID string) error {
	key := processedKey(consumer, eventID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		v, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if v != processedLease {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

func flightsKey() string {
	return "cache:flights"
}

func processedKey(consumer, eventID string) string {
	return fmt.Sprintf("processed:%s:%s", consumer, eventID)
}
