package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/harrison/autopr/internal/models"
)

// keyPrefix namespaces task keys so the service can share a redis database.
const keyPrefix = "autopr:task:"

// Redis stores each record as an independently addressable JSON value.
// Durability and cross-process visibility follow the redis deployment's
// configuration; no cross-record transactions are used.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the redis instance at addr and verifies the connection.
func NewRedis(addr string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

// Put stores the record under its id key.
func (r *Redis) Put(ctx context.Context, rec models.TaskRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", rec.ID, err)
	}
	if err := r.client.Set(ctx, keyPrefix+rec.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist task %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, id string) (models.TaskRecord, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.TaskRecord{}, ErrNotFound
		}
		return models.TaskRecord{}, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	var rec models.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.TaskRecord{}, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return rec, nil
}

// List scans the task keyspace and returns all records.
func (r *Redis) List(ctx context.Context) ([]models.TaskRecord, error) {
	var out []models.TaskRecord

	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read task key %s: %w", iter.Val(), err)
		}
		var rec models.TaskRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode task key %s: %w", iter.Val(), err)
		}
		out = append(out, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}
	return out, nil
}

// Close closes the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Store = (*Redis)(nil)
