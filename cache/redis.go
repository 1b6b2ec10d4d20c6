// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ragflow:answer:"

// RedisCache is a shared answer cache for multi-worker deployments.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects to Redis at the given URL and verifies the connection.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached record, or (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, collection, question string) (*Record, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+KeyString(collection, question)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return UnmarshalRecord(data)
}

// Set stores the record with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, collection, question string, record *Record) error {
	err := c.client.Set(ctx, redisKeyPrefix+KeyString(collection, question), MarshalRecord(record), c.ttl).Err()
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ AnswerCache = (*RedisCache)(nil)
