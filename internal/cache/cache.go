/*
Copyright 2024 TitanForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	redis_db "github.com/titanforge/titanforge/internal/redis-db"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Cache is the read-through store in front of task lookups.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get decodes the cached value into dst, or returns ErrMiss.
	Get(ctx context.Context, key string, dst interface{}) error
	Delete(ctx context.Context, key string) error
}

// RedisCache stores msgpack encoded values in Redis. There is no in-process
// tier: API and worker processes must see each other's invalidations.
type RedisCache struct {
	cache *cache.Cache
}

// NewCache builds a cache on an existing Redis connection.
func NewCache(client *redis_db.Redis) *RedisCache {
	return &RedisCache{cache: cache.New(&cache.Options{Redis: client.Client()})}
}

func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	return r.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: data,
		TTL:   ttl,
	})
}

func (r *RedisCache) Get(ctx context.Context, key string, dst interface{}) error {
	err := r.cache.Get(ctx, key, dst)
	if errors.Is(err, cache.ErrCacheMiss) {
		return ErrMiss
	}
	return err
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	err := r.cache.Delete(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
