// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tree.go provides a Valkey-backed cache for serialized tree listings.
// Tree pages are expensive to assemble (view query plus live child counts),
// and category structure changes rarely compared to how often storefronts
// read it, so responses are cached as JSON and dropped wholesale after any
// structural mutation.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// treeKeyPrefix is the Valkey key prefix for cached tree pages.
	treeKeyPrefix = "tree:"

	// DefaultTreeTTL is how long a tree page stays cached. The TTL is a
	// backstop; mutations invalidate explicitly.
	DefaultTreeTTL = 5 * time.Minute
)

// TreeCache manages serialized tree listing pages in Valkey.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache creates a new tree cache backed by the given Valkey client.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	if ttl == 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl}
}

// TreeKey builds the cache key for one tree page. Every query dimension is
// part of the key, so distinct pages never collide.
func TreeKey(tenantID uuid.UUID, typeName string, parentID *uuid.UUID, maxDepth, limit, offset int) string {
	parent := "root"
	if parentID != nil {
		parent = parentID.String()
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d:%d", tenantID, typeName, parent, maxDepth, limit, offset)
}

// Get retrieves a cached tree page. Returns nil and false on miss.
func (tc *TreeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := tc.client.Get(ctx, treeKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("tree cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("tree cache hit", "key", key)
	return val, true
}

// Set stores a serialized tree page with the configured TTL.
func (tc *TreeCache) Set(ctx context.Context, key string, data []byte) {
	if err := tc.client.Set(ctx, treeKeyPrefix+key, data, tc.ttl).Err(); err != nil {
		slog.Warn("tree cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached tree page by scanning for the prefix.
// A move or delete can reshape any page of the tenant's tree (and system
// defaults touch every tenant), so mutations clear everything.
func (tc *TreeCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := tc.client.Scan(ctx, cursor, treeKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("tree cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := tc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("tree cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("tree cache fully cleared", "deleted", deleted)
	}
}
