// Copyright 2025 TikVault, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tikvault/clipsight/internal/core/model"
)

// AnalysisCache is a Redis read-through cache for finished analysis
// documents. Only terminal records (analyzed or failed) are cached;
// in-flight statuses change and must always be read from the store. A
// nil *AnalysisCache is valid and disables caching, so call sites need
// no conditionals.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache wraps a Redis client. Returns nil when client is nil.
func NewAnalysisCache(client *redis.Client, ttl time.Duration) *AnalysisCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AnalysisCache{client: client, ttl: ttl}
}

func analysisCacheKey(videoID string) string {
	return fmt.Sprintf("clipsight:analysis:%s", videoID)
}

// Get returns the cached record for the id. The second return is false
// on a miss or any Redis error; a broken cache must degrade to store
// reads, never to request failures.
func (c *AnalysisCache) Get(ctx context.Context, videoID string) (*model.VideoRecord, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, analysisCacheKey(videoID)).Bytes()
	if err != nil {
		return nil, false
	}
	var record model.VideoRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false
	}
	return &record, true
}

// Set caches the record when it is in a terminal state. Best effort.
func (c *AnalysisCache) Set(ctx context.Context, record *model.VideoRecord) {
	if c == nil || record == nil {
		return
	}
	if record.Status != model.StatusAnalyzed && record.Status != model.StatusFailed {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, analysisCacheKey(record.VideoID), raw, c.ttl).Err()
}

// Invalidate drops the cached entry, used when a failed record is
// re-queued for analysis.
func (c *AnalysisCache) Invalidate(ctx context.Context, videoID string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, analysisCacheKey(videoID)).Err()
}
