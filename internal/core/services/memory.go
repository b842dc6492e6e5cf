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
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tikvault/clipsight/internal/core/model"
)

// MemoryStore is an in-memory VideoStore used by tests and local
// experiments. It honors the same claim semantics as the Postgres
// implementation, including atomicity of the status transitions.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*model.VideoRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*model.VideoRecord)}
}

func (s *MemoryStore) Insert(_ context.Context, record *model.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.VideoID]; exists {
		return fmt.Errorf("video %s already exists", record.VideoID)
	}
	s.records[record.VideoID] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, videoID string) (*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *MemoryStore) Update(_ context.Context, record *model.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.VideoID]; !ok {
		return ErrNotFound
	}
	updated := cloneRecord(record)
	updated.UpdatedAt = time.Now().UTC()
	s.records[record.VideoID] = updated
	return nil
}

func (s *MemoryStore) ClaimForProcessing(_ context.Context, videoID string) (*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	switch record.Status {
	case model.StatusProcessing:
		return nil, ErrAlreadyProcessing
	case model.StatusAnalyzed:
		return nil, ErrAlreadyAnalyzed
	}
	record.Status = model.StatusProcessing
	record.Error = ""
	record.UpdatedAt = time.Now().UTC()
	return cloneRecord(record), nil
}

func (s *MemoryStore) MarkAnalyzed(_ context.Context, videoID string, analysis *model.VideoAnalysis, processingTimeMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[videoID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	record.Status = model.StatusAnalyzed
	record.Analysis = analysis
	record.Error = ""
	record.AnalyzedAt = &now
	record.ProcessingTimeMs = processingTimeMs
	record.UpdatedAt = now
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, videoID string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[videoID]
	if !ok {
		return ErrNotFound
	}
	record.Status = model.StatusFailed
	record.Error = message
	record.Analysis = nil
	record.AnalyzedAt = nil
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int, offset int) ([]*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*model.VideoRecord, 0, len(s.records))
	for _, record := range s.records {
		all = append(all, cloneRecord(record))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset >= len(all) {
		return []*model.VideoRecord{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *MemoryStore) Search(_ context.Context, params SearchParams) ([]*model.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]*model.VideoRecord, 0)
	for _, record := range s.records {
		if record.Status != model.StatusAnalyzed || record.Analysis == nil {
			continue
		}
		if !matchesSearch(record.Analysis, params) {
			continue
		}
		matches = append(matches, cloneRecord(record))
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Analysis.ViralityFactors.Score > matches[j].Analysis.ViralityFactors.Score
	})
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if params.Offset >= len(matches) {
		return []*model.VideoRecord{}, nil
	}
	end := params.Offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[params.Offset:end], nil
}

func matchesSearch(analysis *model.VideoAnalysis, params SearchParams) bool {
	if params.Category != "" && !strings.EqualFold(analysis.GeneralInfo.Category, params.Category) {
		return false
	}
	if analysis.ViralityFactors.Score < params.MinViralScore {
		return false
	}
	if params.Query == "" {
		return true
	}
	needle := strings.ToLower(params.Query)
	haystack := strings.ToLower(strings.Join([]string{
		analysis.GeneralInfo.Title,
		analysis.ContentAnalysis.KeyMessage,
		analysis.ContentAnalysis.MainObjective,
		analysis.ViralityFactors.Reasons,
	}, " "))
	return strings.Contains(haystack, needle)
}

// cloneRecord copies a record so callers cannot mutate stored state.
// The analysis pointer is shared: documents are treated as immutable
// once stored.
func cloneRecord(in *model.VideoRecord) *model.VideoRecord {
	out := *in
	return &out
}
