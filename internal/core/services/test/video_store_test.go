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

// Package services_test exercises the VideoStore contract through the
// in-memory implementation: the claim state machine, the terminal write
// invariants, and the list and search behavior.
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
)

var ctx = context.Background()

func insertUpload(t *testing.T, store services.VideoStore) *model.VideoRecord {
	t.Helper()
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	require.NoError(t, store.Insert(ctx, record))
	return record
}

func analyzed(t *testing.T, store services.VideoStore, title, category string, score float64) *model.VideoRecord {
	t.Helper()
	record := insertUpload(t, store)
	_, err := store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)
	analysis := model.GetExampleAnalysis()
	analysis.GeneralInfo.Title = title
	analysis.GeneralInfo.Category = category
	analysis.ViralityFactors.Score = score
	require.NoError(t, store.MarkAnalyzed(ctx, record.VideoID, analysis, 1200))
	return record
}

// TestClaimStateMachine walks the record through every legal transition
// and checks each illegal claim is rejected with the right sentinel.
func TestClaimStateMachine(t *testing.T) {
	store := services.NewMemoryStore()
	record := insertUpload(t, store)

	claimed, err := store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, claimed.Status)

	// Second claim while in flight.
	_, err = store.ClaimForProcessing(ctx, record.VideoID)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessing)

	// Failure is terminal but claimable again.
	require.NoError(t, store.MarkFailed(ctx, record.VideoID, "provider-upload (timeout): deadline"))
	claimed, err = store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, claimed.Status)

	// Success is terminal and not claimable.
	require.NoError(t, store.MarkAnalyzed(ctx, record.VideoID, model.GetExampleAnalysis(), 900))
	_, err = store.ClaimForProcessing(ctx, record.VideoID)
	assert.ErrorIs(t, err, services.ErrAlreadyAnalyzed)
}

// TestReclaimClearsFailureError covers the retry path: claiming a failed
// record must drop the old failure message, so a record in processing
// never reports a stale error alongside its status.
func TestReclaimClearsFailureError(t *testing.T) {
	store := services.NewMemoryStore()
	record := insertUpload(t, store)

	_, err := store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, record.VideoID, "generate-analysis (request): model overloaded"))

	claimed, err := store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, claimed.Status)
	assert.Empty(t, claimed.Error)

	stored, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, stored.Status)
	assert.Empty(t, stored.Error)
}

func TestClaimUnknownVideo(t *testing.T) {
	store := services.NewMemoryStore()
	_, err := store.ClaimForProcessing(ctx, "vid_20250101_000000_deadbeef")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

// TestTerminalStateInvariants checks the two record invariants: analysis
// present exactly when analyzed, error present exactly when failed.
func TestTerminalStateInvariants(t *testing.T) {
	store := services.NewMemoryStore()
	record := insertUpload(t, store)
	_, err := store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, record.VideoID, "generate-analysis (request): model overloaded"))
	stored, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Nil(t, stored.Analysis)
	assert.NotEmpty(t, stored.Error)
	assert.Nil(t, stored.AnalyzedAt)

	_, err = store.ClaimForProcessing(ctx, record.VideoID)
	require.NoError(t, err)
	require.NoError(t, store.MarkAnalyzed(ctx, record.VideoID, model.GetExampleAnalysis(), 1500))
	stored, err = store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzed, stored.Status)
	assert.NotNil(t, stored.Analysis)
	assert.Empty(t, stored.Error)
	assert.NotNil(t, stored.AnalyzedAt)
	assert.Equal(t, int64(1500), stored.ProcessingTimeMs)
}

// TestGetReturnsCopy verifies callers cannot mutate stored state through
// the returned record.
func TestGetReturnsCopy(t *testing.T) {
	store := services.NewMemoryStore()
	record := insertUpload(t, store)

	got, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	got.Status = model.StatusFailed
	got.Error = "mutated"

	fresh, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, fresh.Status)
	assert.Empty(t, fresh.Error)
}

func TestListNewestFirst(t *testing.T) {
	store := services.NewMemoryStore()
	first := model.NewVideoRecord(model.SourceUpload)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Insert(ctx, first))
	second := insertUpload(t, store)

	records, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.VideoID, records[0].VideoID)
	assert.Equal(t, first.VideoID, records[1].VideoID)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.VideoID, page[0].VideoID)
}

// TestSearchFilters covers the three search axes: category match, score
// floor, and free-text match over the analysis fields. Results come back
// ranked by virality score.
func TestSearchFilters(t *testing.T) {
	store := services.NewMemoryStore()
	cooking := analyzed(t, store, "Air Fryer Gnocchi", "Cooking", 8)
	fitness := analyzed(t, store, "Morning Mobility Routine", "Fitness", 5)
	analyzed(t, store, "Budget Travel Hacks", "Travel", 3)

	// Unanalyzed records never match.
	insertUpload(t, store)

	results, err := store.Search(ctx, services.SearchParams{Category: "cooking"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, cooking.VideoID, results[0].VideoID)

	results, err = store.Search(ctx, services.SearchParams{MinViralScore: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, cooking.VideoID, results[0].VideoID)
	assert.Equal(t, fitness.VideoID, results[1].VideoID)

	results, err = store.Search(ctx, services.SearchParams{Query: "mobility"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fitness.VideoID, results[0].VideoID)

	results, err = store.Search(ctx, services.SearchParams{Query: "no such video"})
	require.NoError(t, err)
	assert.Empty(t, results)
}
