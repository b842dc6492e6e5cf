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

// Package services contains the data access layer: the VideoStore contract
// plus its Postgres and in-memory implementations, and the Redis cache for
// finished analysis documents.
package services

import (
	"context"
	"errors"

	"github.com/tikvault/clipsight/internal/core/model"
)

// Store error sentinels. Handlers translate these into HTTP statuses;
// the workflow uses the claim sentinels to keep analysis single-flight.
var (
	// ErrNotFound is returned when no record exists for the video id.
	ErrNotFound = errors.New("video not found")
	// ErrAlreadyProcessing is returned by ClaimForProcessing when another
	// analysis run currently owns the record.
	ErrAlreadyProcessing = errors.New("video is already being processed")
	// ErrAlreadyAnalyzed is returned by ClaimForProcessing when the record
	// already carries a finished analysis.
	ErrAlreadyAnalyzed = errors.New("video is already analyzed")
)

// SearchParams are the filters for querying analyzed records. Zero values
// mean "no constraint".
type SearchParams struct {
	Query         string  // Free-text match against analysis title, summary, and transcript fields.
	Category      string  // Exact match against general_info.category.
	MinViralScore float64 // Lower bound on virality_factors.score.
	Limit         int     // Page size; a sane default is applied when zero.
	Offset        int
}

// VideoStore is the persistence contract for video records. One record
// exists per video id. ClaimForProcessing is the single concurrency
// control in the system: it atomically moves a claimable record into the
// processing state so that at most one pipeline run owns a record at a
// time, across restarts and across processes sharing the database.
type VideoStore interface {
	// Insert stores a new record. The video id must be unused.
	Insert(ctx context.Context, record *model.VideoRecord) error

	// Get returns the record for the id, or ErrNotFound.
	Get(ctx context.Context, videoID string) (*model.VideoRecord, error)

	// Update overwrites the stored record. Used by ingest to attach the
	// downloaded file and metadata to a pending record.
	Update(ctx context.Context, record *model.VideoRecord) error

	// ClaimForProcessing atomically transitions a pending, uploaded, or
	// failed record to processing. It returns ErrNotFound,
	// ErrAlreadyProcessing, or ErrAlreadyAnalyzed when the claim cannot
	// be taken. A failed record is claimable so callers can retry by
	// re-invoking analyze.
	ClaimForProcessing(ctx context.Context, videoID string) (*model.VideoRecord, error)

	// MarkAnalyzed atomically stores the analysis document, sets the
	// analyzed status, and stamps analyzed_at and the processing time.
	// It clears any previous error.
	MarkAnalyzed(ctx context.Context, videoID string, analysis *model.VideoAnalysis, processingTimeMs int64) error

	// MarkFailed atomically sets the failed status with the given
	// message and clears any stored analysis.
	MarkFailed(ctx context.Context, videoID string, message string) error

	// List returns records ordered by creation time, newest first.
	List(ctx context.Context, limit int, offset int) ([]*model.VideoRecord, error)

	// Search returns analyzed records matching the given filters.
	Search(ctx context.Context, params SearchParams) ([]*model.VideoRecord, error)
}
