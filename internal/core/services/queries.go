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

// This file centralizes the SQL statements used by the Postgres store.
// The videos table stores the analysis document as JSONB: search filters
// reach into the document with JSON path operators, and every status
// transition is a single-statement atomic update.
package services

// DefaultPageSize bounds list and search responses when the caller does
// not specify a limit.
const DefaultPageSize = 20

const (
	qryInsertVideo = `
		INSERT INTO videos (
			video_id, status, source, url, local_path, metadata,
			analysis, error, created_at, updated_at, analyzed_at, processing_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	qrySelectVideo = `
		SELECT video_id, status, source, url, local_path, metadata,
		       analysis, error, created_at, updated_at, analyzed_at, processing_time_ms
		FROM videos
		WHERE video_id = $1`

	qryUpdateVideo = `
		UPDATE videos
		SET status = $2, source = $3, url = $4, local_path = $5, metadata = $6,
		    analysis = $7, error = $8, updated_at = now(),
		    analyzed_at = $9, processing_time_ms = $10
		WHERE video_id = $1`

	// qryClaimForProcessing is the single-flight guard: the WHERE clause
	// only matches claimable states, so two concurrent claims can never
	// both succeed. Failed records are claimable to support retries, and
	// the claim clears the previous failure message so only failed
	// records ever carry an error.
	qryClaimForProcessing = `
		UPDATE videos
		SET status = 'processing', error = '', updated_at = now()
		WHERE video_id = $1 AND status IN ('pending', 'uploaded', 'failed')
		RETURNING video_id, status, source, url, local_path, metadata,
		          analysis, error, created_at, updated_at, analyzed_at, processing_time_ms`

	qryMarkAnalyzed = `
		UPDATE videos
		SET status = 'analyzed', analysis = $2, error = '',
		    analyzed_at = now(), processing_time_ms = $3, updated_at = now()
		WHERE video_id = $1`

	qryMarkFailed = `
		UPDATE videos
		SET status = 'failed', error = $2, analysis = NULL,
		    analyzed_at = NULL, updated_at = now()
		WHERE video_id = $1`

	qryListVideos = `
		SELECT video_id, status, source, url, local_path, metadata,
		       analysis, error, created_at, updated_at, analyzed_at, processing_time_ms
		FROM videos
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	// qrySearchVideos filters analyzed records on the JSONB document.
	// Empty-string and zero parameters disable the corresponding filter,
	// so one prepared statement serves every filter combination.
	qrySearchVideos = `
		SELECT video_id, status, source, url, local_path, metadata,
		       analysis, error, created_at, updated_at, analyzed_at, processing_time_ms
		FROM videos
		WHERE status = 'analyzed'
		  AND ($1 = '' OR
		       analysis->'general_info'->>'title' ILIKE '%' || $1 || '%' OR
		       analysis->'content_analysis'->>'key_message' ILIKE '%' || $1 || '%' OR
		       analysis->'content_analysis'->>'main_objective' ILIKE '%' || $1 || '%' OR
		       analysis->'virality_factors'->>'reasons' ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR lower(analysis->'general_info'->>'category') = lower($2))
		  AND (analysis->'virality_factors'->>'score')::float8 >= $3
		ORDER BY (analysis->'virality_factors'->>'score')::float8 DESC
		LIMIT $4 OFFSET $5`
)
