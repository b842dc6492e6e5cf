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

// This file implements the VideoStore contract on Postgres via pgx. The
// record's metadata and analysis travel as JSONB columns; the status
// column drives the state machine and the claim CAS.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikvault/clipsight/internal/core/model"
)

// PostgresStore is the production VideoStore backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, record *model.VideoRecord) error {
	metadata, analysis, err := marshalDocs(record)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, qryInsertVideo,
		record.VideoID,
		string(record.Status),
		string(record.Source),
		record.URL,
		record.LocalPath,
		metadata,
		analysis,
		record.Error,
		record.CreatedAt,
		record.UpdatedAt,
		record.AnalyzedAt,
		nullableInt64(record.ProcessingTimeMs),
	)
	if err != nil {
		return fmt.Errorf("failed to insert video %s: %w", record.VideoID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, videoID string) (*model.VideoRecord, error) {
	row := s.pool.QueryRow(ctx, qrySelectVideo, videoID)
	record, err := scanVideoRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video %s: %w", videoID, err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, record *model.VideoRecord) error {
	metadata, analysis, err := marshalDocs(record)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, qryUpdateVideo,
		record.VideoID,
		string(record.Status),
		string(record.Source),
		record.URL,
		record.LocalPath,
		metadata,
		analysis,
		record.Error,
		record.AnalyzedAt,
		nullableInt64(record.ProcessingTimeMs),
	)
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", record.VideoID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimForProcessing relies on the conditional UPDATE in
// qryClaimForProcessing: when no row comes back, the record either does
// not exist or is in a non-claimable state, and a follow-up read
// distinguishes the two for the caller's error.
func (s *PostgresStore) ClaimForProcessing(ctx context.Context, videoID string) (*model.VideoRecord, error) {
	row := s.pool.QueryRow(ctx, qryClaimForProcessing, videoID)
	record, err := scanVideoRow(row)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim video %s: %w", videoID, err)
	}

	current, getErr := s.Get(ctx, videoID)
	if getErr != nil {
		return nil, getErr
	}
	switch current.Status {
	case model.StatusAnalyzed:
		return nil, ErrAlreadyAnalyzed
	default:
		return nil, ErrAlreadyProcessing
	}
}

func (s *PostgresStore) MarkAnalyzed(ctx context.Context, videoID string, analysis *model.VideoAnalysis, processingTimeMs int64) error {
	doc, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis for %s: %w", videoID, err)
	}
	tag, err := s.pool.Exec(ctx, qryMarkAnalyzed, videoID, doc, processingTimeMs)
	if err != nil {
		return fmt.Errorf("failed to mark video %s analyzed: %w", videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, videoID string, message string) error {
	tag, err := s.pool.Exec(ctx, qryMarkFailed, videoID, message)
	if err != nil {
		return fmt.Errorf("failed to mark video %s failed: %w", videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int, offset int) ([]*model.VideoRecord, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	rows, err := s.pool.Query(ctx, qryListVideos, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()
	return scanVideoRows(rows)
}

func (s *PostgresStore) Search(ctx context.Context, params SearchParams) ([]*model.VideoRecord, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	rows, err := s.pool.Query(ctx, qrySearchVideos,
		params.Query, params.Category, params.MinViralScore, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}
	defer rows.Close()
	return scanVideoRows(rows)
}

// rowScanner lets scanVideoRow serve both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideoRow(row rowScanner) (*model.VideoRecord, error) {
	var (
		record        model.VideoRecord
		status        string
		source        string
		metadataJSON  []byte
		analysisJSON  []byte
		analyzedAt    sql.NullTime
		procTimeMs    sql.NullInt64
		nullableError sql.NullString
	)
	err := row.Scan(
		&record.VideoID,
		&status,
		&source,
		&record.URL,
		&record.LocalPath,
		&metadataJSON,
		&analysisJSON,
		&nullableError,
		&record.CreatedAt,
		&record.UpdatedAt,
		&analyzedAt,
		&procTimeMs,
	)
	if err != nil {
		return nil, err
	}
	record.Status = model.Status(status)
	record.Source = model.Source(source)
	record.Error = nullableError.String
	if analyzedAt.Valid {
		t := analyzedAt.Time
		record.AnalyzedAt = &t
	}
	if procTimeMs.Valid {
		record.ProcessingTimeMs = procTimeMs.Int64
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata document for %s: %w", record.VideoID, err)
		}
	}
	if len(analysisJSON) > 0 {
		var analysis model.VideoAnalysis
		if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
			return nil, fmt.Errorf("corrupt analysis document for %s: %w", record.VideoID, err)
		}
		record.Analysis = &analysis
	}
	return &record, nil
}

func scanVideoRows(rows pgx.Rows) ([]*model.VideoRecord, error) {
	out := make([]*model.VideoRecord, 0)
	for rows.Next() {
		record, err := scanVideoRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func marshalDocs(record *model.VideoRecord) (metadata []byte, analysis []byte, err error) {
	metadata, err = json.Marshal(record.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal metadata for %s: %w", record.VideoID, err)
	}
	if record.Analysis != nil {
		analysis, err = json.Marshal(record.Analysis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal analysis for %s: %w", record.VideoID, err)
		}
	}
	return metadata, analysis, nil
}

func nullableInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

var (
	_ VideoStore = (*PostgresStore)(nil)
	_ VideoStore = (*MemoryStore)(nil)
)
