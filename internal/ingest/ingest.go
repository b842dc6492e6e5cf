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

// Package ingest brings videos into the system: direct multipart uploads
// and remote platform URLs. A successful ingest performs exactly one file
// write and one record insert; a failed validation performs neither.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tikvault/clipsight/internal/core/commands"
	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
)

// sniffLen is how many leading bytes the magic-number check consumes.
const sniffLen = 262

// Service coordinates validation, storage, and record creation for both
// ingest paths.
type Service struct {
	store              services.VideoStore
	downloader         *Downloader
	prober             *Prober
	storageDir         string
	maxUploadMegabytes int64
}

// NewService constructs the ingest service and ensures the storage
// directory exists.
func NewService(store services.VideoStore, downloader *Downloader, prober *Prober, storageDir string, maxUploadMegabytes int64) (*Service, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", storageDir, err)
	}
	if maxUploadMegabytes <= 0 {
		maxUploadMegabytes = DefaultMaxUploadMegabytes
	}
	return &Service{
		store:              store,
		downloader:         downloader,
		prober:             prober,
		storageDir:         storageDir,
		maxUploadMegabytes: maxUploadMegabytes,
	}, nil
}

// MaxUploadMegabytes exposes the configured ceiling for the upload-info
// endpoint.
func (s *Service) MaxUploadMegabytes() int64 {
	return s.maxUploadMegabytes
}

// SaveUpload validates and stores a directly uploaded file, then inserts
// its record in the uploaded state. declaredSize is the multipart part
// size; the copy re-enforces the ceiling in case the declaration lies.
func (s *Service) SaveUpload(ctx context.Context, filename string, declaredSize int64, content io.Reader) (*model.VideoRecord, error) {
	if err := ValidateUpload(filename, declaredSize, s.maxUploadMegabytes); err != nil {
		return nil, err
	}

	// Sniff the magic number before writing anything.
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if err := ValidateContent(head); err != nil {
		return nil, err
	}

	record := model.NewVideoRecord(model.SourceUpload)
	ext := NormalizeExtension(filename)
	localPath := filepath.Join(s.storageDir, record.VideoID+"."+ext)

	written, err := s.writeFile(localPath, head, content)
	if err != nil {
		return nil, err
	}

	record.LocalPath = localPath
	record.Metadata = model.VideoMetadata{
		FileSizeMB: float64(written) / (1024 * 1024),
		Extension:  ext,
	}
	s.enrichProbe(ctx, record)

	if err := s.store.Insert(ctx, record); err != nil {
		_ = os.Remove(localPath)
		return nil, fmt.Errorf("failed to store video record: %w", err)
	}
	return record, nil
}

// writeFile streams the upload to disk, enforcing the size ceiling on
// actual bytes. On any failure the partial file is removed.
func (s *Service) writeFile(localPath string, head []byte, rest io.Reader) (int64, error) {
	out, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", localPath, err)
	}

	limit := s.maxUploadMegabytes * 1024 * 1024
	written := int64(0)
	fail := func(e error) (int64, error) {
		_ = out.Close()
		_ = os.Remove(localPath)
		return 0, e
	}

	if _, err := out.Write(head); err != nil {
		return fail(fmt.Errorf("failed to write %s: %w", localPath, err))
	}
	written += int64(len(head))

	// LimitReader with one spare byte detects overflow without draining
	// an oversized body.
	n, err := io.Copy(out, io.LimitReader(rest, limit-written+1))
	if err != nil {
		return fail(fmt.Errorf("failed to write %s: %w", localPath, err))
	}
	written += n
	if written > limit {
		return fail(&ValidationError{Reason: fmt.Sprintf("file exceeds the %d MB limit", s.maxUploadMegabytes)})
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(localPath)
		return 0, fmt.Errorf("failed to finish writing %s: %w", localPath, err)
	}
	return written, nil
}

// FromURL creates a pending record, fetches the remote video, and
// resolves the record to uploaded or failed. The download happens inline:
// the caller gets back a record whose status already reflects the fetch.
func (s *Service) FromURL(ctx context.Context, url string) (*model.VideoRecord, error) {
	if url == "" {
		return nil, &ValidationError{Reason: "url is required"}
	}

	record := model.NewVideoRecord(model.SourceURL)
	record.URL = url
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store video record: %w", err)
	}

	outcome, err := s.downloader.Download(ctx, url, s.storageDir, record.VideoID)
	if err != nil {
		stageErr := commands.NewStageError("download-video", commands.KindDownload, err)
		if markErr := s.store.MarkFailed(ctx, record.VideoID, stageErr.Error()); markErr != nil {
			slog.Error("failed to mark download failure", "video_id", record.VideoID, "error", markErr)
		}
		record.Status = model.StatusFailed
		record.Error = stageErr.Error()
		return record, stageErr
	}

	info, statErr := os.Stat(outcome.LocalPath)
	sizeMB := 0.0
	if statErr == nil {
		sizeMB = float64(info.Size()) / (1024 * 1024)
	}

	record.Status = model.StatusUploaded
	record.LocalPath = outcome.LocalPath
	record.Metadata = model.VideoMetadata{
		DurationSeconds: outcome.DurationSecs,
		FileSizeMB:      sizeMB,
		Extension:       NormalizeExtension(outcome.LocalPath),
		Width:           outcome.Width,
		Height:          outcome.Height,
		Title:           outcome.Title,
		Platform:        outcome.Platform,
		Uploader:        outcome.Uploader,
		Hashtags:        outcome.Hashtags,
		ViewCount:       outcome.ViewCount,
		LikeCount:       outcome.LikeCount,
		CommentCount:    outcome.CommentCount,
		ShareCount:      outcome.ShareCount,
	}
	s.enrichProbe(ctx, record)

	if err := s.store.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update video record: %w", err)
	}
	return record, nil
}

// enrichProbe fills missing duration and dimensions from ffprobe.
// Best effort: probe failures are logged and ignored.
func (s *Service) enrichProbe(ctx context.Context, record *model.VideoRecord) {
	if s.prober == nil || record.LocalPath == "" {
		return
	}
	if record.Metadata.DurationSeconds > 0 && record.Metadata.Width > 0 {
		return
	}
	probe, err := s.prober.Probe(ctx, record.LocalPath)
	if err != nil {
		slog.Debug("ffprobe failed", "video_id", record.VideoID, "error", err)
		return
	}
	if record.Metadata.DurationSeconds == 0 {
		record.Metadata.DurationSeconds = probe.DurationSeconds
	}
	if record.Metadata.Width == 0 {
		record.Metadata.Width = probe.Width
		record.Metadata.Height = probe.Height
	}
}
