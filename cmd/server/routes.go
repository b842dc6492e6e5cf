// Copyright 2025 TikVault, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
	"github.com/tikvault/clipsight/internal/ingest"
)

// VideoRouter registers the read and analysis endpoints.
//
// This function defines the following endpoints:
//   - GET  /videos: Lists video records, newest first, with limit/offset paging.
//   - GET  /videos/:id: Retrieves a single video record.
//   - GET  /videos/:id/analysis: Returns the analysis state for a video,
//     served from the Redis cache when the record is terminal.
//   - POST /videos/:id/analyze: Claims the record and starts the analysis
//     pipeline in the background, returning 202 Accepted.
//   - GET  /videos/search/query: Searches analyzed videos by free text,
//     category, and a minimum virality score.
func VideoRouter(r *gin.RouterGroup) {
	videos := r.Group("/videos")
	{
		// Handler for GET /videos?limit=<n>&offset=<n>
		videos.GET("", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
			if err != nil || limit <= 0 {
				limit = services.DefaultPageSize
			}
			offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
			if err != nil || offset < 0 {
				offset = 0
			}
			records, err := state.store.List(c, limit, offset)
			if err != nil {
				slog.Error("failed to list videos", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"videos": records, "count": len(records)})
		})

		// Handler for GET /videos/:id
		videos.GET("/:id", func(c *gin.Context) {
			record, err := lookupVideo(c, c.Param("id"))
			if err != nil {
				return
			}
			c.JSON(http.StatusOK, record)
		})

		// Handler for GET /videos/:id/analysis
		videos.GET("/:id/analysis", func(c *gin.Context) {
			record, err := lookupVideo(c, c.Param("id"))
			if err != nil {
				return
			}
			out := gin.H{
				"video_id":     record.VideoID,
				"status":       record.Status,
				"has_analysis": record.Analysis != nil,
			}
			if record.Analysis != nil {
				out["analysis"] = record.Analysis
				out["processing_time_ms"] = record.ProcessingTimeMs
			}
			if record.Error != "" {
				out["error"] = record.Error
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for POST /videos/:id/analyze
		videos.POST("/:id/analyze", func(c *gin.Context) {
			id := c.Param("id")
			if err := state.pipeline.Trigger(c, id); err != nil {
				switch {
				case errors.Is(err, services.ErrNotFound):
					c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
				case errors.Is(err, services.ErrAlreadyProcessing):
					c.JSON(http.StatusConflict, gin.H{"error": "analysis already in progress"})
				case errors.Is(err, services.ErrAlreadyAnalyzed):
					c.JSON(http.StatusConflict, gin.H{"error": "video already analyzed"})
				default:
					slog.Error("failed to trigger analysis", "video_id", id, "error", err)
					c.Status(http.StatusInternalServerError)
				}
				return
			}
			// The record changed state, so any cached copy is stale.
			state.cache.Invalidate(c, id)
			c.JSON(http.StatusAccepted, gin.H{"video_id": id, "status": model.StatusProcessing})
		})

		// Handler for GET /videos/search/query?q=<text>&category=<c>&min_viral_score=<n>
		videos.GET("/search/query", func(c *gin.Context) {
			minScore := 0.0
			if raw := c.Query("min_viral_score"); raw != "" {
				parsed, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "min_viral_score must be a number"})
					return
				}
				minScore = parsed
			}
			limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
			if err != nil || limit <= 0 {
				limit = services.DefaultPageSize
			}
			results, err := state.store.Search(c, services.SearchParams{
				Query:         c.Query("q"),
				Category:      c.Query("category"),
				MinViralScore: minScore,
				Limit:         limit,
			})
			if err != nil {
				slog.Error("search failed", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"videos": results, "count": len(results)})
		})
	}
}

// IngestRouter registers the endpoints that bring videos into the system.
//
// This function defines the following endpoints:
//   - POST /videos/upload: Accepts one multipart video file under the "file"
//     field, validates it, and stores it with a pending record.
//   - POST /videos/url: Accepts {"url": ...} and resolves it through yt-dlp.
//   - GET  /videos/config/upload-info: Reports the accepted extensions and
//     size ceiling so clients can validate before uploading.
func IngestRouter(r *gin.RouterGroup) {
	videos := r.Group("/videos")
	{
		// Handler for POST /videos/upload
		videos.POST("/upload", func(c *gin.Context) {
			fileHeader, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
				return
			}
			f, err := fileHeader.Open()
			if err != nil {
				slog.Error("failed to open uploaded file", "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			defer func() {
				if err := f.Close(); err != nil {
					slog.Warn("failed to close uploaded file", "error", err)
				}
			}()

			record, err := state.ingest.SaveUpload(c, fileHeader.Filename, fileHeader.Size, f)
			if err != nil {
				var vErr *ingest.ValidationError
				if errors.As(err, &vErr) {
					c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
					return
				}
				slog.Error("upload ingest failed", "filename", fileHeader.Filename, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusCreated, record)
		})

		// Handler for POST /videos/url
		videos.POST("/url", func(c *gin.Context) {
			var body struct {
				URL string `json:"url"`
			}
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
			record, err := state.ingest.FromURL(c, body.URL)
			if err != nil {
				var vErr *ingest.ValidationError
				if errors.As(err, &vErr) {
					c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
					return
				}
				// The download failed but the record exists in failed state,
				// so the caller can inspect and retry it.
				if record != nil {
					c.JSON(http.StatusBadGateway, gin.H{
						"video_id": record.VideoID,
						"status":   record.Status,
						"error":    record.Error,
					})
					return
				}
				slog.Error("url ingest failed", "url", body.URL, "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusCreated, record)
		})

		// Handler for GET /videos/config/upload-info
		videos.GET("/config/upload-info", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"allowed_extensions":   ingest.AllowedExtensions(),
				"max_upload_megabytes": state.ingest.MaxUploadMegabytes(),
			})
		})
	}
}

// lookupVideo fetches a record through the read cache, writing the HTTP
// error response itself when the lookup fails. Callers should return
// immediately on a non-nil error.
func lookupVideo(c *gin.Context, id string) (*model.VideoRecord, error) {
	if record, ok := state.cache.Get(c, id); ok {
		return record, nil
	}
	record, err := state.store.Get(c, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		} else {
			slog.Error("failed to load video", "video_id", id, "error", err)
			c.Status(http.StatusInternalServerError)
		}
		return nil, err
	}
	// Terminal records are immutable so they are safe to cache.
	state.cache.Set(c, record)
	return record, nil
}
