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

// Package model defines the core data structures for the service. This
// file contains the persistent document models: the `VideoRecord` stored
// one-per-video, and the `VideoAnalysis` document produced by the
// generative model and embedded in the record once analysis succeeds.
//
// Two invariants hold for every stored record:
//   - Analysis is non-nil if and only if Status is StatusAnalyzed.
//   - Error is non-empty if and only if Status is StatusFailed.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a VideoRecord.
type Status string

const (
	StatusPending    Status = "pending"    // Record created from a URL, download not yet attempted.
	StatusUploaded   Status = "uploaded"   // Local file present, analysis not yet requested.
	StatusProcessing Status = "processing" // Analysis pipeline in flight.
	StatusAnalyzed   Status = "analyzed"   // Analysis document stored.
	StatusFailed     Status = "failed"     // A pipeline stage failed; Error holds the reason.
)

// Source identifies how a video entered the system.
type Source string

const (
	SourceUpload Source = "upload" // Direct multipart file upload.
	SourceURL    Source = "url"    // Fetched from a platform URL.
)

// ViralityScoreMax is the upper bound of the virality score scale.
const ViralityScoreMax = 10.0

// VideoMetadata holds the technical and platform metadata captured at
// ingest time. Platform fields are only populated for URL-sourced videos.
type VideoMetadata struct {
	DurationSeconds float64  `json:"duration_seconds,omitempty"` // Media duration probed at ingest.
	FileSizeMB      float64  `json:"file_size_mb"`               // Size of the stored local file.
	Extension       string   `json:"extension"`                  // Lowercase file extension without the dot.
	Width           int      `json:"width,omitempty"`            // Frame width in pixels.
	Height          int      `json:"height,omitempty"`           // Frame height in pixels.
	Title           string   `json:"title,omitempty"`            // Platform title, when sourced from a URL.
	Platform        string   `json:"platform,omitempty"`         // Originating platform (e.g. "tiktok").
	Uploader        string   `json:"uploader,omitempty"`         // Platform account that posted the video.
	Hashtags        []string `json:"hashtags,omitempty"`         // Hashtags scraped from the post description.
	ViewCount       int64    `json:"view_count,omitempty"`
	LikeCount       int64    `json:"like_count,omitempty"`
	CommentCount    int64    `json:"comment_count,omitempty"`
	ShareCount      int64    `json:"share_count,omitempty"`
}

// GeneralInfo is the first analysis facet: what the video is.
type GeneralInfo struct {
	Title            string `json:"title"`
	Category         string `json:"category"`
	OverallSentiment string `json:"overall_sentiment"`
	TargetAudience   string `json:"target_audience"`
}

// ContentAnalysis is the second facet: what the video is trying to do.
type ContentAnalysis struct {
	MainObjective string `json:"main_objective"`
	KeyMessage    string `json:"key_message"`
	HookStrategy  string `json:"hook_strategy"`
}

// ScriptSegment is one entry of the script_breakdown facet. StartSeconds
// and EndSeconds are derived from TimeRange when the model omits them.
type ScriptSegment struct {
	SegmentID         int     `json:"segment_id"`
	TimeRange         string  `json:"time_range"` // "MM:SS - MM:SS" as emitted by the model.
	StartSeconds      float64 `json:"start_seconds,omitempty"`
	EndSeconds        float64 `json:"end_seconds,omitempty"`
	VisualDescription string  `json:"visual_description"`
	CameraAngle       string  `json:"camera_angle"`
	AudioTranscript   string  `json:"audio_transcript"`
	OnScreenText      string  `json:"on_screen_text"`
	Pacing            string  `json:"pacing"`
}

// TechnicalAudit is the fourth facet: production quality assessment.
// VideoQuality and Transitions are optional in the model output.
type TechnicalAudit struct {
	EditingStyle string `json:"editing_style"`
	SoundDesign  string `json:"sound_design"`
	CTAAnalysis  string `json:"cta_analysis"`
	VideoQuality string `json:"video_quality,omitempty"`
	Transitions  string `json:"transitions,omitempty"`
}

// ViralityFactors is the fifth facet: the sharability assessment. Score is
// always clamped into [0, ViralityScoreMax] before persistence.
type ViralityFactors struct {
	Score                  float64  `json:"score"`
	Reasons                string   `json:"reasons"`
	ImprovementSuggestions string   `json:"improvement_suggestions"`
	Strengths              []string `json:"strengths,omitempty"`
	Weaknesses             []string `json:"weaknesses,omitempty"`
}

// VideoAnalysis is the complete five-facet analysis document returned by
// the generative model. All five facets are required; a payload missing
// any of them is rejected by the parser.
type VideoAnalysis struct {
	GeneralInfo     GeneralInfo     `json:"general_info"`
	ContentAnalysis ContentAnalysis `json:"content_analysis"`
	ScriptBreakdown []ScriptSegment `json:"script_breakdown"`
	TechnicalAudit  TechnicalAudit  `json:"technical_audit"`
	ViralityFactors ViralityFactors `json:"virality_factors"`
}

// ClampScore normalizes the virality score into [0, ViralityScoreMax].
// Models occasionally return scores like 12 or -1 despite the prompt.
func (v *VideoAnalysis) ClampScore() {
	if v.ViralityFactors.Score < 0 {
		v.ViralityFactors.Score = 0
	}
	if v.ViralityFactors.Score > ViralityScoreMax {
		v.ViralityFactors.Score = ViralityScoreMax
	}
}

// VideoRecord is the persistent document stored once per ingested video.
type VideoRecord struct {
	VideoID          string         `json:"video_id"`
	Status           Status         `json:"status"`
	Source           Source         `json:"source"`
	URL              string         `json:"url,omitempty"`
	LocalPath        string         `json:"local_path"`
	Metadata         VideoMetadata  `json:"metadata"`
	Analysis         *VideoAnalysis `json:"analysis,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	AnalyzedAt       *time.Time     `json:"analyzed_at,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms,omitempty"`
}

// NewVideoRecord creates a record in its initial state for the given
// source. URL-sourced records start pending (the file does not exist yet);
// uploads start uploaded.
func NewVideoRecord(source Source) *VideoRecord {
	status := StatusUploaded
	if source == SourceURL {
		status = StatusPending
	}
	now := time.Now().UTC()
	return &VideoRecord{
		VideoID:   NewVideoID(now),
		Status:    status,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewVideoID mints a video identifier of the form
// vid_20250130_154501_9f2c41aa: a sortable timestamp plus a short random
// suffix to break same-second collisions.
func NewVideoID(ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("vid_%s_%s", ts.UTC().Format("20060102_150405"), suffix)
}

// CanStartAnalysis reports whether the record is in a state from which the
// analysis pipeline may be claimed.
func (r *VideoRecord) CanStartAnalysis() bool {
	return r.Status == StatusPending || r.Status == StatusUploaded || r.Status == StatusFailed
}
