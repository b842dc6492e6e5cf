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

// This file contains the transient data models: structures that exist
// only in memory while a workflow executes and are never persisted in
// this form. They carry intermediate results between pipeline commands.
package model

// ProviderFileRef identifies a file that has been uploaded to the
// generative AI provider and has reached the active state. It is the
// handoff value between the upload command and the generation command.
type ProviderFileRef struct {
	VideoID  string // The record the uploaded file belongs to.
	Name     string // The provider-side resource name, used for deletion.
	URI      string // The provider URI referenced in generation prompts.
	MIMEType string // The MIME type declared at upload.
}

// AnalysisCandidate pairs the raw model output with the record it was
// generated for. The parse command consumes it and either produces a
// validated VideoAnalysis or fails the pipeline.
type AnalysisCandidate struct {
	VideoID string // The record the payload belongs to.
	Payload string // The raw JSON text returned by the model, fences stripped.
	FileRef *ProviderFileRef
}

// AnalysisResult is the validated outcome of one pipeline run, handed
// from the parse command to the persist command.
type AnalysisResult struct {
	VideoID  string
	Analysis *VideoAnalysis
	FileRef  *ProviderFileRef
}

// MediaProbe holds the technical attributes read from a local file with
// ffprobe at ingest time. All fields are best-effort.
type MediaProbe struct {
	DurationSeconds float64
	Width           int
	Height          int
}

// DownloadOutcome is the result of fetching a remote video URL: the local
// file plus whatever platform metadata the fetcher could recover.
type DownloadOutcome struct {
	LocalPath    string
	Title        string
	Platform     string
	Uploader     string
	Hashtags     []string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	ShareCount   int64
	DurationSecs float64
	Width        int
	Height       int
}
