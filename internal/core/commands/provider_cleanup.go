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

// This file defines the final housekeeping command of the pipeline:
// deleting the video file from the provider's File Service once the
// analysis is stored. Provider storage is quota-bound and the file has no
// further use. Deletion is best-effort: a failure here is logged but
// never fails an otherwise successful pipeline.
package commands

import (
	"log/slog"

	"github.com/tikvault/clipsight/internal/cloud"
	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
)

// ProviderCleanup deletes the provider-side copy of the analyzed file.
type ProviderCleanup struct {
	cor.BaseCommand
	files cloud.ProviderFileAPI
}

// NewProviderCleanup is the constructor for the ProviderCleanup command.
func NewProviderCleanup(name string, files cloud.ProviderFileAPI) *ProviderCleanup {
	return &ProviderCleanup{BaseCommand: *cor.NewBaseCommand(name), files: files}
}

// Execute deletes the provider file referenced by the pipeline result.
func (c *ProviderCleanup) Execute(context cor.Context) {
	result := context.Get(c.GetInputParam()).(*model.AnalysisResult)
	if result.FileRef == nil || result.FileRef.Name == "" {
		return
	}

	if err := c.files.Delete(context.GetContext(), result.FileRef.Name); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.Warn("failed to delete provider file",
			"video_id", result.VideoID,
			"file", result.FileRef.Name,
			"error", err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
}
