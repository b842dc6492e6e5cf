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

// This file defines the command that moves a local video file into the
// generative AI provider's File Service and waits for it to become usable.
//
// Logic Flow:
//  1. Take the VideoRecord from the context and upload its local file.
//  2. The provider transcodes asynchronously: the file starts in the
//     PROCESSING state and must not be referenced by a generation request
//     until it reaches ACTIVE.
//  3. Poll the file state on a flat interval until it leaves PROCESSING,
//     the context is cancelled, or the configured deadline passes. A
//     deadline expiry is a timeout-kind failure, never an indefinite wait.
//  4. On ACTIVE, hand a ProviderFileRef to the next command in the chain.
package commands

import (
	"fmt"
	"time"

	"github.com/tikvault/clipsight/internal/cloud"
	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
	"google.golang.org/genai"
)

// videoMIMETypes maps the allowed container extensions to the MIME type
// declared on upload.
var videoMIMETypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
}

// VideoMIMEType returns the MIME type for a container extension, falling
// back to video/mp4 for anything unknown.
func VideoMIMEType(extension string) string {
	if mt, ok := videoMIMETypes[extension]; ok {
		return mt
	}
	return "video/mp4"
}

// ProviderUpload uploads the record's local file to the provider File
// Service and polls until the file becomes active.
type ProviderUpload struct {
	cor.BaseCommand
	files        cloud.ProviderFileAPI // The provider file surface.
	pollInterval time.Duration         // Flat delay between state polls.
	pollTimeout  time.Duration         // Deadline for the file to become active.
}

// NewProviderUpload is the constructor for the ProviderUpload command.
func NewProviderUpload(name string, files cloud.ProviderFileAPI, pollInterval time.Duration, pollTimeout time.Duration) *ProviderUpload {
	return &ProviderUpload{
		BaseCommand:  *cor.NewBaseCommand(name),
		files:        files,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// Execute uploads the file and blocks in the poll loop until the provider
// reports the file active or the deadline expires.
func (v *ProviderUpload) Execute(context cor.Context) {
	record := context.Get(v.GetInputParam()).(*model.VideoRecord)
	ctx := context.GetContext()

	mimeType := VideoMIMEType(record.Metadata.Extension)
	file, err := v.files.Upload(ctx, record.LocalPath, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: record.VideoID,
	})
	if err != nil {
		v.GetErrorCounter().Add(ctx, 1)
		context.AddError(v.GetName(), NewStageError(v.GetName(), KindUpload, fmt.Errorf("failed to upload file to provider: %w", err)))
		return
	}

	deadline := time.Now().Add(v.pollTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			v.GetErrorCounter().Add(ctx, 1)
			context.AddError(v.GetName(), NewStageError(v.GetName(), KindTimeout,
				fmt.Errorf("file %s still processing after %s", file.Name, v.pollTimeout)))
			return
		}
		select {
		case <-ctx.Done():
			v.GetErrorCounter().Add(ctx, 1)
			context.AddError(v.GetName(), NewStageError(v.GetName(), KindTimeout,
				fmt.Errorf("file processing wait cancelled: %w", ctx.Err())))
			return
		case <-time.After(v.pollInterval):
		}
		if file, err = v.files.Get(ctx, file.Name); err != nil {
			v.GetErrorCounter().Add(ctx, 1)
			context.AddError(v.GetName(), NewStageError(v.GetName(), KindUpload,
				fmt.Errorf("failed to get file state during processing: %w", err)))
			return
		}
	}

	if file.State != genai.FileStateActive {
		v.GetErrorCounter().Add(ctx, 1)
		context.AddError(v.GetName(), NewStageError(v.GetName(), KindUpload,
			fmt.Errorf("provider reported terminal file state %q for %s", file.State, file.Name)))
		return
	}

	v.GetSuccessCounter().Add(ctx, 1)
	context.Add(v.GetOutputParam(), &model.ProviderFileRef{
		VideoID:  record.VideoID,
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: mimeType,
	})
}
