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

// Package commands provides the concrete pipeline commands of the video
// analysis chain. This file defines the stage error taxonomy: every
// pipeline failure is wrapped in a StageError so the workflow can record
// which stage failed and the API can render a stage-tagged message.
package commands

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure by the stage contract it broke.
type ErrorKind string

const (
	KindDownload ErrorKind = "download" // Remote URL retrieval failed.
	KindUpload   ErrorKind = "upload"   // Provider file upload failed.
	KindTimeout  ErrorKind = "timeout"  // Provider file never became active within the deadline.
	KindRequest  ErrorKind = "request"  // Generation call failed.
	KindSchema   ErrorKind = "schema"   // Provider returned structurally invalid JSON.
)

// StageError wraps an underlying error with the pipeline stage and kind
// that produced it. The workflow persists Error() as the record's failure
// message, so it must read as a complete, human-readable sentence.
type StageError struct {
	Stage string    // The command name that failed.
	Kind  ErrorKind // The contract classification.
	Err   error     // The underlying cause.
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with stage and kind tags.
func NewStageError(stage string, kind ErrorKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, or empty when err carries no
// StageError in its chain.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
