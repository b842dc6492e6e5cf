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

// This file implements ingest validation. Validation runs before any side
// effect: a rejected upload writes no file and inserts no record.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// DefaultMaxUploadMegabytes is the size ceiling applied when the config
// does not override it.
const DefaultMaxUploadMegabytes int64 = 500

// allowedExtensions is the container allow-list. Anything else is
// rejected regardless of content.
var allowedExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"avi":  true,
	"mkv":  true,
	"webm": true,
}

// ValidationError is the ingest rejection error. It is terminal: the
// caller sees it immediately and nothing was persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// AllowedExtensions returns the accepted container extensions, for the
// upload-info endpoint.
func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	return out
}

// NormalizeExtension lowercases a filename's extension and strips the
// dot. Returns empty for files without an extension.
func NormalizeExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ValidateUpload checks the filename extension and declared size against
// the ingest constraints. maxMegabytes <= 0 applies the default ceiling.
func ValidateUpload(filename string, sizeBytes int64, maxMegabytes int64) error {
	ext := NormalizeExtension(filename)
	if !allowedExtensions[ext] {
		return &ValidationError{Reason: fmt.Sprintf("file type %q is not supported, allowed: mp4, mov, avi, mkv, webm", ext)}
	}
	if maxMegabytes <= 0 {
		maxMegabytes = DefaultMaxUploadMegabytes
	}
	if sizeBytes > maxMegabytes*1024*1024 {
		return &ValidationError{Reason: fmt.Sprintf("file size %.1f MB exceeds the %d MB limit", float64(sizeBytes)/(1024*1024), maxMegabytes)}
	}
	if sizeBytes <= 0 {
		return &ValidationError{Reason: "file is empty"}
	}
	return nil
}

// ValidateContent sniffs the magic number of the first bytes of an
// upload and rejects content that is not a known video container, even
// when the extension passed the allow-list. Matroska-family files (mkv,
// webm) share a signature filetype reports as matroska or webm.
func ValidateContent(head []byte) error {
	kind, err := filetype.Match(head)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("could not inspect file content: %v", err)}
	}
	switch kind {
	case matchers.TypeMp4, matchers.TypeMov, matchers.TypeAvi, matchers.TypeMkv, matchers.TypeWebm:
		return nil
	}
	return &ValidationError{Reason: fmt.Sprintf("file content (%s) is not a supported video container", kindLabel(kind.Extension))}
}

func kindLabel(ext string) string {
	if ext == "" || ext == "unknown" {
		return "unknown"
	}
	return ext
}
