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

// Package model_test contains unit tests for the persistent data models:
// record construction, id format, and score clamping.
package model_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tikvault/clipsight/internal/core/model"
)

var videoIDPattern = regexp.MustCompile(`^vid_\d{8}_\d{6}_[0-9a-f]{8}$`)

// TestNewVideoRecord verifies the initial state for both sources: uploads
// start uploaded, URL videos start pending, and timestamps are fresh.
func TestNewVideoRecord(t *testing.T) {
	uploaded := model.NewVideoRecord(model.SourceUpload)
	assert.Equal(t, model.StatusUploaded, uploaded.Status)
	assert.Equal(t, model.SourceUpload, uploaded.Source)
	assert.Regexp(t, videoIDPattern, uploaded.VideoID)
	assert.WithinDuration(t, time.Now(), uploaded.CreatedAt, time.Second)
	assert.Nil(t, uploaded.Analysis)
	assert.Empty(t, uploaded.Error)

	fromURL := model.NewVideoRecord(model.SourceURL)
	assert.Equal(t, model.StatusPending, fromURL.Status)
	assert.Equal(t, model.SourceURL, fromURL.Source)
}

// TestNewVideoIDUnique checks that ids minted in the same second still
// differ through the random suffix.
func TestNewVideoIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := model.NewVideoID(now)
		assert.Regexp(t, videoIDPattern, id)
		assert.False(t, seen[id], "duplicate video id %s", id)
		seen[id] = true
	}
}

// TestClampScore covers both out-of-range directions and the pass-through
// case.
func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "above ceiling", in: 12, want: 10},
		{name: "below floor", in: -1, want: 0},
		{name: "in range", in: 7.5, want: 7.5},
		{name: "at ceiling", in: 10, want: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.VideoAnalysis{ViralityFactors: model.ViralityFactors{Score: tc.in}}
			a.ClampScore()
			assert.Equal(t, tc.want, a.ViralityFactors.Score)
		})
	}
}

// TestCanStartAnalysis pins the set of states the pipeline may claim from.
func TestCanStartAnalysis(t *testing.T) {
	for status, want := range map[model.Status]bool{
		model.StatusPending:    true,
		model.StatusUploaded:   true,
		model.StatusFailed:     true,
		model.StatusProcessing: false,
		model.StatusAnalyzed:   false,
	} {
		r := &model.VideoRecord{Status: status}
		assert.Equal(t, want, r.CanStartAnalysis(), "status %s", status)
	}
}
