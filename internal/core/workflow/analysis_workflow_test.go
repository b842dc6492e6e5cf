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

package workflow

import (
	"context"
	"errors"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
	test "github.com/tikvault/clipsight/internal/testutil"
)

type triggerFileAPI struct{}

func (triggerFileAPI) Upload(_ context.Context, _ string, config *genai.UploadFileConfig) (*genai.File, error) {
	return &genai.File{
		Name:        "files/trigger-test",
		URI:         "https://provider.example/files/trigger-test",
		DisplayName: config.DisplayName,
		State:       genai.FileStateActive,
	}, nil
}

func (triggerFileAPI) Get(_ context.Context, name string) (*genai.File, error) {
	return &genai.File{Name: name, State: genai.FileStateActive}, nil
}

func (triggerFileAPI) Delete(_ context.Context, _ string) error { return nil }

type triggerGenerator struct {
	payload string
	err     error
}

func (g *triggerGenerator) GenerateContent(_ context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: g.payload}}}},
		},
	}, nil
}

var triggerTemplate = template.Must(template.New("analysis-template").Parse(
	"Example: {{.EXAMPLE_JSON}} Max: {{.SCORE_MAX}}"))

// newTestWorkflow assembles a workflow over the in-memory store and the
// given generator, with one concurrency slot so tests can observe the
// queueing behavior deterministically.
func newTestWorkflow(store services.VideoStore, gen *triggerGenerator) *AnalysisWorkflow {
	w := &AnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-analysis-pipeline"),
		baseCtx:     context.Background(),
		store:       store,
		slots:       make(chan struct{}, 1),
	}
	w.chain = BuildAnalysisChain(
		w.GetName(),
		triggerFileAPI{},
		gen,
		triggerTemplate,
		store,
		time.Millisecond,
		time.Second,
		time.Second,
	)
	return w
}

// waitForTerminal polls the store until the record leaves processing.
func waitForTerminal(t *testing.T, store services.VideoStore, videoID string) *model.VideoRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.Get(context.Background(), videoID)
		require.NoError(t, err)
		if record.Status == model.StatusAnalyzed || record.Status == model.StatusFailed {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("record %s never reached a terminal state", videoID)
	return nil
}

func TestTriggerAnalyzesRecord(t *testing.T) {
	store := services.NewMemoryStore()
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	require.NoError(t, store.Insert(context.Background(), record))

	w := newTestWorkflow(store, &triggerGenerator{payload: test.GetTestAnalysisPayload()})
	require.NoError(t, w.Trigger(context.Background(), record.VideoID))

	stored := waitForTerminal(t, store, record.VideoID)
	assert.Equal(t, model.StatusAnalyzed, stored.Status)
	require.NotNil(t, stored.Analysis)
	assert.Empty(t, stored.Error)
}

func TestTriggerMarksFailureTerminal(t *testing.T) {
	store := services.NewMemoryStore()
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	require.NoError(t, store.Insert(context.Background(), record))

	w := newTestWorkflow(store, &triggerGenerator{err: errors.New("model overloaded")})
	require.NoError(t, w.Trigger(context.Background(), record.VideoID))

	stored := waitForTerminal(t, store, record.VideoID)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "model overloaded")
	assert.Nil(t, stored.Analysis)
}

func TestTriggerUnknownVideo(t *testing.T) {
	store := services.NewMemoryStore()
	w := newTestWorkflow(store, &triggerGenerator{payload: test.GetTestAnalysisPayload()})

	err := w.Trigger(context.Background(), "vid_20250101_000000_deadbeef")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestTriggerRejectsConcurrentClaim(t *testing.T) {
	store := services.NewMemoryStore()
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	require.NoError(t, store.Insert(context.Background(), record))

	// Claim directly so the record sits in processing without a running
	// pipeline behind it.
	_, err := store.ClaimForProcessing(context.Background(), record.VideoID)
	require.NoError(t, err)

	w := newTestWorkflow(store, &triggerGenerator{payload: test.GetTestAnalysisPayload()})
	err = w.Trigger(context.Background(), record.VideoID)
	assert.ErrorIs(t, err, services.ErrAlreadyProcessing)
}

// A failed record stays claimable: re-invoking the analysis is the retry
// path after a transient provider failure.
func TestTriggerRetryAfterFailure(t *testing.T) {
	store := services.NewMemoryStore()
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	require.NoError(t, store.Insert(context.Background(), record))

	w := newTestWorkflow(store, &triggerGenerator{err: errors.New("model overloaded")})
	require.NoError(t, w.Trigger(context.Background(), record.VideoID))
	stored := waitForTerminal(t, store, record.VideoID)
	require.Equal(t, model.StatusFailed, stored.Status)

	retry := newTestWorkflow(store, &triggerGenerator{payload: test.GetTestAnalysisPayload()})
	require.NoError(t, retry.Trigger(context.Background(), record.VideoID))
	stored = waitForTerminal(t, store, record.VideoID)
	assert.Equal(t, model.StatusAnalyzed, stored.Status)
	assert.Empty(t, stored.Error)
}
