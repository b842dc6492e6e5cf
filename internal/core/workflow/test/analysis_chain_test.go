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

// This file runs the full analysis chain end to end against fakes: a
// simulated provider file service, a canned generative model, and the
// in-memory video store. It exercises the terminal-state guarantees the
// pipeline makes for both success and failure runs.
package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/tikvault/clipsight/internal/core/commands"
	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
	"github.com/tikvault/clipsight/internal/core/workflow"
)

// fakeFileAPI simulates the provider File Service with a configurable
// number of processing polls before the file becomes active.
type fakeFileAPI struct {
	activeAfter int
	getCalls    int
	deleted     []string
}

func (f *fakeFileAPI) Upload(_ context.Context, _ string, config *genai.UploadFileConfig) (*genai.File, error) {
	state := genai.FileStateProcessing
	if f.activeAfter == 0 {
		state = genai.FileStateActive
	}
	return &genai.File{
		Name:        "files/chain-test",
		URI:         "https://provider.example/files/chain-test",
		DisplayName: config.DisplayName,
		State:       state,
	}, nil
}

func (f *fakeFileAPI) Get(_ context.Context, name string) (*genai.File, error) {
	f.getCalls++
	state := genai.FileStateProcessing
	if f.getCalls >= f.activeAfter {
		state = genai.FileStateActive
	}
	return &genai.File{Name: name, URI: "https://provider.example/" + name, State: state}, nil
}

func (f *fakeFileAPI) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

// fakeGenerator returns a canned payload as the sole candidate text and
// records the content it was asked to generate from.
type fakeGenerator struct {
	payload     string
	err         error
	gotContents []*genai.Content
}

func (f *fakeGenerator) GenerateContent(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	f.gotContents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.payload}}}},
		},
	}, nil
}

var testPromptTemplate = template.Must(template.New("analysis-template").Parse(
	"Analyze the video. Respond like this example, score 0 to {{.SCORE_MAX}}: {{.EXAMPLE_JSON}}"))

// runChain claims the record and executes the chain the way the workflow
// does, returning the chain context for assertions.
func runChain(t *testing.T, goCtx context.Context, store services.VideoStore, files *fakeFileAPI, gen *fakeGenerator, record *model.VideoRecord) cor.Context {
	t.Helper()
	chain := workflow.BuildAnalysisChain(
		"analysis-chain-test",
		files,
		gen,
		testPromptTemplate,
		store,
		time.Millisecond,
		time.Second,
		time.Second,
	)

	claimed, err := store.ClaimForProcessing(goCtx, record.VideoID)
	require.NoError(t, err)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goCtx)
	chainCtx.Add(cor.CtxIn, claimed)
	chainCtx.Add(commands.GetPipelineStartParameterName(), time.Now())
	chain.Execute(chainCtx)
	return chainCtx
}

// seedRecord inserts an uploaded record pointing at a local file.
func seedRecord(t *testing.T, store services.VideoStore) *model.VideoRecord {
	t.Helper()
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	record.Metadata.FileSizeMB = 1.5
	require.NoError(t, store.Insert(ctx, record))
	return record
}

// TestAnalysisChainHappyPath runs the whole chain: upload, poll to
// active, generate, parse, persist, cleanup. The record must come out
// analyzed with a clamped score, and the provider file must be deleted.
func TestAnalysisChainHappyPath(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "analysis-chain-happy-path")
	defer span.End()

	sample := model.GetExampleAnalysis()
	sample.ViralityFactors.Score = 12 // Out of range on purpose.
	payload, err := json.Marshal(sample)
	require.NoError(t, err)

	store := services.NewMemoryStore()
	files := &fakeFileAPI{activeAfter: 2}
	record := seedRecord(t, store)

	gen := &fakeGenerator{payload: string(payload)}
	chainCtx := runChain(t, traceCtx, store, files, gen, record)
	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}
	require.False(t, chainCtx.HasErrors())

	// The prompt pairs the rendered template with the uploaded file.
	require.Len(t, gen.gotContents, 1)
	require.Len(t, gen.gotContents[0].Parts, 2)
	assert.Contains(t, gen.gotContents[0].Parts[0].Text, "Analyze the video")
	require.NotNil(t, gen.gotContents[0].Parts[1].FileData)
	assert.Equal(t, "https://provider.example/files/chain-test", gen.gotContents[0].Parts[1].FileData.FileURI)
	assert.Equal(t, "video/mp4", gen.gotContents[0].Parts[1].FileData.MIMEType)

	stored, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzed, stored.Status)
	require.NotNil(t, stored.Analysis)
	assert.Equal(t, model.ViralityScoreMax, stored.Analysis.ViralityFactors.Score)
	assert.Empty(t, stored.Error)
	assert.NotNil(t, stored.AnalyzedAt)
	assert.Equal(t, []string{"files/chain-test"}, files.deleted)

	span.SetStatus(codes.Ok, "passed - analysis chain happy path")
}

// TestAnalysisChainSchemaFailure verifies that a malformed model payload
// stops the chain before persistence: the record keeps no analysis and
// the chain reports a schema-kind error.
func TestAnalysisChainSchemaFailure(t *testing.T) {
	store := services.NewMemoryStore()
	files := &fakeFileAPI{activeAfter: 0}
	record := seedRecord(t, store)

	chainCtx := runChain(t, ctx, store, files, &fakeGenerator{payload: `{"general_info": {}}`}, record)
	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Equal(t, commands.KindSchema, commands.KindOf(err))
	}

	stored, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Nil(t, stored.Analysis)
	// The chain records the error; resolving the failed status is the
	// workflow's job, tested through Trigger.
	assert.Equal(t, model.StatusProcessing, stored.Status)
}

// TestAnalysisChainGenerationFailure verifies that a provider error in
// the generation call surfaces as a request-kind error with nothing
// persisted.
func TestAnalysisChainGenerationFailure(t *testing.T) {
	store := services.NewMemoryStore()
	files := &fakeFileAPI{activeAfter: 0}
	record := seedRecord(t, store)

	chainCtx := runChain(t, ctx, store, files, &fakeGenerator{err: fmt.Errorf("model overloaded")}, record)
	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Equal(t, commands.KindRequest, commands.KindOf(err))
	}

	stored, err := store.Get(ctx, record.VideoID)
	require.NoError(t, err)
	assert.Nil(t, stored.Analysis)
}
