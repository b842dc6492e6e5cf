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

// Package workflow defines the high-level orchestrations that combine
// pipeline commands into coherent chains. This file implements the video
// analysis workflow: claim the record, run upload, generation, parse,
// persist, and cleanup in sequence, and resolve every outcome to a
// terminal record state.
package workflow

import (
	"context"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/tikvault/clipsight/internal/cloud"
	"github.com/tikvault/clipsight/internal/core/commands"
	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
)

// AnalysisWorkflow orchestrates one video's end-to-end analysis. Each
// trigger runs as an independent background task; the store's
// ClaimForProcessing transition guarantees at most one run per record,
// and an optional semaphore bounds how many runs execute at once.
//
// Every run terminates the record: success writes the analysis document
// atomically with the analyzed status, and any stage failure writes a
// stage-tagged failed status. A record is never left in processing.
type AnalysisWorkflow struct {
	cor.BaseCommand
	baseCtx context.Context // The lifetime context background runs inherit, independent of the triggering request.
	store   services.VideoStore
	chain   cor.Chain
	slots   chan struct{} // Bounded-concurrency semaphore. Nil means unbounded.
}

// NewAnalysisPipeline constructs the workflow and its command chain. The
// agentModelName selects the configured generative model (e.g.
// "analyzer"). baseCtx should span the server's lifetime so in-flight
// runs stop on shutdown rather than when the triggering request ends.
func NewAnalysisPipeline(
	baseCtx context.Context,
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	store services.VideoStore,
	agentModelName string) *AnalysisWorkflow {

	promptTemplate, err := template.New("analysis-template").Parse(config.PromptTemplates.AnalysisPrompt)
	if err != nil {
		panic(err) // The service cannot run without a valid prompt template.
	}

	pipeline := &AnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-analysis-pipeline"),
		baseCtx:     baseCtx,
		store:       store,
	}
	if config.Application.MaxConcurrent > 0 {
		pipeline.slots = make(chan struct{}, config.Application.MaxConcurrent)
	}

	pollInterval := time.Duration(config.Provider.PollIntervalSeconds) * time.Second
	pollTimeout := time.Duration(config.Provider.PollTimeoutSeconds) * time.Second
	requestTimeout := time.Duration(config.Provider.RequestTimeoutSeconds) * time.Second

	pipeline.chain = BuildAnalysisChain(
		pipeline.GetName(),
		serviceClients.ProviderFiles,
		serviceClients.AgentModels[agentModelName],
		promptTemplate,
		store,
		pollInterval,
		pollTimeout,
		requestTimeout,
	)
	return pipeline
}

// BuildAnalysisChain assembles the five-step command chain. It is split
// out from the constructor so tests can wire fake provider and generator
// implementations.
func BuildAnalysisChain(
	name string,
	files cloud.ProviderFileAPI,
	generator cloud.ContentGenerator,
	promptTemplate *template.Template,
	store services.VideoStore,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	requestTimeout time.Duration) cor.Chain {

	out := cor.NewBaseChain(name)

	// Step 1: Upload the local file to the provider File Service and poll
	// until it is active.
	out.AddCommand(commands.NewProviderUpload("provider-upload", files, pollInterval, pollTimeout))

	// Step 2: One multi-modal generation request producing the raw
	// five-facet JSON.
	out.AddCommand(commands.NewAnalysisGenerator("generate-analysis", generator, promptTemplate, requestTimeout))

	// Step 3: Strict schema validation plus score clamping and segment
	// time enrichment.
	out.AddCommand(commands.NewAnalysisParser("parse-analysis"))

	// Step 4: Atomic write of the document and the analyzed status.
	out.AddCommand(commands.NewAnalysisPersist("persist-analysis", store))

	// Step 5: Delete the provider-side file copy. Best effort.
	out.AddCommand(commands.NewProviderCleanup("provider-cleanup", files))

	return out
}

// Execute satisfies the Command interface so the workflow composes like
// any other chain step.
func (w *AnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Trigger claims the record and starts the analysis as a background task.
// Claim failures (unknown id, already processing, already analyzed)
// return synchronously so the caller can report them; once Trigger
// returns nil the record will reach analyzed or failed without further
// caller involvement.
func (w *AnalysisWorkflow) Trigger(ctx context.Context, videoID string) error {
	record, err := w.store.ClaimForProcessing(ctx, videoID)
	if err != nil {
		return err
	}
	go w.run(record)
	return nil
}

// run executes the chain for one claimed record and resolves the terminal
// state. It runs on the workflow's base context so it survives the
// triggering HTTP request.
func (w *AnalysisWorkflow) run(record *model.VideoRecord) {
	start := time.Now()

	if w.slots != nil {
		select {
		case w.slots <- struct{}{}:
			defer func() { <-w.slots }()
		case <-w.baseCtx.Done():
			w.fail(record.VideoID, "pipeline (timeout): shutdown before analysis started")
			return
		}
	}

	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(w.baseCtx)
	chCtx.Add(cor.CtxIn, record)
	chCtx.Add(commands.GetPipelineStartParameterName(), start)

	w.chain.Execute(chCtx)

	if chCtx.HasErrors() {
		w.fail(record.VideoID, failureMessage(chCtx.GetErrors()))
		return
	}
	slog.Info("video analysis completed",
		"video_id", record.VideoID,
		"elapsed_ms", time.Since(start).Milliseconds())
}

// fail writes the failed terminal state. The write uses a context
// detached from cancellation: even when the run was aborted by shutdown,
// the record must not remain in processing.
func (w *AnalysisWorkflow) fail(videoID string, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.baseCtx), 10*time.Second)
	defer cancel()
	if err := w.store.MarkFailed(ctx, videoID, message); err != nil {
		slog.Error("failed to mark video as failed", "video_id", videoID, "error", err)
	}
	slog.Warn("video analysis failed", "video_id", videoID, "reason", message)
}

// failureMessage renders the chain's collected errors as one
// human-readable, stage-tagged string for the record's error field.
func failureMessage(errs map[string]error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
