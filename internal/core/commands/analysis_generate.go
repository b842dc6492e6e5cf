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

// This file defines the command that asks the generative model for the
// five-facet analysis of an uploaded video.
//
// Logic Flow:
//  1. Receive the ProviderFileRef produced by the upload command.
//  2. Render the analysis prompt template, embedding a complete example
//     document so the model mirrors the exact JSON shape (few-shot).
//  3. Issue one multi-modal generation request: the file reference plus
//     the rendered prompt, bounded by the configured request timeout.
//  4. Hand the raw JSON text to the parse command. Generation is never
//     retried; a failed call fails the pipeline.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tikvault/clipsight/internal/cloud"
	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
)

// AnalysisGenerator prompts the generative model for the structured
// analysis of one video file.
type AnalysisGenerator struct {
	cor.BaseCommand
	generator          cloud.ContentGenerator // The rate-limited generative model.
	template           *template.Template     // The prompt template.
	requestTimeout     time.Duration          // Per-call deadline for the generation request.
	inputTokenCounter  metric.Int64Counter    // Prompt tokens used.
	outputTokenCounter metric.Int64Counter    // Candidate tokens generated.
}

// NewAnalysisGenerator is the constructor for the AnalysisGenerator
// command.
func NewAnalysisGenerator(
	name string,
	generator cloud.ContentGenerator,
	promptTemplate *template.Template,
	requestTimeout time.Duration) *AnalysisGenerator {

	out := &AnalysisGenerator{
		BaseCommand:    *cor.NewBaseCommand(name),
		generator:      generator,
		template:       promptTemplate,
		requestTimeout: requestTimeout,
	}

	out.inputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.outputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))

	return out
}

// GenerateParams builds the dynamic values substituted into the prompt
// template. The embedded example document pins the output structure.
func (t *AnalysisGenerator) GenerateParams(_ cor.Context) map[string]interface{} {
	params := make(map[string]interface{})
	exampleAnalysis, _ := json.Marshal(model.GetExampleAnalysis())
	params["EXAMPLE_JSON"] = string(exampleAnalysis)
	params["SCORE_MAX"] = model.ViralityScoreMax
	return params
}

// Execute renders the prompt and issues the generation request.
func (t *AnalysisGenerator) Execute(context cor.Context) {
	fileRef := context.Get(t.GetInputParam()).(*model.ProviderFileRef)

	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(context)); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), NewStageError(t.GetName(), KindRequest,
			fmt.Errorf("failed to execute prompt template: %w", err)))
		return
	}

	contents := cloud.NewMultiModalContent(buffer.String(), fileRef.URI, fileRef.MIMEType)

	reqCtx, cancel := contextWithTimeout(context.GetContext(), t.requestTimeout)
	defer cancel()

	out, err := cloud.GenerateMultiModalResponse(reqCtx, t.inputTokenCounter, t.outputTokenCounter, t.generator, contents)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), NewStageError(t.GetName(), KindRequest,
			fmt.Errorf("generation request failed: %w", err)))
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), &model.AnalysisCandidate{
		VideoID: fileRef.VideoID,
		Payload: out,
		FileRef: fileRef,
	})
}

func contextWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
