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

// This file defines the terminal success command of the pipeline: writing
// the validated analysis document to the store. The write is atomic with
// the status transition to analyzed, so a reader can never observe an
// analyzed record without its document or vice versa.
package commands

import (
	"fmt"
	"time"

	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
	"github.com/tikvault/clipsight/internal/core/services"
)

// GetPipelineStartParameterName returns the canonical context key where
// the workflow records the pipeline start time, used here to compute the
// persisted processing duration.
func GetPipelineStartParameterName() string {
	return "__PIPELINE_START__"
}

// AnalysisPersist writes a validated analysis document to the store.
type AnalysisPersist struct {
	cor.BaseCommand
	store services.VideoStore
}

// NewAnalysisPersist is the constructor for the AnalysisPersist command.
func NewAnalysisPersist(name string, store services.VideoStore) *AnalysisPersist {
	return &AnalysisPersist{BaseCommand: *cor.NewBaseCommand(name), store: store}
}

// Execute stores the analysis with the analyzed status and the elapsed
// processing time, then passes the result through for the cleanup step.
func (p *AnalysisPersist) Execute(context cor.Context) {
	result := context.Get(p.GetInputParam()).(*model.AnalysisResult)

	var processingTimeMs int64
	if start, ok := context.Get(GetPipelineStartParameterName()).(time.Time); ok {
		processingTimeMs = time.Since(start).Milliseconds()
	}

	if err := p.store.MarkAnalyzed(context.GetContext(), result.VideoID, result.Analysis, processingTimeMs); err != nil {
		p.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(p.GetName(), NewStageError(p.GetName(), KindRequest,
			fmt.Errorf("failed to persist analysis: %w", err)))
		return
	}

	p.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(p.GetOutputParam(), result)
}
