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

// This file defines the command that turns the model's raw JSON text into
// a validated VideoAnalysis document.
//
// Validation is strict on structure and permissive on content: all five
// top-level facets must be present as the right JSON type, while optional
// sub-fields (video_quality, transitions, strengths, weaknesses) may be
// absent. The virality score is clamped into range rather than rejected,
// and segment start/end seconds are derived from the textual time range
// when the model leaves them out. On schema failure the raw payload is
// logged for diagnosis but never persisted.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
)

// requiredFacets are the five top-level keys every analysis payload must
// carry.
var requiredFacets = []string{
	"general_info",
	"content_analysis",
	"script_breakdown",
	"technical_audit",
	"virality_factors",
}

// AnalysisParser validates and normalizes the raw model output.
type AnalysisParser struct {
	cor.BaseCommand
}

// NewAnalysisParser is the constructor for the AnalysisParser command.
func NewAnalysisParser(name string) *AnalysisParser {
	return &AnalysisParser{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute decodes the candidate payload, enforces the facet schema, and
// normalizes scores and segment timings.
func (p *AnalysisParser) Execute(context cor.Context) {
	candidate := context.Get(p.GetInputParam()).(*model.AnalysisCandidate)

	analysis, err := ParseAnalysis(candidate.Payload)
	if err != nil {
		// The raw payload is logged, not stored: failed payloads carry no
		// analysis value but are the only evidence for prompt debugging.
		slog.Error("analysis payload failed schema validation",
			"video_id", candidate.VideoID,
			"error", err,
			"payload", candidate.Payload)
		p.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(p.GetName(), NewStageError(p.GetName(), KindSchema, err))
		return
	}

	p.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(p.GetOutputParam(), &model.AnalysisResult{
		VideoID:  candidate.VideoID,
		Analysis: analysis,
		FileRef:  candidate.FileRef,
	})
}

// ParseAnalysis decodes raw JSON text into a VideoAnalysis, enforcing the
// five-facet schema and applying score clamping and segment time
// enrichment. The returned error names the first offending field.
func ParseAnalysis(payload string) (*model.VideoAnalysis, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	for _, facet := range requiredFacets {
		raw, ok := probe[facet]
		if !ok {
			return nil, fmt.Errorf("missing required field %q", facet)
		}
		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "null" {
			return nil, fmt.Errorf("required field %q is null", facet)
		}
	}

	var analysis model.VideoAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("payload does not match the analysis schema: %w", err)
	}
	if len(analysis.ScriptBreakdown) == 0 {
		return nil, fmt.Errorf("required field %q is empty", "script_breakdown")
	}

	analysis.ClampScore()
	for i := range analysis.ScriptBreakdown {
		enrichSegmentTimes(&analysis.ScriptBreakdown[i])
	}
	return &analysis, nil
}

// enrichSegmentTimes fills StartSeconds/EndSeconds from the textual
// "MM:SS - MM:SS" range when the model omitted the numeric fields.
func enrichSegmentTimes(seg *model.ScriptSegment) {
	if seg.EndSeconds > 0 || seg.TimeRange == "" {
		return
	}
	parts := strings.SplitN(seg.TimeRange, "-", 2)
	if len(parts) != 2 {
		return
	}
	start, okStart := parseClockTime(strings.TrimSpace(parts[0]))
	end, okEnd := parseClockTime(strings.TrimSpace(parts[1]))
	if okStart && okEnd && end >= start {
		seg.StartSeconds = start
		seg.EndSeconds = end
	}
}

// parseClockTime parses "MM:SS" or "HH:MM:SS" into seconds.
func parseClockTime(in string) (float64, bool) {
	fields := strings.Split(in, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, false
	}
	total := 0.0
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || v < 0 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
