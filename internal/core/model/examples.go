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

// This file provides factory functions for hardcoded example instances of
// the analysis document. The example is embedded in the analysis prompt as
// a few-shot sample so the model returns JSON matching the exact structure
// the parser expects.
package model

// GetExampleAnalysis creates a fully populated sample VideoAnalysis. It is
// rendered into the analysis prompt to show the model the required shape
// of all five facets, including the optional fields.
func GetExampleAnalysis() *VideoAnalysis {
	return &VideoAnalysis{
		GeneralInfo: GeneralInfo{
			Title:            "60-Second Air Fryer Gnocchi",
			Category:         "food",
			OverallSentiment: "upbeat",
			TargetAudience:   "home cooks aged 18-34 looking for fast weeknight meals",
		},
		ContentAnalysis: ContentAnalysis{
			MainObjective: "Drive saves and shares by teaching a one-minute recipe.",
			KeyMessage:    "Crispy gnocchi needs no boiling, just an air fryer and 12 minutes.",
			HookStrategy:  "Opens on the finished dish with a bold claim overlay before showing any steps.",
		},
		ScriptBreakdown: []ScriptSegment{
			{
				SegmentID:         1,
				TimeRange:         "00:00 - 00:04",
				StartSeconds:      0,
				EndSeconds:        4,
				VisualDescription: "Close-up of golden gnocchi being shaken in an air fryer basket.",
				CameraAngle:       "overhead close-up",
				AudioTranscript:   "You have been cooking gnocchi wrong your whole life.",
				OnScreenText:      "NO BOILING NEEDED",
				Pacing:            "fast",
			},
			{
				SegmentID:         2,
				TimeRange:         "00:04 - 00:22",
				StartSeconds:      4,
				EndSeconds:        22,
				VisualDescription: "Hands toss shelf-stable gnocchi with oil and seasoning in a glass bowl.",
				CameraAngle:       "45-degree countertop",
				AudioTranscript:   "Straight from the packet, a tablespoon of olive oil, garlic powder, done.",
				OnScreenText:      "1 tbsp oil + garlic powder",
				Pacing:            "medium",
			},
		},
		TechnicalAudit: TechnicalAudit{
			EditingStyle: "jump cuts synced to beat drops",
			SoundDesign:  "trending audio bed under voiceover, sizzle foley boosted",
			CTAAnalysis:  "Verbal save-this-recipe prompt at the end, no follow CTA.",
			VideoQuality: "1080p, well lit, slight overexposure on the final plate shot",
			Transitions:  "whip pans between prep steps",
		},
		ViralityFactors: ViralityFactors{
			Score:                  8,
			Reasons:                "Strong contrarian hook, tight pacing, and a broadly replicable recipe.",
			ImprovementSuggestions: "Add a follow CTA and show the texture break earlier.",
			Strengths:              []string{"hook", "pacing", "replicability"},
			Weaknesses:             []string{"missing follow CTA"},
		},
	}
}
