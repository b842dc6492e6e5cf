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

// This file wraps the generative model handle with a token-bucket rate
// limiter so the pipeline cannot exceed the provider's request quota even
// when many analyses run concurrently.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: The model name, generation config, and
//     model handle bundled with a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: Constructor for the wrapped model.
//   - GenerateContent: Blocks on the limiter, then issues the request.
package cloud

import (
	"context"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel bundles a generation config and model handle
// with a rate limiter. Callers use it exactly like the underlying handle;
// the limiter is invisible apart from added latency under load.
type QuotaAwareGenerativeAIModel struct {
	GenerateConfig *genai.GenerateContentConfig // The generation parameters applied to every request.
	ModelName      string                       // The provider model name.
	ModelHandle    *genai.Models                // The underlying model service handle.
	RateLimit      *rate.Limiter                // Token bucket pacing outbound requests.
}

// NewQuotaAwareModel creates a rate-limited model wrapper. requestsPerSecond
// sets both the sustained rate and the burst size.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerateConfig: config,
		ModelName:      name,
		ModelHandle:    handle,
		RateLimit:      rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// GenerateContent waits for a rate-limiter token, then issues the
// generation request. The wait respects context cancellation, so a
// cancelled pipeline never holds a queued request.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerateConfig)
}
