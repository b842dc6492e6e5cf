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

// This file contains general-purpose helpers for the cloud package:
// hierarchical configuration loading and the shared wrapper for issuing
// generation requests against the provider.
//
// Functions:
//   - LoadConfig: Hierarchical configuration loader. Reads a base file and
//     then overlays an environment-specific file (.env.local.toml,
//     .env.test.toml, ...) selected by an environment variable.
//   - GenerateMultiModalResponse: Executes a multi-modal generation call,
//     records token-usage metrics, and strips markdown code fences from
//     the response text.
//   - NewMultiModalContent: Factory for the text-plus-file prompt content.
package cloud

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"                    // The base name for configuration files.
	ConfigFileExtension = ".toml"                   // The configuration file extension.
	ConfigSeparator     = "."                       // The separator in config file names (e.g. ".env.local.toml").
	EnvConfigFilePrefix = "CLIPSIGHT_CONFIG_PREFIX" // The environment variable naming the config directory.
	EnvConfigRuntime    = "CLIPSIGHT_RUNTIME"       // The environment variable naming the runtime context (e.g. "local", "test").
)

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides hierarchical configuration loading. It first loads a
// base configuration file and then overlays the values from an
// environment-specific file. The config directory and runtime environment
// are determined by the CLIPSIGHT_CONFIG_PREFIX and CLIPSIGHT_RUNTIME
// environment variables; the runtime defaults to "test".
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Values in the environment-specific file overwrite the base config.
	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// ContentGenerator is the minimal generation surface the helper below
// needs. *QuotaAwareGenerativeAIModel satisfies it; tests substitute a
// canned implementation.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

// GenerateMultiModalResponse executes a multi-modal generation request
// against the given model, records prompt and candidate token counts,
// concatenates the text parts of every candidate, and strips a
// surrounding markdown JSON fence if the model emitted one.
//
// Generation calls are never retried here: a failed or malformed response
// must surface to the caller so the video can be marked failed rather than
// silently re-billed.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	model ContentGenerator,
	content []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	value = ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				value += part.Text
			}
		}
	}
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}

// NewMultiModalContent builds the user content for a prompt that pairs
// instruction text with an uploaded provider file.
func NewMultiModalContent(prompt string, fileURI string, mimeType string) []*genai.Content {
	return []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
				{FileData: &genai.FileData{FileURI: fileURI, MIMEType: mimeType}},
			},
			Role: "user",
		},
	}
}
