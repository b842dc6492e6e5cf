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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, along with the shared clients for external
// services (the generative AI provider, Postgres, and Redis).
//
// Structs:
//   - Application: General service settings (port, storage paths, limits).
//   - Database: Postgres connection settings.
//   - Cache: Redis connection and TTL settings.
//   - Provider: File-processing poll cadence and deadlines for the AI provider.
//   - GenerativeModel: Configuration for a single generative model.
//   - PromptTemplates: Text templates for prompts sent to the models.
//   - Config: The top-level struct aggregating all of the above.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the content safety thresholds applied to
// every generation request. Short-form social video routinely trips the
// default filters (loud music, stunts, slang), so all categories are set
// to BLOCK_NONE; the input is operator-supplied, not end-user supplied.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Application holds general service settings.
type Application struct {
	Name               string `toml:"name"`                 // The service name, used in telemetry resource attributes.
	Port               int    `toml:"port"`                 // The HTTP listen port.
	StorageDir         string `toml:"storage_dir"`          // The directory where ingested video files are written.
	MaxUploadMegabytes int64  `toml:"max_upload_megabytes"` // The upper bound for a single ingested file, in MB.
	MaxConcurrent      int    `toml:"max_concurrent"`       // The maximum number of analysis pipelines running at once.
}

// Database holds the Postgres connection settings. The DSN itself is read
// from the environment, never from TOML.
type Database struct {
	URLEnv        string `toml:"url_env"`        // The environment variable holding the Postgres DSN.
	MigrationsDir string `toml:"migrations_dir"` // The directory containing golang-migrate SQL files.
}

// Cache holds the Redis settings for the analysis read-through cache.
type Cache struct {
	Addr              string `toml:"addr"`                // The Redis host:port. Empty disables caching.
	AnalysisTTLMinute int    `toml:"analysis_ttl_minute"` // How long a finished analysis document stays cached.
}

// Provider holds the file-processing cadence for the generative AI
// provider's Files API.
type Provider struct {
	APIKeyEnv             string `toml:"api_key_env"`             // The environment variable holding the provider API key.
	PollIntervalSeconds   int    `toml:"poll_interval_seconds"`   // The flat interval between file-state polls.
	PollTimeoutSeconds    int    `toml:"poll_timeout_seconds"`    // The deadline for a file to become ACTIVE.
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // The per-call deadline for generation requests.
}

// GenerativeModel represents the configuration for a generative model.
type GenerativeModel struct {
	Model              string  `toml:"model"`               // The provider model name (e.g. "gemini-2.5-flash").
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the model.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter.
	TopP               float32 `toml:"top_p"`               // The top_p parameter.
	TopK               float32 `toml:"top_k"`               // The top_k parameter.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of output tokens.
	OutputFormat       string  `toml:"output_format"`       // The response MIME type (e.g. "application/json").
	RateLimit          int     `toml:"rate_limit"`          // The rate limit in requests per second.
}

// PromptTemplates holds the templates for prompts sent to the models.
type PromptTemplates struct {
	AnalysisPrompt string `toml:"analysis"` // The template for the five-facet video analysis request.
}

// Config represents the overall configuration for the service, loaded from
// TOML files. It acts as the root container for all other configuration
// structs.
type Config struct {
	Application     Application                `toml:"application"`      // General application settings.
	Database        Database                   `toml:"database"`         // Postgres settings.
	Cache           Cache                      `toml:"cache"`            // Redis settings.
	Provider        Provider                   `toml:"provider"`         // Provider poll cadence and deadlines.
	PromptTemplates PromptTemplates            `toml:"prompt_templates"` // Prompt templates.
	AgentModels     map[string]GenerativeModel `toml:"agent_models"`     // Generative models, keyed by a logical name (e.g. "analyzer").
}

// NewConfig creates a new, initialized Config instance. The map fields must
// be initialized before the TOML decoder populates them.
func NewConfig() *Config {
	return &Config{
		AgentModels: make(map[string]GenerativeModel),
	}
}
