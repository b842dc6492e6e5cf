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

// This file initializes and holds the client objects for every external
// service the pipeline talks to. It acts as a dependency injection
// container: `NewServiceClients` is called once at startup and the
// resulting struct is shared across handlers and workflows.
//
// Structs:
//   - ServiceClients: All initialized external clients and model wrappers.
//
// Functions:
//   - NewServiceClients: Factory that builds every client from the Config.
//   - Close: Releases all client connections.
package cloud

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"
)

// ServiceClients is a container for all clients that talk to external
// services: the generative AI provider, Postgres, and Redis. Sharing one
// instance keeps connection pools and rate limiters process-wide.
type ServiceClients struct {
	GenAIClient   *genai.Client                           // Client for the generative AI provider.
	ProviderFiles ProviderFileAPI                         // File upload/poll/delete surface of the provider.
	DBPool        *pgxpool.Pool                           // Postgres connection pool.
	RedisClient   *redis.Client                           // Redis client for the analysis cache. Nil when caching is disabled.
	AgentModels   map[string]*QuotaAwareGenerativeAIModel // Rate-limited generative models, keyed by logical name.
}

// Close releases all client connections. The genai client holds no
// long-lived connection of its own, so only the pool and Redis need
// explicit shutdown.
func (c *ServiceClients) Close() {
	if c.DBPool != nil {
		c.DBPool.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
}

// NewServiceClients initializes every external client from the loaded
// configuration. The provider API key and the Postgres DSN are read from
// the environment variables named in the config, never from TOML.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	apiKey := os.Getenv(config.Provider.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("provider api key environment variable %q is not set", config.Provider.APIKeyEnv)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	dbURL := os.Getenv(config.Database.URLEnv)
	if dbURL == "" {
		return nil, fmt.Errorf("database url environment variable %q is not set", config.Database.URLEnv)
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var redisClient *redis.Client
	if config.Cache.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: config.Cache.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", config.Cache.Addr, err)
		}
	}

	// Build a rate-limited wrapper per configured agent model.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		generateConfig := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		agentModels[amKey] = NewQuotaAwareModel(generateConfig, values.Model, gc.Models, values.RateLimit)
	}

	return &ServiceClients{
		GenAIClient:   gc,
		ProviderFiles: NewGenAIFileAPI(gc),
		DBPool:        pool,
		RedisClient:   redisClient,
		AgentModels:   agentModels,
	}, nil
}
