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

// This file holds the setup and initialization logic for the server's state.
// A single StateManager carries the configuration, provider and database
// clients, and the application services so that the route handlers never
// reach for globals beyond it.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/tikvault/clipsight/internal/cloud"
	"github.com/tikvault/clipsight/internal/core/services"
	"github.com/tikvault/clipsight/internal/core/workflow"
	"github.com/tikvault/clipsight/internal/ingest"
)

// StateManager holds all the shared dependencies for the server, acting as a
// centralized container for service clients and configuration.
type StateManager struct {
	config   *cloud.Config
	clients  *cloud.ServiceClients
	store    services.VideoStore
	cache    *services.AnalysisCache
	ingest   *ingest.Service
	pipeline *workflow.AnalysisWorkflow
}

// state is the single instance of StateManager for the process.
var state = &StateManager{}

// SetupOS points the configuration loader at the configs directory and picks
// the runtime environment. The loader overlays ".env.<runtime>.toml" on top
// of the base ".env.toml".
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration,
// loading it from the TOML files on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState initializes the entire application state: provider and database
// clients, schema migrations, the video store and cache, the ingest service,
// and the analysis pipeline.
func InitState(ctx context.Context) {
	config := GetConfig()

	clients, err := cloud.NewServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.clients = clients

	dbURL := os.Getenv(config.Database.URLEnv)
	if err := services.RunMigrations(dbURL, config.Database.MigrationsDir); err != nil {
		panic(err)
	}

	state.store = services.NewPostgresStore(clients.DBPool)

	ttl := time.Duration(config.Cache.AnalysisTTLMinute) * time.Minute
	state.cache = services.NewAnalysisCache(clients.RedisClient, ttl)

	state.ingest, err = ingest.NewService(
		state.store,
		ingest.NewDownloader(),
		ingest.NewProber(),
		config.Application.StorageDir,
		config.Application.MaxUploadMegabytes,
	)
	if err != nil {
		panic(err)
	}

	state.pipeline = workflow.NewAnalysisPipeline(ctx, config, clients, state.store, "analyzer")
}
