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

// Package test provides utility functions and mock data to support the
// application's test suite: a cached test configuration, a sample provider
// response payload, and small helpers to reduce boilerplate in tests.
package test

import (
	"encoding/json"
	"log"
	"os"
	"testing"

	"github.com/tikvault/clipsight/internal/cloud"
	"github.com/tikvault/clipsight/internal/core/model"
)

// StateManager caches the application configuration during test runs so
// the TOML files are loaded only once per test binary.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil. Convenience helper to
// reduce error-checking boilerplate in tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestAnalysisPayload returns a JSON document shaped like a model
// response for the analysis prompt. It round-trips the canonical example
// analysis through the JSON encoder, so parser tests always exercise the
// current schema.
func GetTestAnalysisPayload() string {
	doc, err := json.Marshal(model.GetExampleAnalysis())
	if err != nil {
		panic(err)
	}
	return string(doc)
}

// SetupOS points the configuration loader at the test configuration. The
// runtime is set to "test" so ".env.test.toml" overrides the base file.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration, loading
// it from the TOML files on first use and caching it for later calls.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
