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

package cloud

import (
	"context"

	"google.golang.org/genai"
)

// ProviderFileAPI is the file surface of the generative AI provider: local
// upload, state lookup while the provider transcodes, and deletion once
// the analysis is done. Commands depend on this interface rather than the
// concrete client so tests can substitute a fake provider.
type ProviderFileAPI interface {
	Upload(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string) (*genai.File, error)
	Delete(ctx context.Context, name string) error
}

// GenAIFileAPI implements ProviderFileAPI on top of the genai client.
type GenAIFileAPI struct {
	client *genai.Client
}

// NewGenAIFileAPI wraps the file service of the given client.
func NewGenAIFileAPI(client *genai.Client) *GenAIFileAPI {
	return &GenAIFileAPI{client: client}
}

func (g *GenAIFileAPI) Upload(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error) {
	return g.client.Files.UploadFromPath(ctx, path, config)
}

func (g *GenAIFileAPI) Get(ctx context.Context, name string) (*genai.File, error) {
	return g.client.Files.Get(ctx, name, nil)
}

func (g *GenAIFileAPI) Delete(ctx context.Context, name string) error {
	_, err := g.client.Files.Delete(ctx, name, nil)
	return err
}
