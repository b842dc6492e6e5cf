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

// This file tests the provider upload command against a fake file API,
// covering the poll loop, the deadline, and terminal provider states.
package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/tikvault/clipsight/internal/core/commands"
	"github.com/tikvault/clipsight/internal/core/cor"
	"github.com/tikvault/clipsight/internal/core/model"
)

// fakeFileAPI simulates the provider File Service. The file stays in the
// processing state for activeAfter Get calls, then reports finalState.
type fakeFileAPI struct {
	activeAfter int
	finalState  genai.FileState
	uploadErr   error
	getCalls    int
	deleted     []string
}

func (f *fakeFileAPI) Upload(_ context.Context, _ string, config *genai.UploadFileConfig) (*genai.File, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	state := genai.FileStateProcessing
	if f.activeAfter == 0 {
		state = f.finalState
	}
	return &genai.File{
		Name:        "files/fake-upload",
		URI:         "https://provider.example/files/fake-upload",
		DisplayName: config.DisplayName,
		State:       state,
	}, nil
}

func (f *fakeFileAPI) Get(_ context.Context, name string) (*genai.File, error) {
	f.getCalls++
	state := genai.FileStateProcessing
	if f.getCalls >= f.activeAfter {
		state = f.finalState
	}
	return &genai.File{Name: name, URI: "https://provider.example/" + name, State: state}, nil
}

func (f *fakeFileAPI) Delete(_ context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

// uploadContext builds a chain context carrying a record with a local mp4.
func uploadContext(ctx context.Context) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	record := model.NewVideoRecord(model.SourceUpload)
	record.LocalPath = "testdata/sample.mp4"
	record.Metadata.Extension = "mp4"
	chainCtx.Add(cor.CtxIn, record)
	return chainCtx
}

// TestProviderUploadBecomesActive verifies the poll loop: the file is
// processing for two polls, then active, and the command emits a file ref.
func TestProviderUploadBecomesActive(t *testing.T) {
	files := &fakeFileAPI{activeAfter: 2, finalState: genai.FileStateActive}
	cmd := commands.NewProviderUpload("provider-upload", files, time.Millisecond, time.Second)

	chainCtx := uploadContext(context.Background())
	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	ref := chainCtx.Get(cmd.GetOutputParam()).(*model.ProviderFileRef)
	assert.Equal(t, "files/fake-upload", ref.Name)
	assert.Equal(t, "video/mp4", ref.MIMEType)
	assert.Equal(t, 2, files.getCalls)
}

// TestProviderUploadDeadline verifies that a file stuck in processing
// fails with a timeout-kind error once the poll deadline passes.
func TestProviderUploadDeadline(t *testing.T) {
	files := &fakeFileAPI{activeAfter: 1 << 30, finalState: genai.FileStateActive}
	cmd := commands.NewProviderUpload("provider-upload", files, time.Millisecond, 10*time.Millisecond)

	chainCtx := uploadContext(context.Background())
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Equal(t, commands.KindTimeout, commands.KindOf(err))
	}
}

// TestProviderUploadCancelled verifies that cancelling the Go context
// aborts the wait instead of polling to the deadline.
func TestProviderUploadCancelled(t *testing.T) {
	files := &fakeFileAPI{activeAfter: 1 << 30, finalState: genai.FileStateActive}
	cmd := commands.NewProviderUpload("provider-upload", files, 50*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chainCtx := uploadContext(ctx)
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Equal(t, commands.KindTimeout, commands.KindOf(err))
	}
}

// TestProviderUploadTerminalFailure verifies that a provider-side failed
// state surfaces as an upload-kind error.
func TestProviderUploadTerminalFailure(t *testing.T) {
	files := &fakeFileAPI{activeAfter: 1, finalState: genai.FileStateFailed}
	cmd := commands.NewProviderUpload("provider-upload", files, time.Millisecond, time.Second)

	chainCtx := uploadContext(context.Background())
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Equal(t, commands.KindUpload, commands.KindOf(err))
	}
}

// TestProviderUploadFailedUpload verifies the error path when the initial
// upload itself is rejected.
func TestProviderUploadFailedUpload(t *testing.T) {
	files := &fakeFileAPI{uploadErr: errors.New("quota exhausted")}
	cmd := commands.NewProviderUpload("provider-upload", files, time.Millisecond, time.Second)

	chainCtx := uploadContext(context.Background())
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Equal(t, commands.KindUpload, commands.KindOf(err))
	}
}
