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

// This file reads technical metadata from a stored file with ffprobe.
// Probing is best-effort enrichment: an absent or failing ffprobe never
// blocks ingest, it only leaves the duration and dimensions unset.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"

	"github.com/tikvault/clipsight/internal/core/model"
)

// Prober shells out to ffprobe for container metadata.
type Prober struct {
	// Path to the ffprobe executable. Defaults to "ffprobe".
	Path string

	execFn func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewProber returns a Prober using the ffprobe binary from PATH.
func NewProber() *Prober {
	return &Prober{Path: "ffprobe"}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration and frame dimensions from the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (*model.MediaProbe, error) {
	name := p.Path
	if name == "" {
		name = "ffprobe"
	}
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	var (
		out []byte
		err error
	)
	if p.execFn != nil {
		out, err = p.execFn(ctx, name, args...)
	} else {
		cmd := exec.CommandContext(ctx, name, args...)
		var buf bytes.Buffer
		cmd.Stdout = &buf
		err = cmd.Run()
		out = buf.Bytes()
	}
	if err != nil {
		return nil, err
	}

	var decoded probeOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		return nil, err
	}

	probe := &model.MediaProbe{}
	if d, err := strconv.ParseFloat(decoded.Format.Duration, 64); err == nil {
		probe.DurationSeconds = d
	}
	for _, stream := range decoded.Streams {
		if stream.CodecType == "video" {
			probe.Width = stream.Width
			probe.Height = stream.Height
			break
		}
	}
	return probe, nil
}
