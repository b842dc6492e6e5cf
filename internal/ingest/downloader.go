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

// This file wraps yt-dlp for fetching remote platform videos. The binary
// is driven through os/exec; an injectable exec function lets tests run
// the downloader without the binary installed.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tikvault/clipsight/internal/core/model"
)

// ExecError carries the full invocation detail when yt-dlp fails, so the
// failed record's error message names the real cause rather than just an
// exit code.
type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	cmdline := strings.TrimSpace(e.Cmd + " " + strings.Join(e.Args, " "))
	if e.ExitCode != 0 {
		return fmt.Sprintf("yt-dlp: command failed (exit %d): %s", e.ExitCode, cmdline)
	}
	return fmt.Sprintf("yt-dlp: command failed: %s", cmdline)
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Downloader fetches remote videos with yt-dlp.
type Downloader struct {
	// Path to the yt-dlp executable. Defaults to "yt-dlp" (PATH lookup).
	Path string

	execFn func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// NewDownloader returns a Downloader using the yt-dlp binary from PATH.
func NewDownloader() *Downloader {
	return &Downloader{Path: "yt-dlp"}
}

func (d *Downloader) exec(ctx context.Context, args ...string) (stdout []byte, stderr []byte, err error) {
	name := d.Path
	if strings.TrimSpace(name) == "" {
		name = "yt-dlp"
	}
	if d.execFn != nil {
		return d.execFn(ctx, name, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func (d *Downloader) wrapErr(args []string, stderr []byte, err error) error {
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &ExecError{
		Cmd:      d.Path,
		Args:     args,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(string(stderr)),
		Cause:    err,
	}
}

// downloadInfo is the subset of yt-dlp's info JSON the service keeps.
type downloadInfo struct {
	Title        string   `json:"title"`
	Extractor    string   `json:"extractor_key"`
	Uploader     string   `json:"uploader"`
	Duration     float64  `json:"duration"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	ViewCount    int64    `json:"view_count"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	RepostCount  int64    `json:"repost_count"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
}

// Download fetches the video at url into destDir under the given base
// name and returns the local path plus platform metadata. The remux flags
// force the result into an mp4 container even for single-file downloads
// that arrive in another format, so the returned path is always the
// baseName.mp4 the output template produces. The metadata side of the
// info JSON is best-effort; the local file is not.
func (d *Downloader) Download(ctx context.Context, url string, destDir string, baseName string) (*model.DownloadOutcome, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("yt-dlp: url is required")
	}

	outputTemplate := filepath.Join(destDir, baseName+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--remux-video", "mp4",
		"--fixup", "force",
		"--print-json",
		"-o", outputTemplate,
		url,
	}

	stdout, stderr, err := d.exec(ctx, args...)
	if err != nil {
		return nil, d.wrapErr(args, stderr, err)
	}

	var info downloadInfo
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &info); err != nil {
		return nil, fmt.Errorf("yt-dlp: failed to decode info json: %w", err)
	}

	outcome := &model.DownloadOutcome{
		LocalPath:    filepath.Join(destDir, baseName+".mp4"),
		Title:        info.Title,
		Platform:     strings.ToLower(info.Extractor),
		Uploader:     info.Uploader,
		Hashtags:     hashtagsFrom(info.Tags, info.Description),
		ViewCount:    info.ViewCount,
		LikeCount:    info.LikeCount,
		CommentCount: info.CommentCount,
		ShareCount:   info.RepostCount,
		DurationSecs: info.Duration,
		Width:        info.Width,
		Height:       info.Height,
	}
	return outcome, nil
}

// hashtagsFrom merges explicit tags with #tags scraped from the post
// description, deduplicated and without the # prefix.
func hashtagsFrom(tags []string, description string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(tags))
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		out = append(out, tag)
	}
	for _, t := range tags {
		add(t)
	}
	for _, field := range strings.Fields(description) {
		if strings.HasPrefix(field, "#") {
			add(field)
		}
	}
	return out
}
