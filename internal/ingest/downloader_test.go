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

package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInfoJSON = `{
	"title": "POV: you finally try the viral gnocchi",
	"extractor_key": "TikTok",
	"uploader": "foodwithsam",
	"duration": 34.5,
	"width": 1080,
	"height": 1920,
	"view_count": 2400000,
	"like_count": 310000,
	"comment_count": 4100,
	"repost_count": 18000,
	"tags": ["fyp", "AirFryer"],
	"description": "crispy outside, pillowy inside #airfryer #gnocchi #fyp"
}`

func TestDownloadParsesInfo(t *testing.T) {
	var gotArgs []string
	d := &Downloader{
		Path: "yt-dlp",
		execFn: func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
			gotArgs = args
			return []byte(sampleInfoJSON), nil, nil
		},
	}

	outcome, err := d.Download(context.Background(), "https://www.tiktok.com/@foodwithsam/video/1", "/tmp/videos", "vid_x")
	require.NoError(t, err)

	assert.Contains(t, gotArgs, "--no-playlist")
	assert.Contains(t, gotArgs, "--print-json")
	assert.Contains(t, gotArgs, filepath.Join("/tmp/videos", "vid_x.%(ext)s"))
	// The remux pair guarantees the file on disk really is vid_x.mp4, even
	// when the platform serves a single-file download in another container.
	require.Contains(t, gotArgs, "--remux-video")
	assert.Equal(t, "mp4", gotArgs[slices.Index(gotArgs, "--remux-video")+1])
	require.Contains(t, gotArgs, "--fixup")
	assert.Equal(t, "force", gotArgs[slices.Index(gotArgs, "--fixup")+1])

	assert.Equal(t, filepath.Join("/tmp/videos", "vid_x.mp4"), outcome.LocalPath)
	assert.Equal(t, "POV: you finally try the viral gnocchi", outcome.Title)
	assert.Equal(t, "tiktok", outcome.Platform)
	assert.Equal(t, "foodwithsam", outcome.Uploader)
	assert.Equal(t, 34.5, outcome.DurationSecs)
	assert.Equal(t, 1080, outcome.Width)
	assert.Equal(t, int64(2400000), outcome.ViewCount)
	assert.Equal(t, int64(18000), outcome.ShareCount)
	// Tags and description hashtags merged, lowercased, deduplicated.
	assert.Equal(t, []string{"fyp", "airfryer", "gnocchi"}, outcome.Hashtags)
}

func TestDownloadCommandFailure(t *testing.T) {
	d := &Downloader{
		Path: "yt-dlp",
		execFn: func(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
			return nil, []byte("ERROR: Unsupported URL"), errors.New("exit status 1")
		},
	}

	_, err := d.Download(context.Background(), "https://example.com/notavideo", "/tmp/videos", "vid_x")
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "ERROR: Unsupported URL", execErr.Stderr)
	assert.Contains(t, execErr.Error(), "yt-dlp")
}

func TestDownloadRejectsEmptyURL(t *testing.T) {
	d := NewDownloader()
	_, err := d.Download(context.Background(), "  ", "/tmp/videos", "vid_x")
	assert.Error(t, err)
}

func TestDownloadBadInfoJSON(t *testing.T) {
	d := &Downloader{
		Path: "yt-dlp",
		execFn: func(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
			return []byte("not json"), nil, nil
		},
	}
	_, err := d.Download(context.Background(), "https://www.tiktok.com/@a/video/1", "/tmp/videos", "vid_x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "info json")
}

func TestHashtagsFrom(t *testing.T) {
	tags := hashtagsFrom([]string{"#FYP", "cooking"}, "dinner idea #fyp #EasyRecipe")
	assert.Equal(t, []string{"fyp", "cooking", "easyrecipe"}, tags)
	assert.Empty(t, hashtagsFrom(nil, "no tags here"))
}
