// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package models pre-downloads the conversion engine's model assets so
// hosted deployments start with a warm cache.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/docbench/internal/httputil"
	"github.com/pdiddy/docbench/internal/options"
	"github.com/pdiddy/docbench/pkg/types"
)

// Artifact is one model the engine loads at conversion time. Files are
// repo-relative paths resolved against the artifact host.
type Artifact struct {
	Name   string
	RepoID string
	Files  []string
}

// Manifest returns the model assets the engine needs for parsing plus
// every enrichment the UI can switch on.
func Manifest() []Artifact {
	return []Artifact{
		{
			Name:   "layout",
			RepoID: "ds4sd/docling-models",
			Files: []string{
				"model_artifacts/layout/model.safetensors",
				"model_artifacts/layout/config.json",
			},
		},
		{
			Name:   "tableformer",
			RepoID: "ds4sd/docling-models",
			Files: []string{
				"model_artifacts/tableformer/fast/tableformer_fast.safetensors",
				"model_artifacts/tableformer/fast/tm_config.json",
			},
		},
		{
			Name:   "figure-classifier",
			RepoID: "ds4sd/DocumentFigureClassifier",
			Files: []string{
				"model.safetensors",
				"config.json",
			},
		},
		{
			Name:   "picture-description",
			RepoID: options.PictureDescriptionModel,
			Files: []string{
				"model.safetensors",
				"config.json",
				"tokenizer.json",
			},
		},
		{
			Name:   "easyocr",
			RepoID: "JaidedAI/EasyOCR",
			Files: []string{
				"craft_mlt_25k.pth",
				"english_g2.pth",
			},
		},
	}
}

// Summary holds counts from a model download run.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the number of files processed.
func (s Summary) Total() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// HasFailures reports whether any files failed to download.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Downloader fetches model files into a local cache directory laid out
// as dir/<repo>/<file>.
type Downloader struct {
	client    *http.Client
	baseURL   string
	dir       string
	userAgent string
	token     string
}

// NewDownloader builds a downloader for cfg. token is an optional
// Hugging Face access token for gated repositories; empty means
// anonymous downloads.
func NewDownloader(cfg types.ModelsConfig, token string) *Downloader {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://huggingface.co"
	}
	return &Downloader{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   baseURL,
		dir:       cfg.Dir,
		userAgent: cfg.UserAgent,
		token:     token,
	}
}

// Download fetches every artifact file not already cached, printing
// per-file status to w and returning a summary. Failures do not stop
// the run.
func (d *Downloader) Download(ctx context.Context, artifacts []Artifact, w io.Writer) (Summary, error) {
	var summary Summary

	for _, a := range artifacts {
		for _, file := range a.Files {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			default:
			}

			label := a.Name + "/" + filepath.Base(file)
			dest := d.destPath(a, file)

			if _, err := os.Stat(dest); err == nil {
				fmt.Fprintf(w, "skipped: %s (already exists)\n", label)
				summary.Skipped++
				continue
			}

			fmt.Fprintf(w, "downloading: %s\n", label)
			if err := d.fetchFile(ctx, a, file, dest); err != nil {
				fmt.Fprintf(w, "failed:  %s (%v)\n", label, err)
				summary.Failed++
				continue
			}
			summary.Downloaded++
		}
	}

	fmt.Fprintf(w, "\nModel summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		summary.Downloaded, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}

// List prints each artifact file and whether it is cached, returning
// the cached and missing counts.
func (d *Downloader) List(artifacts []Artifact, w io.Writer) (cached, missing int) {
	for _, a := range artifacts {
		for _, file := range a.Files {
			dest := d.destPath(a, file)
			if _, err := os.Stat(dest); err == nil {
				fmt.Fprintf(w, "cached:  %s/%s\n", a.Name, filepath.Base(file))
				cached++
			} else {
				fmt.Fprintf(w, "missing: %s/%s\n", a.Name, filepath.Base(file))
				missing++
			}
		}
	}
	return cached, missing
}

func (d *Downloader) destPath(a Artifact, file string) string {
	return filepath.Join(d.dir, filepath.FromSlash(a.RepoID), filepath.FromSlash(file))
}

// fetchFile downloads one file to a temporary name and renames it into
// place on success, so a partial download never poses as a cached model.
func (d *Downloader) fetchFile(ctx context.Context, a Artifact, file, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", d.baseURL, a.RepoID, file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := httputil.DoWithRetry(ctx, d.client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".models-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
