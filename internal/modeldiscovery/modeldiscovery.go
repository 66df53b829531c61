// Package modeldiscovery resolves the embedding model's directory by
// the host-supplied/environment/default priority chain and, optionally,
// acquires missing model files behind an interrupted-download marker —
// adapted from the host CLI's internal/preflight marker pattern and
// internal/embed/factory provider-selection chain, generalized from
// "which backend" to "which directory holds the model2vec artifacts".
package modeldiscovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codegraph-ai/codegraph-core/internal/cgerrors"
)

// RequiredFiles are the artifacts a model directory must contain.
var RequiredFiles = []string{"model.safetensors", "tokenizer.json", "config.json"}

const (
	EnvModelsPath    = "CODEGRAPH_MODELS_PATH"
	EnvModel2VecPath = "MODEL2VEC_PATH"

	downloadMarker = ".download-in-progress"
)

// hasModel reports whether dir contains every required file.
func hasModel(dir string) bool {
	if dir == "" {
		return false
	}
	for _, f := range RequiredFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	return true
}

func defaultHome() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	return home
}

// DefaultDir returns the default model directory under home, or "" if
// home can't be determined.
func DefaultDir() string {
	home := defaultHome()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".codegraph", "models", "model2vec")
}

// Discover resolves the model directory by priority: env override,
// host-supplied path, fallback env var, then the default
// <home>/.codegraph/models/model2vec. The first candidate whose
// directory contains every RequiredFiles entry wins.
func Discover(hostSuppliedPath string) (string, error) {
	candidates := []string{
		os.Getenv(EnvModelsPath),
		hostSuppliedPath,
		os.Getenv(EnvModel2VecPath),
	}
	if dir := DefaultDir(); dir != "" {
		candidates = append(candidates, dir)
	}

	var tried []string
	for _, c := range candidates {
		if c == "" {
			continue
		}
		tried = append(tried, c)
		if hasModel(c) {
			return c, nil
		}
	}
	return "", cgerrors.Model(fmt.Sprintf("no model found; tried: %v", tried), nil)
}

// NeedsAcquisition reports whether dir is missing the required files,
// i.e. the optional download collaborator should run.
func NeedsAcquisition(dir string) bool {
	return !hasModel(dir)
}

// markerPath returns the interrupted-download marker's path inside dir.
func markerPath(dir string) string {
	return filepath.Join(dir, downloadMarker)
}

// PrepareAcquisition purges any partial download left by a previous
// interrupted run (detected via the marker file) and (re)creates the
// marker before acquisition begins.
func PrepareAcquisition(dir string) error {
	marker := markerPath(dir)
	if _, err := os.Stat(marker); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return cgerrors.Storage("failed to purge partial model download", err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cgerrors.Storage("failed to create model directory", err)
	}
	return os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339)), 0644)
}

// CompleteAcquisition removes the interrupted-download marker on success.
func CompleteAcquisition(dir string) error {
	err := os.Remove(markerPath(dir))
	if err != nil && !os.IsNotExist(err) {
		return cgerrors.Storage("failed to clear download marker", err)
	}
	return nil
}

// Downloader is the optional, external acquisition collaborator: it
// fetches one required file from a known base URL into dir. Left as an
// interface because the model downloader itself is operational plumbing,
// not part of this package's contract — callers that want real network
// acquisition supply their own implementation.
type Downloader interface {
	Fetch(ctx context.Context, baseURL, dir, filename string) error
}

// Acquire fetches every RequiredFiles entry into dir via d, retrying
// each file with backoff (model hosts are flaky under load) and
// leaving the interrupted-download marker in place on failure so the
// next run's PrepareAcquisition purges the partial directory instead
// of trusting it.
func Acquire(ctx context.Context, d Downloader, baseURL, dir string) error {
	if err := PrepareAcquisition(dir); err != nil {
		return err
	}
	for _, filename := range RequiredFiles {
		err := cgerrors.Retry(ctx, cgerrors.DefaultRetryConfig(), func() error {
			return d.Fetch(ctx, baseURL, dir, filename)
		})
		if err != nil {
			return cgerrors.Model(fmt.Sprintf("failed to fetch %s", filename), err)
		}
	}
	return CompleteAcquisition(dir)
}
