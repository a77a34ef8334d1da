package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ashermasroor/SlowRvbBass/config"
	"github.com/ashermasroor/SlowRvbBass/core/audio"
	"github.com/ashermasroor/SlowRvbBass/core/identity"
	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"
)

// accessDeniedMarkers are diagnostics yt-dlp prints when the origin wants a login.
var accessDeniedMarkers = []string{
	"Sign in to confirm you",
	"confirm you're not a bot",
	"confirm you’re not a bot",
	"HTTP Error 403",
}

// Acquirer fetches audio from supported origins and normalizes it into a WAV source asset.
type Acquirer struct {
	ytDlpPath   string
	spotDLPath  string
	cookiesFile string
	downloadDir string
	sourcesDir  string
	runner      audio.Runner
	converter   audio.Processor
	newID       func() string
	now         func() time.Time
}

// NewAcquirer creates an Acquirer from configuration.
func NewAcquirer(cfg *config.Config, runner audio.Runner, converter audio.Processor) *Acquirer {
	if runner == nil {
		runner = audio.ExecRunner{}
	}
	return &Acquirer{
		ytDlpPath:   cfg.YtDlpPath,
		spotDLPath:  cfg.SpotDLPath,
		cookiesFile: cfg.CookiesFile,
		downloadDir: cfg.DownloadDir,
		sourcesDir:  cfg.SourcesDir,
		runner:      runner,
		converter:   converter,
		newID:       identity.NewSourceID,
		now:         time.Now,
	}
}

// Acquire downloads rawURL and returns the normalized source asset. Each call
// creates a new asset; existing assets are never touched.
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) (*model.SourceAsset, error) {
	provider, err := Classify(rawURL)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{a.downloadDir, a.sourcesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	id := a.newID()
	template := filepath.Join(a.downloadDir, id+"_raw.%(ext)s")

	var name string
	var args []string
	switch provider {
	case model.ProviderYouTube:
		name = a.ytDlpPath
		args = []string{"-x", "--audio-format", "wav"}
		if a.cookiesFile != "" {
			if _, err := os.Stat(a.cookiesFile); err == nil {
				args = append(args, "--cookies", a.cookiesFile)
			}
		}
		args = append(args, "-o", template, rawURL)
	case model.ProviderSpotify:
		name = a.spotDLPath
		args = []string{rawURL, "--output", template, "--format", "mp3", "--default-search", "ytsearch"}
	}

	logger.Info("Downloading source",
		logger.String("sourceId", id),
		logger.String("provider", string(provider)),
		logger.String("url", rawURL))

	result, err := a.runner.Run(ctx, name, args...)
	if err != nil {
		a.removeRaw(id)
		return nil, downloadError(name, result, err)
	}

	raw, err := a.findRaw(id)
	if err != nil {
		a.removeRaw(id)
		return nil, err
	}
	defer os.Remove(raw)

	wavPath := filepath.Join(a.sourcesDir, id+model.CodecWAV.Ext())
	if err := a.converter.ConvertToWAV(ctx, raw, wavPath); err != nil {
		a.removeRaw(id)
		return nil, fmt.Errorf("normalize source %s: %w", id, err)
	}

	asset := &model.SourceAsset{
		ID:        id,
		OriginURL: rawURL,
		Provider:  provider,
		LocalPath: wavPath,
		Codec:     model.CodecWAV,
		CreatedAt: a.now(),
	}
	logger.Info("Source acquired", logger.String("sourceId", id), logger.String("path", wavPath))
	return asset, nil
}

// downloadError classifies a failed downloader run.
func downloadError(name string, result audio.CommandResult, err error) error {
	kind := model.ErrDownloadFailed
	diag := result.Diagnostic()
	if isAccessDenied(diag) {
		kind = model.ErrAccessDenied
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		diag = strings.TrimSpace(diag + " " + err.Error())
	}
	logger.Warn("Downloader failed",
		logger.String("command", name),
		logger.Int("exitCode", result.ExitCode),
		logger.String("stderr", diag))
	return &model.ToolError{
		Kind:       kind,
		Command:    name,
		ExitCode:   result.ExitCode,
		Diagnostic: diag,
		Err:        err,
	}
}

func isAccessDenied(diag string) bool {
	for _, marker := range accessDeniedMarkers {
		if strings.Contains(diag, marker) {
			return true
		}
	}
	return false
}

// findRaw locates the downloader output for id, ignoring partial downloads.
func (a *Acquirer) findRaw(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(a.downloadDir, id+"_raw.*"))
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", a.downloadDir, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: no %s_raw.* in %s", model.ErrDownloadArtifactMissing, id, a.downloadDir)
}

// removeRaw deletes any downloader output left for id.
func (a *Acquirer) removeRaw(id string) {
	matches, _ := filepath.Glob(filepath.Join(a.downloadDir, id+"_raw.*"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove raw download", logger.String("path", m), logger.ErrorField(err))
		}
	}
}
