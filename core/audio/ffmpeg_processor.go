package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ashermasroor/SlowRvbBass/core/effects"
	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"
)

// FFmpegProcessor implements the Processor interface using ffmpeg and ffprobe.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
	bitrate     string
	runner      Runner
}

// NewFFmpegProcessor creates a new FFmpegProcessor that runs real processes.
func NewFFmpegProcessor(ffmpegPath, bitrate string) *FFmpegProcessor {
	return NewFFmpegProcessorWithRunner(ffmpegPath, bitrate, ExecRunner{})
}

// NewFFmpegProcessorWithRunner creates a processor with an injected runner.
func NewFFmpegProcessorWithRunner(ffmpegPath, bitrate string, runner Runner) *FFmpegProcessor {
	if bitrate == "" {
		bitrate = "192k"
	}
	return &FFmpegProcessor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1),
		bitrate:     bitrate,
		runner:      runner,
	}
}

// Transcode runs ffmpeg once with the rendered filter graph and encodes MP3.
// Output goes to a temporary sibling first and is renamed into place on success,
// so a failed run never leaves a servable file at outputPath.
func (p *FFmpegProcessor) Transcode(ctx context.Context, inputPath string, stages []effects.Stage, outputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("%w: input %s: %v", model.ErrAssetNotFound, inputPath, err)
	}

	graph := effects.Render(stages)
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", inputPath, "-vn"}
	if graph != "" {
		args = append(args, "-af", graph)
	}
	args = append(args, "-codec:a", "libmp3lame", "-b:a", p.bitrate, "-f", "mp3")

	logger.Info("Applying effects",
		logger.String("input", inputPath),
		logger.String("output", outputPath),
		logger.String("filters", graph),
		logger.Int("stages", len(stages)))

	return p.runToFile(ctx, args, outputPath, model.ErrEffectApplication)
}

// ConvertToWAV normalizes a downloaded file into 16-bit PCM WAV.
func (p *FFmpegProcessor) ConvertToWAV(ctx context.Context, inputPath, outputPath string) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", inputPath, "-vn",
		"-acodec", "pcm_s16le", "-f", "wav"}
	return p.runToFile(ctx, args, outputPath, model.ErrEffectApplication)
}

// runToFile appends a temporary output path to args, runs ffmpeg and renames the
// result to outputPath. Partial output is removed on any failure.
func (p *FFmpegProcessor) runToFile(ctx context.Context, args []string, outputPath string, kind error) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create temp output in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	result, err := p.runner.Run(ctx, p.ffmpegPath, append(args, tmpPath)...)
	if err != nil {
		os.Remove(tmpPath)
		logger.Error("ffmpeg execution failed",
			logger.String("output", outputPath),
			logger.Int("exitCode", result.ExitCode),
			logger.String("stderr", result.Diagnostic()))
		return &model.ToolError{
			Kind:       kind,
			Command:    p.ffmpegPath,
			ExitCode:   result.ExitCode,
			Diagnostic: result.Diagnostic(),
			Err:        err,
		}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", outputPath, err)
	}
	return nil
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetAudioDuration uses ffprobe to get the duration of an audio file in seconds.
func (p *FFmpegProcessor) GetAudioDuration(ctx context.Context, inputFile string) (float32, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	result, err := p.runner.Run(ctx, p.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, result.Stderr)
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal([]byte(result.Stdout), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w\nFFprobe Output: %s", inputFile, err, result.Stdout)
	}

	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s\nFFprobe Output: %s", inputFile, result.Stdout)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string \"%s\" for %s: %w", probeData.Format.Duration, inputFile, err)
	}

	return float32(duration), nil
}
