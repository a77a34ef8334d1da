package audio

import (
	"context"

	"github.com/ashermasroor/SlowRvbBass/core/effects"
)

// Processor defines the audio operations the pipeline needs from the external encoder.
type Processor interface {
	// Transcode applies stages to inputPath and writes the delivery codec to outputPath.
	Transcode(ctx context.Context, inputPath string, stages []effects.Stage, outputPath string) error
	// ConvertToWAV re-encodes any input into the PCM working format.
	ConvertToWAV(ctx context.Context, inputPath, outputPath string) error
	// GetAudioDuration returns the duration in seconds.
	GetAudioDuration(ctx context.Context, inputPath string) (float32, error)
}
