// Package effects compiles effect parameters into an ordered, declarative list of
// audio filter stages. Nothing here runs a process; the transcoder renders the list
// into an ffmpeg filter graph.
package effects

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ashermasroor/SlowRvbBass/core/identity"
	"github.com/ashermasroor/SlowRvbBass/model"
)

// Kind names one stage type. Stages always appear in the order tempo, reverb, bass, lowpass.
type Kind string

const (
	KindTempo   Kind = "tempo"
	KindReverb  Kind = "reverb"
	KindBass    Kind = "bass"
	KindLowpass Kind = "lowpass"
)

const (
	// MinTempo and MaxTempo bound the factor a single atempo stage accepts.
	MinTempo = 0.5
	MaxTempo = 2.0
	// MaxTempoStages bounds the decomposition of extreme speeds.
	MaxTempoStages = 16

	// ReverbMaxDecay is the aecho decay reached at reverb=100.
	ReverbMaxDecay = 1.0
	MaxReverb      = 100.0

	BassGainDB       = 10.0
	LowpassCutoffHz  = 3000.0
	reverbInGain     = 0.8
	reverbOutGain    = 0.88
	reverbDelayMilli = 60
)

// Stage is one filter in the chain. Value is the stage's native parameter:
// tempo factor, echo decay, bass gain in dB or cutoff frequency in Hz.
type Stage struct {
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
}

// Filter renders the stage as an ffmpeg audio filter.
func (s Stage) Filter() string {
	switch s.Kind {
	case KindTempo:
		return "atempo=" + formatFloat(s.Value)
	case KindReverb:
		return fmt.Sprintf("aecho=%s:%s:%d:%s",
			formatFloat(reverbInGain), formatFloat(reverbOutGain), reverbDelayMilli, formatFloat(s.Value))
	case KindBass:
		return "bass=g=" + formatFloat(s.Value)
	case KindLowpass:
		return "lowpass=f=" + formatFloat(s.Value)
	default:
		return ""
	}
}

func (s Stage) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, formatFloat(s.Value))
}

// Validate checks the parameter ranges.
func Validate(p model.EffectParameters) error {
	if math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) || p.Speed <= 0 {
		return fmt.Errorf("%w: speed must be a positive number, got %v", model.ErrInvalidParameters, p.Speed)
	}
	if math.IsNaN(p.Reverb) || p.Reverb < 0 || p.Reverb > MaxReverb {
		return fmt.Errorf("%w: reverb must be within [0, 100], got %v", model.ErrInvalidParameters, p.Reverb)
	}
	if p.Speed > math.Pow(MaxTempo, MaxTempoStages) || p.Speed < math.Pow(MinTempo, MaxTempoStages) {
		return fmt.Errorf("%w: speed %v needs more than %d tempo stages", model.ErrInvalidParameters, p.Speed, MaxTempoStages)
	}
	return nil
}

// Normalize rounds params to the precision variant ids are derived from, so two
// tuples that share an id also share a chain.
func Normalize(p model.EffectParameters) model.EffectParameters {
	return identity.Canonicalize(p)
}

// Prepare validates p, normalizes it and validates the normalized tuple. Speeds that
// pass the range check but round to zero are rejected here.
func Prepare(p model.EffectParameters) (model.EffectParameters, error) {
	if err := Validate(p); err != nil {
		return p, err
	}
	n := Normalize(p)
	if err := Validate(n); err != nil {
		return p, fmt.Errorf("%w: speed %v rounds to %v", model.ErrInvalidParameters, p.Speed, n.Speed)
	}
	return n, nil
}

// Compile translates params into the ordered stage list. The no-op tuple compiles to
// an empty list so that the transcoder performs a plain re-encode.
func Compile(p model.EffectParameters) ([]Stage, error) {
	p, err := Prepare(p)
	if err != nil {
		return nil, err
	}
	if p.IsNoop() {
		return nil, nil
	}

	var stages []Stage
	if p.Speed != 1.0 {
		for _, factor := range DecomposeTempo(p.Speed) {
			stages = append(stages, Stage{Kind: KindTempo, Value: factor})
		}
	}
	if p.Reverb > 0 {
		stages = append(stages, Stage{Kind: KindReverb, Value: ReverbDecay(p.Reverb)})
	}
	if p.BassBoost {
		stages = append(stages, Stage{Kind: KindBass, Value: BassGainDB})
	}
	stages = append(stages, Stage{Kind: KindLowpass, Value: LowpassCutoffHz})
	return stages, nil
}

// DecomposeTempo splits speed into factors within [MinTempo, MaxTempo] whose product is
// speed. Full-range stages come first and the last factor carries the remainder.
// Non-positive or non-finite speeds yield nil.
func DecomposeTempo(speed float64) []float64 {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return nil
	}
	var factors []float64
	remaining := speed
	for remaining > MaxTempo {
		factors = append(factors, MaxTempo)
		remaining /= MaxTempo
	}
	for remaining < MinTempo {
		factors = append(factors, MinTempo)
		remaining /= MinTempo
	}
	return append(factors, remaining)
}

// ReverbDecay maps a reverb percentage onto the aecho decay range linearly.
func ReverbDecay(reverb float64) float64 {
	if reverb <= 0 {
		return 0
	}
	return math.Min(reverb, MaxReverb) / MaxReverb * ReverbMaxDecay
}

// Render joins the stages into an ffmpeg filter graph. An empty list renders as "".
func Render(stages []Stage) string {
	filters := make([]string, 0, len(stages))
	for _, s := range stages {
		if f := s.Filter(); f != "" {
			filters = append(filters, f)
		}
	}
	return strings.Join(filters, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
