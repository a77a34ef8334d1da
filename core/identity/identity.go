// Package identity derives the identifiers used for source assets and their variants.
package identity

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ashermasroor/SlowRvbBass/model"

	"github.com/google/uuid"
)

const (
	// SourceIDLength is the number of hex characters in a source id.
	SourceIDLength = 6
	// VariantIDLength is the number of hex characters in a hashed variant id.
	VariantIDLength = 8
	// NoopSuffix marks the variant id of the no-effect tuple. It is not valid hex,
	// so it can never collide with a hashed id.
	NoopSuffix = "-rawcopy"

	canonicalDecimal = "%.4f"
)

var (
	sourceIDPattern = regexp.MustCompile(`^[0-9a-f]{6}$`)
	hashedIDPattern = regexp.MustCompile(`^[0-9a-f]{8}$`)
	noopIDPattern   = regexp.MustCompile(`^[0-9a-f]{6}-rawcopy$`)
)

// NewSourceID returns a short random token for a freshly acquired source.
func NewSourceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:SourceIDLength]
}

// DeriveVariantID maps (sourceID, params) to a stable identifier. The no-op tuple maps to
// "<sourceID>-rawcopy"; everything else to the first 8 hex chars of a name-based SHA-1 UUID
// over the canonical encoding.
func DeriveVariantID(sourceID string, params model.EffectParameters) string {
	params = Canonicalize(params)
	if params.IsNoop() {
		return sourceID + NoopSuffix
	}
	name := CanonicalString(sourceID, params)
	id := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name))
	return strings.ReplaceAll(id.String(), "-", "")[:VariantIDLength]
}

// CanonicalString is the textual encoding hashed by DeriveVariantID.
func CanonicalString(sourceID string, params model.EffectParameters) string {
	params = Canonicalize(params)
	return fmt.Sprintf("source=%s;speed="+canonicalDecimal+";reverb="+canonicalDecimal+";bass=%t",
		sourceID, params.Speed, params.Reverb, params.BassBoost)
}

// Canonicalize rounds float parameters to the fixed precision used for hashing so that
// representation noise (1 vs 1.0 vs 1.00001e0) does not produce different ids.
func Canonicalize(params model.EffectParameters) model.EffectParameters {
	params.Speed = round4(params.Speed)
	params.Reverb = round4(params.Reverb)
	if params.Reverb == 0 {
		params.Reverb = 0 // drops negative zero
	}
	return params
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// IsSourceID reports whether s has the shape of a source id.
func IsSourceID(s string) bool {
	return sourceIDPattern.MatchString(s)
}

// IsVariantID reports whether s has the shape of a variant id.
func IsVariantID(s string) bool {
	return hashedIDPattern.MatchString(s) || noopIDPattern.MatchString(s)
}

// SourceOf returns the source id embedded in a no-op variant id, if any.
func SourceOf(variantID string) (string, bool) {
	if !noopIDPattern.MatchString(variantID) {
		return "", false
	}
	return strings.TrimSuffix(variantID, NoopSuffix), true
}
