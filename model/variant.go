package model

import (
	"fmt"
	"time"
)

const (
	DefaultSpeed     = 1.0
	DefaultReverb    = 0.0
	DefaultBassBoost = false
)

// EffectParameters is the user-facing parameter tuple for one variant.
type EffectParameters struct {
	Speed     float64 `json:"speed"`
	Reverb    float64 `json:"reverb"`
	BassBoost bool    `json:"bass_boost"`
}

// DefaultEffectParameters returns the canonical no-op tuple.
func DefaultEffectParameters() EffectParameters {
	return EffectParameters{Speed: DefaultSpeed, Reverb: DefaultReverb, BassBoost: DefaultBassBoost}
}

// IsNoop reports whether the tuple leaves the audio unchanged.
func (p EffectParameters) IsNoop() bool {
	return p.Speed == DefaultSpeed && p.Reverb <= DefaultReverb && !p.BassBoost
}

func (p EffectParameters) String() string {
	return fmt.Sprintf("speed=%.4f reverb=%.4f bass_boost=%t", p.Speed, p.Reverb, p.BassBoost)
}

// Variant is an effect-applied rendition of a source asset.
// LocalPath may point at a file that has already been evicted; DurableRef is set once the
// durable store has confirmed the upload and is authoritative from then on.
type Variant struct {
	ID         string           `json:"id"`
	SourceID   string           `json:"sourceId"`
	Params     EffectParameters `json:"params"`
	LocalPath  string           `json:"-"`
	DurableRef string           `json:"durableRef,omitempty"`
	Duration   float32          `json:"duration"`
	CreatedAt  time.Time        `json:"createdAt"`
	PlacedAt   *time.Time       `json:"placedAt,omitempty"`
}

// IsPlaced reports whether a durable copy has been confirmed.
func (v *Variant) IsPlaced() bool {
	return v != nil && v.DurableRef != ""
}

// ObjectName is the durable-store key for the variant.
func (v *Variant) ObjectName() string {
	return VariantObjectName(v.ID)
}

// VariantObjectName builds the durable-store key processed/<id>.mp3.
func VariantObjectName(variantID string) string {
	return "processed/" + variantID + CodecMP3.Ext()
}

// LocationKind tags a StorageLocation.
type LocationKind string

const (
	LocationLocal   LocationKind = "local"
	LocationDurable LocationKind = "durable"
)

// StorageLocation says where a variant can be read from. Path is set for local
// locations, URL for durable ones.
type StorageLocation struct {
	Kind LocationKind `json:"kind"`
	Path string       `json:"-"`
	URL  string       `json:"url,omitempty"`
}

// LocalLocation builds a local StorageLocation.
func LocalLocation(path string) StorageLocation {
	return StorageLocation{Kind: LocationLocal, Path: path}
}

// DurableLocation builds a durable StorageLocation.
func DurableLocation(url string) StorageLocation {
	return StorageLocation{Kind: LocationDurable, URL: url}
}

// IsLocal reports whether the location is on the local disk.
func (l StorageLocation) IsLocal() bool {
	return l.Kind == LocationLocal
}
