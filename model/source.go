package model

import "time"

// Codec identifies the container/codec of a stored audio file.
type Codec string

const (
	CodecWAV Codec = "wav"
	CodecMP3 Codec = "mp3"
)

// ContentType returns the MIME type used when serving or uploading the codec.
func (c Codec) ContentType() string {
	switch c {
	case CodecWAV:
		return "audio/wav"
	case CodecMP3:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the file extension including the leading dot.
func (c Codec) Ext() string {
	return "." + string(c)
}

// Provider is the origin a source URL was classified as.
type Provider string

const (
	ProviderYouTube Provider = "youtube"
	ProviderSpotify Provider = "spotify"
)

// SourceAsset is the raw audio fetched from an origin URL, normalized into the working codec.
// It is immutable once created and is kept on disk so further variants can be derived from it.
type SourceAsset struct {
	ID        string    `json:"id"`
	OriginURL string    `json:"originUrl"`
	Provider  Provider  `json:"provider"`
	LocalPath string    `json:"-"`
	Codec     Codec     `json:"codec"`
	CreatedAt time.Time `json:"createdAt"`
}
