package source

import (
	"errors"
	"testing"

	"github.com/ashermasroor/SlowRvbBass/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want model.Provider
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", model.ProviderYouTube},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ", model.ProviderYouTube},
		{"https://music.youtube.com/watch?v=abc", model.ProviderYouTube},
		{"https://m.youtube.com/watch?v=abc", model.ProviderYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", model.ProviderYouTube},
		{"  https://YOUTU.BE/abc  ", model.ProviderYouTube},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", model.ProviderSpotify},
	}
	for _, tt := range tests {
		got, err := Classify(tt.url)
		if err != nil {
			t.Errorf("Classify(%q) error: %v", tt.url, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestClassifyRejects(t *testing.T) {
	for _, raw := range []string{
		"https://soundcloud.com/artist/track",
		"https://notyoutube.com/watch?v=abc",
		"https://evil.com/?next=youtube.com",
		"https://youtube.com.evil.com/watch",
		"ftp://youtube.com/file",
		"youtube.com/watch?v=abc",
		"https://spotify.com/",
		"",
		"://bad",
	} {
		if _, err := Classify(raw); !errors.Is(err, model.ErrUnsupportedOrigin) {
			t.Errorf("Classify(%q) error = %v, want ErrUnsupportedOrigin", raw, err)
		}
	}
}
