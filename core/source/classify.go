package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ashermasroor/SlowRvbBass/model"
)

// Classify maps a URL to the provider that can fetch it.
func Classify(rawURL string) (model.Provider, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrUnsupportedOrigin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", model.ErrUnsupportedOrigin, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	switch {
	case host == "youtu.be", matchDomain(host, "youtube.com"):
		return model.ProviderYouTube, nil
	case host != "spotify.com" && matchDomain(host, "spotify.com"):
		return model.ProviderSpotify, nil
	}
	return "", fmt.Errorf("%w: host %q", model.ErrUnsupportedOrigin, host)
}

// matchDomain reports whether host is domain or one of its subdomains.
func matchDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
