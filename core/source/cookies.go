package source

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashermasroor/SlowRvbBass/logger"
)

// WriteCookies decodes a base64 cookie jar into path for the downloader.
// An empty encoded value leaves any existing file alone.
func WriteCookies(path, encoded string) error {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode YouTube cookies: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cookies directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}
	logger.Info("YouTube cookies written", logger.String("path", path), logger.Int("bytes", len(data)))
	return nil
}
