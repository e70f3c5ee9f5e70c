// Package filestore persists uploaded receipt images on local disk and
// hands back the public URL they are served from.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store writes receipt files under a base directory and builds their
// public URLs from a base URL.
type Store struct {
	baseDir       string
	publicBaseURL string
}

func New(baseDir, publicBaseURL string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Save writes the receipt bytes to disk under a timestamped, sanitized
// name and returns the public URL plus the stored filename.
func (s *Store) Save(data []byte, suggestedName string) (url string, filename string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("receipt data cannot be empty")
	}

	filename = fmt.Sprintf("%d_%s", time.Now().UnixMilli(), SanitizeFilename(suggestedName))
	path := filepath.Join(s.baseDir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write receipt file: %w", err)
	}

	return s.publicBaseURL + "/uploads/" + filename, filename, nil
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string {
	return s.baseDir
}

// SanitizeFilename strips path components and replaces characters that
// are unsafe in filenames or URLs.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "receipt"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "receipt"
	}
	return out
}
