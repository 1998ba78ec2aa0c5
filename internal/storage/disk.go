package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukerupert/daybreak/internal/source"
)

// DiskUploader writes images below Dir; the server serves them under
// BaseURL. Used when no bucket is configured.
type DiskUploader struct {
	Dir     string
	BaseURL string
}

var _ source.Uploader = (*DiskUploader)(nil)

func (d *DiskUploader) UploadImage(_ context.Context, data []byte, path string) (string, error) {
	rel := filepath.Clean("/" + path)
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid upload path %q", path)
	}
	dst := filepath.Join(d.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return strings.TrimRight(d.BaseURL, "/") + filepath.ToSlash(rel), nil
}
