package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePublisher writes objects below a local directory
type FilePublisher struct {
	root string
}

// NewFilePublisher creates a publisher rooted at dir
func NewFilePublisher(dir string) *FilePublisher {
	return &FilePublisher{root: dir}
}

// Publish writes body to root/key
func (p *FilePublisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("key %q escapes the publish root", key)
	}

	path := filepath.Join(p.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}
