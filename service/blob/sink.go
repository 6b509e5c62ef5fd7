// Package blob stores finished export files.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink persists a named artifact and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// FileSink writes artifacts into a local directory.
type FileSink struct {
	Dir string
}

// NewFileSink creates a sink rooted at dir. An empty dir means the working directory.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir}
}

// Put writes data to Dir/name, creating Dir if needed. name must be a bare
// file name.
func (s *FileSink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("blob: invalid file name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("blob: create directory %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("blob: write %s: %w", path, err)
	}
	return path, nil
}
