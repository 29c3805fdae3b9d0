package ticketing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore is a filesystem-backed BlobStore. Artifacts land under dir and
// are served under baseURL.
type FSStore struct {
	dir     string
	baseURL string
}

func NewFSStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSStore{dir: dir, baseURL: baseURL}, nil
}

func (s *FSStore) Put(_ context.Context, name string, data []byte) (string, error) {
	name = filepath.Base(name)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return s.baseURL + "/" + name, nil
}
