package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store writes documents below a directory on the local disk.
type Store struct {
	root      string
	publicURL string
}

func New(root, publicURL string) (*Store, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create file root %s: %w", root, err)
	}

	return &Store{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *Store) Upload(ctx context.Context, fileName string, content []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("upload %s: %w", fileName, err)
	}

	name := filepath.Base(fileName)

	if err := os.WriteFile(filepath.Join(s.root, name), content, filePerm); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return s.publicURL + "/" + name, nil
}

func (s *Store) Open(fileName string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.root, filepath.Base(fileName)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}

	return content, nil
}

func (s *Store) Close() error {
	return nil
}
