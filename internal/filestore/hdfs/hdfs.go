package hdfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/colinmarc/hdfs/v2"
	"github.com/sony/gobreaker"

	"github.com/avstrong/hotelbooking/internal/breaker"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const dirPerm = 0o755

type Config struct {
	L         *logger.Logger
	Addr      string
	Root      string
	PublicURL string
}

// Store keeps confirmation documents in HDFS.
type Store struct {
	l         *logger.Logger
	client    *hdfs.Client
	cb        *gobreaker.CircuitBreaker
	root      string
	publicURL string
}

func New(conf Config) (*Store, error) {
	client, err := hdfs.New(conf.Addr)
	if err != nil {
		return nil, fmt.Errorf("connect to hdfs %s: %w", conf.Addr, err)
	}

	root := path.Join("/", conf.Root)

	if err := client.MkdirAll(root, dirPerm); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("create hdfs root %s: %w", root, err)
	}

	return &Store{
		l:         conf.L,
		client:    client,
		cb:        breaker.New(conf.L, "hdfs"),
		root:      root,
		publicURL: strings.TrimRight(conf.PublicURL, "/"),
	}, nil
}

func (s *Store) Upload(ctx context.Context, fileName string, content []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("upload %s: %w", fileName, err)
	}

	filePath := path.Join(s.root, path.Base(fileName))

	_, err := breaker.Execute(s.cb, func() (struct{}, error) {
		return struct{}{}, s.write(filePath, content)
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to hdfs: %w", fileName, err)
	}

	s.l.LogDebug("Stored %s in hdfs (%d bytes)", filePath, len(content))

	return s.publicURL + "/" + path.Base(fileName), nil
}

func (s *Store) write(filePath string, content []byte) error {
	if err := s.client.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous %s: %w", filePath, err)
	}

	w, err := s.client.Create(filePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", filePath, err)
	}

	if _, err := w.Write(content); err != nil {
		_ = w.Close()

		return fmt.Errorf("write %s: %w", filePath, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filePath, err)
	}

	return nil
}

// Open streams a stored document back.
func (s *Store) Open(fileName string) ([]byte, error) {
	content, err := s.client.ReadFile(path.Join(s.root, path.Base(fileName)))
	if err != nil {
		return nil, fmt.Errorf("read %s from hdfs: %w", fileName, err)
	}

	return content, nil
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close hdfs client: %w", err)
	}

	return nil
}
