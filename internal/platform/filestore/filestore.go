package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/gcp"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	ModeLocal       = "local"
	ModeGCS         = "gcs"
	ModeGCSEmulator = "gcs_emulator"
)

var ErrInvalidName = errors.New("invalid file name")

// FileStore holds uploaded recipe files by base name.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
}

// CleanName reduces name to its base and rejects names that cannot be stored.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", ErrInvalidName
	}
	base := filepath.Base(name)
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", ErrInvalidName
	}
	return base, nil
}

type localStore struct {
	log *logger.Logger
	dir string
}

// NewLocal stores files under dir, the volume shared with the uploader.
func NewLocal(log *logger.Logger, dir string) (FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "./recipes"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recipes dir: %w", err)
	}
	return &localStore{log: log.With("service", "LocalFileStore"), dir: dir}, nil
}

func (s *localStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	base, err := CleanName(name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, base)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", base, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", base, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", base, err)
	}
	s.log.Info("file saved", "filename", base)
	return base, nil
}

func (s *localStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	base, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.dir, base))
}

func (s *localStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list recipes dir: %w", err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

type bucketStore struct {
	log    *logger.Logger
	bucket gcp.Bucket
}

// NewBucket stores files as objects keyed by base name.
func NewBucket(log *logger.Logger, b gcp.Bucket) FileStore {
	return &bucketStore{log: log.With("service", "BucketFileStore"), bucket: b}
}

func (s *bucketStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	base, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if err := s.bucket.Upload(ctx, base, r); err != nil {
		return "", err
	}
	s.log.Info("file saved", "filename", base)
	return base, nil
}

func (s *bucketStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	base, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	return s.bucket.Download(ctx, base)
}

func (s *bucketStore) List(ctx context.Context) ([]string, error) {
	return s.bucket.ListKeys(ctx, "")
}
