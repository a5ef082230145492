package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// tmpPrefix marks half-written files. They are never listed.
const tmpPrefix = ".tmp-"

// FileStore keeps every key as a file below a root directory, so a room can
// be inspected with a file browser. Creation goes through a temp file and a
// hard link, which fails if the target exists; marking is a hard link plus
// unlink, so a concurrent second rename loses instead of overwriting.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at dir.
// If dir is empty, defaults to "./data/rooms"
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "./data/rooms"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute directory holding the keys.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Close() error { return nil }

// Ping checks the root directory is still there.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func (s *FileStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FileStore) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	target, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(target); err == nil {
		return false, nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, err
	}

	tmp := filepath.Join(dir, tmpPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("link %s: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) RenameIfExists(ctx context.Context, oldKey, newKey string) (bool, error) {
	oldPath, err := s.path(oldKey)
	if err != nil {
		return false, err
	}
	newPath, err := s.path(newKey)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return false, err
	}

	if err := os.Link(oldPath, newPath); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return false, nil
		case errors.Is(err, fs.ErrExist):
			// Someone else finished this rename; drop the leftover.
			_ = os.Remove(oldPath)
			return false, nil
		}
		return false, fmt.Errorf("link %s: %w", newKey, err)
	}
	if err := os.Remove(oldPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return true, err
	}
	return true, nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// List walks the directory holding prefix and filters by the full key.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	start := s.root
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		start = filepath.Join(s.root, filepath.FromSlash(prefix[:i]))
	}

	var keys []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
