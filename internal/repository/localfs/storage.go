// Package localfs stores index artifacts as files under a root directory.
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kailas-cloud/tickerdex/internal/domain"
)

const dirPerm = 0o755

// Storage reads and writes artifacts by name. Writes go through a temp file
// and a rename so a reader never observes a partially written artifact.
type Storage struct {
	fs   afero.Fs
	root string
}

// New creates a Storage rooted at root on the given filesystem.
func New(fsys afero.Fs, root string) *Storage {
	return &Storage{fs: fsys, root: filepath.Clean(root)}
}

// NewOS creates a Storage on the OS filesystem.
func NewOS(root string) *Storage {
	return New(afero.NewOsFs(), root)
}

// Root returns the storage directory.
func (s *Storage) Root() string { return s.root }

// Init creates the root directory if needed.
func (s *Storage) Init() error {
	if err := s.fs.MkdirAll(s.root, dirPerm); err != nil {
		return fmt.Errorf("create root dir %s: %w", s.root, err)
	}
	return nil
}

// Write atomically replaces the named artifact with data.
func (s *Storage) Write(name string, data []byte) error {
	target, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}

	f, err := afero.TempFile(s.fs, s.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Read returns the named artifact. A missing file yields domain.ErrArtifactMissing.
func (s *Storage) Read(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, domain.ErrArtifactMissing)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// List returns the names of artifacts in the root directory ending with suffix.
func (s *Storage) List(suffix string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Storage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact name %q: %w", name, domain.ErrInvalidInput)
	}
	return filepath.Join(s.root, name), nil
}
