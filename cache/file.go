package cache

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// DefaultSuffix is appended to every key by NewFileStore.
const DefaultSuffix = ".ser"

// FileStore keeps one file per key at <Root>/<key><Suffix>.
type FileStore struct {
	Root   string
	Suffix string
}

// NewFileStore returns a FileStore rooted at root using DefaultSuffix.
func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root, Suffix: DefaultSuffix}
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.Root, key+s.Suffix)
}

// Exists reports whether an artifact for key is present.
func (s *FileStore) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && !info.IsDir()
}

// Load decodes the artifact for key into v.
func (s *FileStore) Load(key string, v any) (bool, error) {
	if !s.Exists(key) {
		return false, nil
	}
	path := s.Path(key)
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := Decode(f, v); err != nil {
		return false, errors.Wrapf(err, "load %s", path)
	}
	return true, nil
}

// Store encodes v into the artifact for key. The file is written to a
// temporary name first and renamed into place.
func (s *FileStore) Store(key string, v any) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", path)
	}
	if err := Encode(tmp, v); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "store %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "rename to %s", path)
}
