package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
)

// TemplateExt is the file extension of stored templates.
const TemplateExt = ".sigt"

// FileStore keeps one file per template in a directory.
//
// Save writes to a temporary file in the same directory, syncs it and renames it
// over the target, so readers never observe a partially written template and
// concurrent writers to one key resolve as last writer wins. A failed Save
// removes its temporary file and leaves the previous template in place.
type FileStore struct {
	dir string

	// sync flushes the temporary file to stable storage before rename.
	sync func(*os.File) error
}

// NewFileStore opens (creating if needed) a template directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("template directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}
	return &FileStore{dir: dir, sync: (*os.File).Sync}, nil
}

// Dir returns the template directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path a key is stored at.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+TemplateExt)
}

// Save writes set under key, replacing any existing template.
func (s *FileStore) Save(key string, set *features.DescriptorSet) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := checkSet(set); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := encodeTemplate(tmp, set); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	if err := s.sync(tmp); err != nil {
		return &WriteError{Key: key, Err: fmt.Errorf("failed to sync: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return &WriteError{Key: key, Err: err}
	}
	committed = true
	return nil
}

// Load reads the template stored under key.
func (s *FileStore) Load(key string) (*features.DescriptorSet, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("failed to open template %q: %w", key, err)
	}
	defer f.Close()

	set, err := decodeTemplate(f)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", key, err)
	}
	return set, nil
}

// Delete removes the template stored under key.
func (s *FileStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(key)
		}
		return fmt.Errorf("failed to delete template %q: %w", key, err)
	}
	return nil
}

// Keys returns the keys of all templates in the directory, sorted.
// Temporary files from in-flight writes are never listed.
func (s *FileStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TemplateExt) {
			continue
		}
		key := strings.TrimSuffix(e.Name(), TemplateExt)
		if ValidateKey(key) != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
