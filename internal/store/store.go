package store

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
)

var (
	// ErrNotFound is returned when no template exists under the requested key.
	ErrNotFound = errors.New("template not found")

	// ErrInvalidKey is returned for keys that cannot safely name a template.
	ErrInvalidKey = errors.New("invalid template key")

	// ErrCorruptTemplate is returned when a stored template cannot be decoded.
	ErrCorruptTemplate = errors.New("corrupt template")
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]{0,127}$`)

// WriteError reports a failed Save. The previous template under Key, if any,
// is left intact.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write template %q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store persists descriptor sets under string keys.
//
// Save overwrites any existing template for the key. Implementations must make
// each Save atomic per key: a concurrent or later Load sees either the old or
// the new template, never a mixture.
type Store interface {
	Save(key string, set *features.DescriptorSet) error
	Load(key string) (*features.DescriptorSet, error)
	Delete(key string) error
	Keys() ([]string, error)
}

// Open returns the store for a backend name. dir is ignored by the memory backend.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(dir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (must be file or memory)", backend)
	}
}

// ValidateKey checks that key is 1-128 characters of letters, digits, '.', '_'
// or '-' and does not start with '.'.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// checkSet rejects sets that must never be persisted.
func checkSet(set *features.DescriptorSet) error {
	if set.Empty() {
		return features.ErrInsufficientFeatures
	}
	return set.Validate()
}

func notFound(key string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, key)
}
