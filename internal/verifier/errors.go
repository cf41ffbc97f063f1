package verifier

import (
	"errors"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"github.com/ironsheep/signature-tools-mcp/internal/imaging"
	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/store"
)

// Error kinds reported by Kind.
const (
	KindImageLoad            = "image_load"
	KindInsufficientFeatures = "insufficient_features"
	KindNotFound             = "not_found"
	KindWrite                = "write"
	KindInvalidInput         = "invalid_input"
)

// Kind maps an error chain to a short, stable kind string for CLI and MCP
// output. It returns "" for nil and for errors outside the known kinds.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var loadErr *imaging.ImageLoadError
	var writeErr *store.WriteError
	switch {
	case errors.As(err, &loadErr):
		return KindImageLoad
	case errors.Is(err, features.ErrInsufficientFeatures):
		return KindInsufficientFeatures
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.As(err, &writeErr):
		return KindWrite
	case errors.Is(err, store.ErrInvalidKey),
		errors.Is(err, matcher.ErrInvalidThreshold),
		errors.Is(err, features.ErrDimensionMismatch),
		errors.Is(err, features.ErrNonFiniteDescriptor):
		return KindInvalidInput
	}
	return ""
}
