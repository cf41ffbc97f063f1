package features

import (
	"fmt"
	"image"
	"sort"
	"sync"
)

// DefaultExtractor is the extractor used when configuration names none.
const DefaultExtractor = "gradient"

// Extractor turns a binarized signature image into a descriptor set.
//
// Implementations must return an empty set, not an error, when no keypoints are found.
type Extractor interface {
	Name() string
	Extract(img *image.Gray) (*DescriptorSet, error)
}

// Options tunes keypoint detection. Zero values select the defaults.
type Options struct {
	// MaxKeypoints caps the number of keypoints kept, strongest first. Default 500.
	MaxKeypoints int `yaml:"max_keypoints" json:"max_keypoints"`

	// QualityLevel is the minimum corner response as a fraction of the strongest. Default 0.01.
	QualityLevel float64 `yaml:"quality_level" json:"quality_level"`

	// MinDistance is the minimum spacing between keypoints in pixels. Default 5.
	MinDistance int `yaml:"min_distance" json:"min_distance"`
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.MaxKeypoints <= 0 {
		o.MaxKeypoints = 500
	}
	if o.QualityLevel <= 0 {
		o.QualityLevel = 0.01
	}
	if o.MinDistance <= 0 {
		o.MinDistance = 5
	}
	return o
}

// Factory builds an extractor from options.
type Factory func(opts Options) (Extractor, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an extractor available by name. Registering a name twice replaces it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
}

// New builds the named extractor. An empty name selects DefaultExtractor.
func New(name string, opts Options) (Extractor, error) {
	if name == "" {
		name = DefaultExtractor
	}
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown extractor %q (available: %v)", name, Available())
	}
	return factory(opts.withDefaults())
}

// Available lists registered extractor names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
