package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// ImageLoadError reports that a signature image could not be opened or decoded.
//
// Path is empty when the image came from a stream rather than a file.
// The underlying cause is available through errors.Unwrap / errors.Is.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load image: %v", e.Err)
	}
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// DefaultCacheSize is the number of decoded images an ImageCache keeps.
const DefaultCacheSize = 32

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path, together
// with the file's size and modification time. A Load whose file still matches
// returns the cached copy; a file that was replaced since it was cached is decoded
// again. At most DefaultCacheSize images are kept, the oldest entry being dropped
// first.
//
// Only the inspection tools read through the cache. Enroll and verify decode every
// scan with Open.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/scans/alice-1.png")
//	if err != nil {
//	    var loadErr *imaging.ImageLoadError
//	    errors.As(err, &loadErr) // always true
//	}
//	cache.Evict("/scans/alice-1.png")
type ImageCache struct {
	mu       sync.RWMutex
	images   map[string]cachedImage
	order    []string
	capacity int
}

type cachedImage struct {
	img     image.Image
	size    int64
	modTime int64
}

// NewImageCache creates and initializes a new empty image cache holding up to
// DefaultCacheSize images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheSize)
}

// NewImageCacheSize creates an empty cache holding up to capacity images.
// A capacity below 1 is treated as 1.
func NewImageCacheSize(capacity int) *ImageCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ImageCache{
		images:   make(map[string]cachedImage),
		capacity: capacity,
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached
// or if the file changed since it was cached.
//
// Parameters:
//   - path: Absolute or relative file path to the image. Supported formats are
//     PNG, JPEG, and GIF. JPEG EXIF orientation is applied, so a scan taken
//     with a rotated phone is returned upright.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: A *ImageLoadError if the file cannot be opened or decoded, or has
//     zero width or height.
func (c *ImageCache) Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	size, modTime := info.Size(), info.ModTime().UnixNano()

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.size == size && entry.modTime == modTime {
		return entry.img, nil
	}

	img, err := Open(path)
	if err != nil {
		c.Evict(path)
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.images[path]; !ok {
		c.order = append(c.order, path)
	}
	c.images[path] = cachedImage{img: img, size: size, modTime: modTime}
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.images, oldest)
	}
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Open decodes the image at path straight from disk, applying EXIF orientation.
//
// Errors are returned as *ImageLoadError carrying the path.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	if img.Bounds().Empty() {
		return nil, &ImageLoadError{Path: path, Err: ErrEmptyImage}
	}
	return img, nil
}

// Decode reads one image from r, applying EXIF orientation.
//
// Errors are returned as *ImageLoadError with an empty Path.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Err: err}
	}
	if img.Bounds().Empty() {
		return nil, &ImageLoadError{Err: ErrEmptyImage}
	}
	return img, nil
}

// ImageInfo contains metadata about a loaded signature image file.
type ImageInfo struct {
	// Path is the file the metadata was read from.
	Path string `json:"path"`

	// Width is the image width in pixels, after EXIF orientation.
	Width int `json:"width"`

	// Height is the image height in pixels, after EXIF orientation.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	// Transparent pixels are treated as paper by the preprocessor.
	HasAlpha bool `json:"has_alpha"`

	// Grayscale is true when the file is already single-channel.
	Grayscale bool `json:"grayscale"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: A *ImageLoadError if the image cannot be loaded or the file cannot be stat'd.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	grayscale := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray:
		grayscale = true
	case *image.Gray16:
		grayscale = true
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Path:          path,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		Grayscale:     grayscale,
		FileSizeBytes: stat.Size(),
	}, nil
}
