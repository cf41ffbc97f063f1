package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Grayscale conversion modes.
const (
	GrayscaleLuma      = "luma"
	GrayscaleLightness = "lightness"
)

// Options controls the preprocessing pipeline.
type Options struct {
	// Grayscale selects the intensity conversion: "luma" (weighted RGB) or
	// "lightness" (CIE L*).
	Grayscale string `yaml:"grayscale" json:"grayscale"`

	// BlurRadius is the Gaussian smoothing radius in pixels; 2 gives a 5x5
	// neighbourhood. 0 disables smoothing.
	BlurRadius float64 `yaml:"blur_radius" json:"blur_radius"`

	// BlockSize is the adaptive threshold window (odd, >= 3).
	BlockSize int `yaml:"block_size" json:"block_size"`

	// C is subtracted from the local mean before comparison.
	C float64 `yaml:"c" json:"c"`

	// Method is the local mean weighting: "gaussian" or "mean".
	Method string `yaml:"method" json:"method"`

	// Invert makes ink white (255) on a black background.
	Invert bool `yaml:"invert" json:"invert"`

	// Sharpen applies LaplacianSharpen with SharpenAmount before smoothing.
	Sharpen       bool    `yaml:"sharpen" json:"sharpen"`
	SharpenAmount float64 `yaml:"sharpen_amount" json:"sharpen_amount"`

	// ResizeWidth and ResizeHeight rescale the input first. 0 keeps that
	// dimension (or preserves aspect ratio when the other is set).
	ResizeWidth  int `yaml:"resize_width" json:"resize_width"`
	ResizeHeight int `yaml:"resize_height" json:"resize_height"`

	// Crop trims the binarized result to the ink bounding box plus CropMargin.
	Crop       bool `yaml:"crop" json:"crop"`
	CropMargin int  `yaml:"crop_margin" json:"crop_margin"`
}

// DefaultOptions returns the standard pipeline: luma grayscale, 5x5 Gaussian
// smoothing and an 11-pixel Gaussian adaptive threshold with C = 2.
func DefaultOptions() Options {
	return Options{
		Grayscale:     GrayscaleLuma,
		BlurRadius:    2,
		BlockSize:     11,
		C:             2,
		Method:        ThresholdGaussian,
		SharpenAmount: 0.5,
		CropMargin:    4,
	}
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	switch o.Grayscale {
	case GrayscaleLuma, GrayscaleLightness:
	default:
		return fmt.Errorf("grayscale must be %q or %q, got %q", GrayscaleLuma, GrayscaleLightness, o.Grayscale)
	}
	switch o.Method {
	case ThresholdGaussian, ThresholdMean:
	default:
		return fmt.Errorf("method must be %q or %q, got %q", ThresholdGaussian, ThresholdMean, o.Method)
	}
	if o.BlockSize < 3 || o.BlockSize%2 == 0 {
		return fmt.Errorf("block_size must be odd and >= 3, got %d", o.BlockSize)
	}
	if o.BlurRadius < 0 || math.IsNaN(o.BlurRadius) {
		return fmt.Errorf("blur_radius must be >= 0, got %v", o.BlurRadius)
	}
	if math.IsNaN(o.C) || math.IsInf(o.C, 0) {
		return errors.New("c must be a finite number")
	}
	if o.Sharpen && (o.SharpenAmount <= 0 || math.IsInf(o.SharpenAmount, 0)) {
		return fmt.Errorf("sharpen_amount must be > 0, got %v", o.SharpenAmount)
	}
	if o.ResizeWidth < 0 || o.ResizeHeight < 0 {
		return fmt.Errorf("resize dimensions must be >= 0, got %dx%d", o.ResizeWidth, o.ResizeHeight)
	}
	if o.CropMargin < 0 {
		return fmt.Errorf("crop_margin must be >= 0, got %d", o.CropMargin)
	}
	return nil
}

// Preprocessor turns a raw signature scan into a binarized single-channel image.
//
// A Preprocessor holds only its options and is safe for concurrent use. Input
// images are never modified.
type Preprocessor struct {
	opts Options
}

// NewPreprocessor validates opts and returns a Preprocessor.
func NewPreprocessor(opts Options) (*Preprocessor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess options: %w", err)
	}
	return &Preprocessor{opts: opts}, nil
}

// Options returns the options the Preprocessor was built with.
func (p *Preprocessor) Options() Options {
	return p.opts
}

// InkValue returns the pixel value strokes have in Preprocess output.
func (p *Preprocessor) InkValue() uint8 {
	if p.opts.Invert {
		return 255
	}
	return 0
}

// Stages holds every intermediate image of one Preprocess run.
// Sharpened is nil unless sharpening is enabled.
type Stages struct {
	Gray      *image.Gray
	Sharpened *image.Gray
	Blurred   *image.Gray
	Binary    *image.Gray
	Result    *image.Gray
}

// Preprocess runs the full pipeline and returns the binarized image.
func (p *Preprocessor) Preprocess(img image.Image) (*image.Gray, error) {
	st, err := p.Stages(img)
	if err != nil {
		return nil, err
	}
	return st.Result, nil
}

// Stages runs the pipeline and keeps every intermediate image.
//
// # Pipeline
//
//  1. Optional resize (Lanczos)
//  2. Transparent pixels flattened onto white paper, then grayscale
//  3. Optional Laplacian sharpening
//  4. Gaussian smoothing
//  5. Adaptive threshold
//  6. Optional crop to ink
func (p *Preprocessor) Stages(img image.Image) (*Stages, error) {
	if img == nil {
		return nil, errors.New("preprocess: nil image")
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	o := p.opts

	src := img
	if o.ResizeWidth > 0 || o.ResizeHeight > 0 {
		src = imaging.Resize(src, o.ResizeWidth, o.ResizeHeight, imaging.Lanczos)
	}

	st := &Stages{}
	st.Gray = grayscale(flattenAlpha(src), o.Grayscale)

	cur := st.Gray
	if o.Sharpen {
		st.Sharpened = LaplacianSharpen(cur, o.SharpenAmount)
		cur = st.Sharpened
	}

	if o.BlurRadius > 0 {
		st.Blurred = toGray(blur.Gaussian(cur, o.BlurRadius))
	} else {
		st.Blurred = toGray(cur)
	}

	st.Binary = AdaptiveThreshold(st.Blurred, o.BlockSize, o.C, o.Method, o.Invert)

	st.Result = st.Binary
	if o.Crop {
		st.Result = CropToInk(st.Binary, p.InkValue(), o.CropMargin)
	}
	return st, nil
}

// flattenAlpha composites img onto an opaque white canvas so transparent
// backgrounds read as paper rather than black.
func flattenAlpha(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// grayscale converts img to a single intensity channel anchored at the origin.
func grayscale(img image.Image, mode string) *image.Gray {
	if mode != GrayscaleLightness {
		return toGray(effect.Grayscale(img))
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c, ok := colorful.MakeColor(img.At(x+b.Min.X, y+b.Min.Y))
			if !ok {
				out.Pix[y*out.Stride+x] = 255
				continue
			}
			l, _, _ := c.Lab()
			out.Pix[y*out.Stride+x] = uint8(math.Round(math.Max(0, math.Min(1, l)) * 255))
		}
	}
	return out
}
