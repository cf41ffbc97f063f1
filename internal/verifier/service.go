package verifier

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/signature-tools-mcp/internal/config"
	"github.com/ironsheep/signature-tools-mcp/internal/detection"
	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"github.com/ironsheep/signature-tools-mcp/internal/imaging"
	"github.com/ironsheep/signature-tools-mcp/internal/logger"
	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/store"
)

// Service wires preprocessing, extraction, storage and matching into the
// enroll and verify operations.
//
// A Service is safe for concurrent use; concurrent Enroll calls for the same
// key race and the last completed save wins.
type Service struct {
	pre       *imaging.Preprocessor
	extractor features.Extractor
	store     store.Store
	matcher   *matcher.Matcher
	threshold float64
	cache     *imaging.ImageCache
	log       *logger.Logger
	debugDir  string
}

// EnrollResult describes a saved template.
type EnrollResult struct {
	Key         string   `json:"key"`
	Sources     []string `json:"sources"`
	Descriptors int      `json:"descriptors"`
	Keypoints   int      `json:"keypoints"`
	Dimension   int      `json:"dimension"`
	Extractor   string   `json:"extractor"`
}

// Inspection holds every intermediate product of one image, for debugging
// captures without enrolling or verifying.
type Inspection struct {
	Path      string                   `json:"path"`
	Width     int                      `json:"width"`
	Height    int                      `json:"height"`
	Features  *features.DescriptorSet  `json:"-"`
	Keypoints []features.Keypoint      `json:"keypoints"`
	Strokes   *detection.StrokesResult `json:"strokes"`
	Ink       *imaging.InkColorResult  `json:"ink"`
	Stages    *imaging.Stages          `json:"-"`
}

// New builds a Service. threshold is the default used by callers that do not
// supply their own; a nil log discards output.
func New(pre *imaging.Preprocessor, ext features.Extractor, st store.Store, m *matcher.Matcher, threshold float64, log *logger.Logger) (*Service, error) {
	if pre == nil || ext == nil || st == nil || m == nil {
		return nil, errors.New("verifier: preprocessor, extractor, store and matcher are required")
	}
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		pre:       pre,
		extractor: ext,
		store:     st,
		matcher:   m,
		threshold: threshold,
		cache:     imaging.NewImageCache(),
		log:       log,
	}, nil
}

// NewFromConfig builds every collaborator from cfg.
func NewFromConfig(cfg *config.Config, log *logger.Logger) (*Service, error) {
	pre, err := imaging.NewPreprocessor(cfg.Preprocess)
	if err != nil {
		return nil, err
	}
	ext, err := features.New(cfg.Extractor.Name, cfg.Extractor.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	st, err := store.Open(cfg.Storage.Backend, cfg.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open template store: %w", err)
	}
	m, err := matcher.New(cfg.Matcher.Options)
	if err != nil {
		return nil, err
	}
	svc, err := New(pre, ext, st, m, cfg.Matcher.Threshold, log)
	if err != nil {
		return nil, err
	}
	svc.debugDir = expandHome(cfg.Output.DebugDir)
	return svc, nil
}

// SetDebugDir makes every Extract write its preprocessing stages to dir.
// An empty dir disables stage output.
func (s *Service) SetDebugDir(dir string) {
	s.debugDir = dir
}

// Threshold returns the default decision threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Store returns the template store.
func (s *Service) Store() store.Store {
	return s.store
}

// Cache returns the image cache used by the inspection tools.
func (s *Service) Cache() *imaging.ImageCache {
	return s.cache
}

// Preprocessor returns the configured preprocessor.
func (s *Service) Preprocessor() *imaging.Preprocessor {
	return s.pre
}

// Extract loads, preprocesses and describes the image at path. The result may
// be empty; callers decide whether that is an error.
func (s *Service) Extract(path string) (*features.DescriptorSet, error) {
	img, err := s.load(path)
	if err != nil {
		return nil, err
	}
	return s.extractImage(path, img)
}

// ExtractImage describes an already decoded image.
func (s *Service) ExtractImage(img image.Image) (*features.DescriptorSet, error) {
	return s.extractImage("", img)
}

func (s *Service) extractImage(path string, img image.Image) (*features.DescriptorSet, error) {
	start := time.Now()
	stages, err := s.pre.Stages(img)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess %s: %w", path, err)
	}
	if s.debugDir != "" {
		if _, err := WriteStages(stages, s.debugDir, stageBase(path)); err != nil {
			s.log.WarnWithFields("could not write debug stages", []logger.Field{logger.Path(path), logger.Error(err)})
		}
	}

	set, err := s.extractor.Extract(stages.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to extract features from %s: %w", path, err)
	}
	s.log.DebugWithFields("extracted %d descriptors", []logger.Field{
		logger.Path(path),
		logger.F("extractor", s.extractor.Name()),
		logger.Duration(time.Since(start)),
	}, set.Len())
	return set, nil
}

// Enroll extracts features from the image at path and saves them as the
// template for key, replacing any previous template.
func (s *Service) Enroll(key, path string) (*EnrollResult, error) {
	return s.EnrollSamples(key, path)
}

// EnrollSamples builds one template from several reference scans by pooling
// their descriptors. Any failing scan aborts the enrollment and nothing is saved.
func (s *Service) EnrollSamples(key string, paths ...string) (*EnrollResult, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("enroll: no images given")
	}

	template := &features.DescriptorSet{}
	for _, path := range paths {
		set, err := s.Extract(path)
		if err != nil {
			return nil, err
		}
		if set.Empty() {
			return nil, fmt.Errorf("enroll %s: %w", path, features.ErrInsufficientFeatures)
		}
		if !template.Empty() && set.Dim() != template.Dim() {
			return nil, fmt.Errorf("enroll %s: %w", path, features.ErrDimensionMismatch)
		}
		template.Descriptors = append(template.Descriptors, set.Descriptors...)
		template.Keypoints = append(template.Keypoints, set.Keypoints...)
	}
	// Keypoints stay parallel only if every scan supplied them.
	if len(template.Keypoints) != len(template.Descriptors) {
		template.Keypoints = nil
	}

	if err := s.store.Save(key, template); err != nil {
		s.log.ErrorWithFields("template save failed", []logger.Field{logger.Key(key), logger.Error(err)})
		return nil, err
	}
	s.log.InfoWithFields("enrolled", []logger.Field{logger.Key(key), logger.Count(template.Len())})

	return &EnrollResult{
		Key:         key,
		Sources:     paths,
		Descriptors: template.Len(),
		Keypoints:   len(template.Keypoints),
		Dimension:   template.Dim(),
		Extractor:   s.extractor.Name(),
	}, nil
}

// Verify scores the image at path against the template stored under key.
//
// The template is loaded first, so an unknown key is reported as not found
// even when the image is also unreadable.
func (s *Service) Verify(key, path string, threshold float64) (*matcher.Decision, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	reference, err := s.store.Load(key)
	if err != nil {
		return nil, err
	}

	candidate, err := s.Extract(path)
	if err != nil {
		return nil, err
	}

	decision, err := s.matcher.Match(candidate, reference, threshold)
	if err != nil {
		return nil, fmt.Errorf("verify %s against %s: %w", path, key, err)
	}
	s.log.InfoWithFields("verified", []logger.Field{
		logger.Key(key),
		logger.Path(path),
		logger.Score(decision.Score),
		logger.F("authentic", decision.Authentic),
	})
	return decision, nil
}

// VerifySamples verifies each image in turn against the same template. The
// template is loaded once; the first failing image aborts the run.
func (s *Service) VerifySamples(key string, threshold float64, paths ...string) ([]*matcher.Decision, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	reference, err := s.store.Load(key)
	if err != nil {
		return nil, err
	}
	decisions := make([]*matcher.Decision, 0, len(paths))
	for _, path := range paths {
		candidate, err := s.Extract(path)
		if err != nil {
			return decisions, err
		}
		decision, err := s.matcher.Match(candidate, reference, threshold)
		if err != nil {
			return decisions, fmt.Errorf("verify %s against %s: %w", path, key, err)
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

// Inspect runs preprocessing, extraction and stroke analysis without touching
// the store.
func (s *Service) Inspect(path string) (*Inspection, error) {
	img, err := s.load(path)
	if err != nil {
		return nil, err
	}
	stages, err := s.pre.Stages(img)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess %s: %w", path, err)
	}
	set, err := s.extractor.Extract(stages.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to extract features from %s: %w", path, err)
	}
	strokes := detection.AnalyzeStrokes(stages.Result, detection.StrokeOptions{Ink: s.pre.InkValue()})
	ink := imaging.InkColors(img, stages.Binary, s.pre.InkValue(), 3)

	b := img.Bounds()
	return &Inspection{
		Path:      path,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Features:  set,
		Keypoints: set.Keypoints,
		Strokes:   strokes,
		Ink:       ink,
		Stages:    stages,
	}, nil
}

// Templates lists enrolled keys.
func (s *Service) Templates() ([]string, error) {
	return s.store.Keys()
}

// DeleteTemplate removes the template stored under key.
func (s *Service) DeleteTemplate(key string) error {
	if err := s.store.Delete(key); err != nil {
		return err
	}
	s.log.InfoWithFields("template deleted", []logger.Field{logger.Key(key)})
	return nil
}

// load decodes path from disk. The cache is bypassed so a scan replaced since
// an inspection tool read it is never scored with stale pixels.
func (s *Service) load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(path)
	return img, nil
}

// WriteStages saves each non-nil preprocessing stage of one image as a PNG in
// dir and returns the written paths. Names are base-stage-<id>.png with a
// short random id so repeated runs never overwrite each other.
func WriteStages(stages *imaging.Stages, dir, base string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug dir: %w", err)
	}
	id := uuid.NewString()[:8]
	named := []struct {
		name string
		img  *image.Gray
	}{
		{"gray", stages.Gray},
		{"sharpened", stages.Sharpened},
		{"blurred", stages.Blurred},
		{"binary", stages.Binary},
		{"result", stages.Result},
	}

	var written []string
	for _, n := range named {
		if n.img == nil {
			continue
		}
		p := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.png", base, n.name, id))
		if err := imaging.SavePNG(n.img, p); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

// KeypointOverlay draws kps over base, the image they were extracted from.
// With numbered set each circle is labelled with its 1-based index in kps.
func KeypointOverlay(base *image.Gray, kps []features.Keypoint, numbered bool) *image.RGBA {
	markers := make([]imaging.Marker, len(kps))
	for i, kp := range kps {
		markers[i] = imaging.Marker{X: kp.X, Y: kp.Y, Radius: kp.Size / 2}
	}
	return imaging.DrawMarkers(base, markers, imaging.DefaultMarkerColor, numbered)
}

func stageBase(path string) string {
	if path == "" {
		return "image"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func checkThreshold(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return matcher.ErrInvalidThreshold
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
