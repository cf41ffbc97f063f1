package verifier

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/signature-tools-mcp/internal/config"
	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"github.com/ironsheep/signature-tools-mcp/internal/imaging"
	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/store"
)

// profileExtractor describes an image by one descriptor: the ink count in
// each of 8 vertical bands. Identical scans give identical descriptors and
// scans with ink in disjoint bands give orthogonal ones.
type profileExtractor struct{}

func (profileExtractor) Name() string { return "profile" }

func (profileExtractor) Extract(img *image.Gray) (*features.DescriptorSet, error) {
	b := img.Bounds()
	desc := make([]float64, 8)
	total := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0 {
				desc[(x-b.Min.X)*8/b.Dx()]++
				total++
			}
		}
	}
	if total == 0 {
		return &features.DescriptorSet{}, nil
	}
	return features.NewDescriptorSet(desc), nil
}

// writeScan draws 3px-wide vertical strokes at the given x offsets on white
// paper and writes the image as PNG.
func writeScan(t *testing.T, dir, name string, xs ...int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 160, 80))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, x0 := range xs {
		for y := 15; y < 65; y++ {
			for x := x0; x < x0+3; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func newTestService(t *testing.T, ext features.Extractor, agg matcher.Aggregation) *Service {
	t.Helper()
	pre, err := imaging.NewPreprocessor(imaging.DefaultOptions())
	if err != nil {
		t.Fatalf("NewPreprocessor: %v", err)
	}
	m, err := matcher.New(matcher.Options{Aggregation: agg})
	if err != nil {
		t.Fatalf("matcher.New: %v", err)
	}
	svc, err := New(pre, ext, store.NewMemoryStore(), m, matcher.DefaultThreshold, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestService_EnrollVerifyIdentical(t *testing.T) {
	dir := t.TempDir()
	scan := writeScan(t, dir, "alice.png", 20, 60, 100)
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	res, err := svc.Enroll("alice", scan)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if res.Descriptors != 1 || res.Dimension != 8 || res.Extractor != "profile" {
		t.Errorf("unexpected enroll result: %+v", res)
	}

	d, err := svc.Verify("alice", scan, svc.Threshold())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !d.Authentic {
		t.Errorf("identical scan should be authentic, score %v", d.Score)
	}
	if math.Abs(d.Score-1) > 1e-9 {
		t.Errorf("Score: got %v, want 1", d.Score)
	}
	if d.Threshold != 0.7 {
		t.Errorf("Threshold: got %v, want 0.7", d.Threshold)
	}
}

func TestService_VerifyOrthogonal(t *testing.T) {
	dir := t.TempDir()
	ref := writeScan(t, dir, "left.png", 8, 28)
	cand := writeScan(t, dir, "right.png", 128, 148)
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	if _, err := svc.Enroll("bob", ref); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	d, err := svc.Verify("bob", cand, svc.Threshold())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d.Authentic || math.Abs(d.Score) > 1e-9 {
		t.Errorf("disjoint ink: got authentic=%v score=%v, want false and 0", d.Authentic, d.Score)
	}
}

func TestService_VerifyReadsReplacedScan(t *testing.T) {
	dir := t.TempDir()
	ref := writeScan(t, dir, "ref.png", 8, 28)
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)
	if _, err := svc.Enroll("bob", ref); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// An inspection tool reads the scan, then the file is replaced.
	cand := writeScan(t, dir, "cand.png", 8, 28)
	if _, err := svc.Cache().Load(cand); err != nil {
		t.Fatalf("cache Load: %v", err)
	}
	writeScan(t, dir, "cand.png", 128, 148)

	d, err := svc.Verify("bob", cand, svc.Threshold())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d.Authentic || math.Abs(d.Score) > 1e-9 {
		t.Errorf("replaced scan: got authentic=%v score=%v, want false and 0", d.Authentic, d.Score)
	}
}

func TestService_VerifyBeforeEnroll(t *testing.T) {
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	// The image does not exist either; the missing template must win.
	_, err := svc.Verify("nobody", filepath.Join(t.TempDir(), "missing.png"), 0.7)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if Kind(err) != KindNotFound {
		t.Errorf("Kind: got %q, want %q", Kind(err), KindNotFound)
	}
}

func TestService_UndecodableImage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	_, err := svc.Enroll("carol", bad)
	var loadErr *imaging.ImageLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want ImageLoadError", err)
	}
	if Kind(err) != KindImageLoad {
		t.Errorf("Kind: got %q", Kind(err))
	}
	if _, err := svc.Store().Load("carol"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed enrollment must not save a template: %v", err)
	}
}

func TestService_BlankImageInsufficientFeatures(t *testing.T) {
	dir := t.TempDir()
	blank := writeScan(t, dir, "blank.png")
	ink := writeScan(t, dir, "ink.png", 40)

	for _, ext := range []features.Extractor{profileExtractor{}, features.NewGradientExtractor(features.Options{})} {
		t.Run(ext.Name(), func(t *testing.T) {
			svc := newTestService(t, ext, matcher.AggregateMean)

			_, err := svc.Enroll("dave", blank)
			if !errors.Is(err, features.ErrInsufficientFeatures) {
				t.Fatalf("Enroll blank: got %v, want ErrInsufficientFeatures", err)
			}
			if Kind(err) != KindInsufficientFeatures {
				t.Errorf("Kind: got %q", Kind(err))
			}

			if _, err := svc.Enroll("dave", ink); err != nil {
				t.Fatalf("Enroll ink: %v", err)
			}
			d, err := svc.Verify("dave", blank, 0.7)
			if !errors.Is(err, features.ErrInsufficientFeatures) {
				t.Fatalf("Verify blank: got %v (decision %+v), want ErrInsufficientFeatures", err, d)
			}
		})
	}
}

func TestService_GradientEndToEnd(t *testing.T) {
	dir := t.TempDir()
	scan := writeScan(t, dir, "erin.png", 20, 47, 90, 131)
	svc := newTestService(t, features.NewGradientExtractor(features.Options{}), matcher.AggregateMean)

	res, err := svc.Enroll("erin", scan)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if res.Dimension != features.DescriptorDim || res.Keypoints != res.Descriptors {
		t.Errorf("unexpected enroll result: %+v", res)
	}

	d, err := svc.Verify("erin", scan, 0.7)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if d.CandidateCount != res.Descriptors || d.ReferenceCount != res.Descriptors {
		t.Errorf("counts: got %d/%d, want %d", d.CandidateCount, d.ReferenceCount, res.Descriptors)
	}

	set, err := svc.Extract(scan)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	vecs := make([][]float64, set.Len())
	for i, desc := range set.Descriptors {
		vecs[i] = desc
	}
	want := matcher.MeanPairwiseSimilarity(vecs, vecs)
	if math.Abs(d.Score-want) > 1e-9 {
		t.Errorf("Score: got %v, want %v", d.Score, want)
	}
	if d.Authentic != (want > 0.7) {
		t.Errorf("Authentic: got %v for score %v", d.Authentic, want)
	}
}

func TestService_EnrollSamplesPoolsDescriptors(t *testing.T) {
	dir := t.TempDir()
	a := writeScan(t, dir, "a.png", 28)
	b := writeScan(t, dir, "b.png", 128)
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	res, err := svc.EnrollSamples("frank", a, b)
	if err != nil {
		t.Fatalf("EnrollSamples: %v", err)
	}
	if res.Descriptors != 2 || len(res.Sources) != 2 {
		t.Errorf("unexpected result: %+v", res)
	}

	decisions, err := svc.VerifySamples("frank", 0.7, a, b)
	if err != nil {
		t.Fatalf("VerifySamples: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}
	// Each scan matches one of two orthogonal reference descriptors.
	for i, d := range decisions {
		if math.Abs(d.Score-0.5) > 1e-9 {
			t.Errorf("decision %d: score %v, want 0.5", i, d.Score)
		}
	}
}

func TestService_InvalidInput(t *testing.T) {
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	if _, err := svc.Enroll("../etc", "x.png"); Kind(err) != KindInvalidInput {
		t.Errorf("bad key: got %v", err)
	}
	if _, err := svc.Verify("ok", "x.png", math.NaN()); !errors.Is(err, matcher.ErrInvalidThreshold) {
		t.Errorf("NaN threshold: got %v", err)
	}
	if _, err := New(nil, profileExtractor{}, store.NewMemoryStore(), nil, 0.7, nil); err == nil {
		t.Error("New should reject missing collaborators")
	}
}

func TestService_Inspect(t *testing.T) {
	dir := t.TempDir()
	scan := writeScan(t, dir, "gina.png", 30, 90)
	svc := newTestService(t, features.NewGradientExtractor(features.Options{}), matcher.AggregateMean)

	ins, err := svc.Inspect(scan)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if ins.Width != 160 || ins.Height != 80 {
		t.Errorf("size: got %dx%d", ins.Width, ins.Height)
	}
	if ins.Strokes.Count != 2 {
		t.Errorf("strokes: got %d, want 2", ins.Strokes.Count)
	}
	if !imaging.IsBinary(ins.Stages.Result) {
		t.Error("result stage should be binary")
	}
	if ins.Ink == nil || ins.Ink.Pen != imaging.PenBlack {
		t.Errorf("ink: got %+v, want a black pen", ins.Ink)
	}

	overlay := KeypointOverlay(ins.Stages.Result, ins.Keypoints, false)
	if overlay.Bounds() != ins.Stages.Result.Bounds() {
		t.Errorf("overlay bounds %v, want %v", overlay.Bounds(), ins.Stages.Result.Bounds())
	}
	if len(ins.Keypoints) > 0 {
		kp := ins.Keypoints[0]
		if c := overlay.RGBAAt(int(kp.X+0.5), int(kp.Y+0.5)); c.G != 0 || c.R != 255 {
			t.Errorf("keypoint center not marked: %v", c)
		}
	}
	if keys, _ := svc.Templates(); len(keys) != 0 {
		t.Errorf("Inspect must not enroll, got keys %v", keys)
	}
}

func TestService_DebugDirWritesStages(t *testing.T) {
	dir := t.TempDir()
	debug := filepath.Join(dir, "debug")
	scan := writeScan(t, dir, "hank.png", 50)
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)
	svc.SetDebugDir(debug)

	if _, err := svc.Extract(scan); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	entries, err := os.ReadDir(debug)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	// gray, blurred, binary, result; sharpening is off
	if len(entries) != 4 {
		t.Fatalf("got %d stage files, want 4", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "hank-") || filepath.Ext(e.Name()) != ".png" {
			t.Errorf("unexpected stage file %s", e.Name())
		}
	}
}

func TestService_Templates(t *testing.T) {
	dir := t.TempDir()
	scan := writeScan(t, dir, "s.png", 30)
	svc := newTestService(t, profileExtractor{}, matcher.AggregateMean)

	for _, key := range []string{"zed", "amy"} {
		if _, err := svc.Enroll(key, scan); err != nil {
			t.Fatalf("Enroll %s: %v", key, err)
		}
	}
	keys, err := svc.Templates()
	if err != nil || len(keys) != 2 || keys[0] != "amy" {
		t.Fatalf("Templates: got %v, %v", keys, err)
	}
	if err := svc.DeleteTemplate("amy"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if err := svc.DeleteTemplate("amy"); Kind(err) != KindNotFound {
		t.Errorf("second delete: got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	svc, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if _, ok := svc.Store().(*store.FileStore); !ok {
		t.Errorf("expected a FileStore, got %T", svc.Store())
	}
	if svc.Threshold() != cfg.Matcher.Threshold {
		t.Errorf("Threshold: got %v", svc.Threshold())
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("boom"), ""},
		{&imaging.ImageLoadError{Path: "x", Err: os.ErrNotExist}, KindImageLoad},
		{&store.WriteError{Key: "k", Err: os.ErrPermission}, KindWrite},
		{store.ErrNotFound, KindNotFound},
		{features.ErrInsufficientFeatures, KindInsufficientFeatures},
		{matcher.ErrInvalidThreshold, KindInvalidInput},
		{fmt.Errorf("%w: %w", store.ErrCorruptTemplate, features.ErrNonFiniteDescriptor), KindInvalidInput},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
