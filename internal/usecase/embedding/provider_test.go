package embedding

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/imaging"
)

type mockTextEncoder struct {
	vectors map[string][]float32
	fixed   []float32
	err     error
	calls   int
}

func (m *mockTextEncoder) EncodeText(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fixed, nil
}

type mockImageEncoder struct {
	vector []float32
	err    error
}

func (m *mockImageEncoder) EncodeImage(_ context.Context, _ []byte) ([]float32, error) {
	return m.vector, m.err
}

type mockDetector struct {
	region *domain.Region
	err    error
	calls  int
}

func (m *mockDetector) DetectBest(_ context.Context, _ []byte) (*domain.Region, error) {
	m.calls++
	return m.region, m.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestProvider(text TextEncoder, img ImageEncoder, det RegionDetector, width int) *Provider {
	return NewProvider(text, img, det, Config{
		Width:            width,
		ImageWeight:      0.7,
		TagWeight:        0.3,
		VariationWeights: []float64{0.4, 0.2, 0.2, 0.2},
		CropPadding:      0.1,
	}, zap.NewNop())
}

func TestEmbedText_NormalizesWidth(t *testing.T) {
	p := newTestProvider(&mockTextEncoder{fixed: []float32{1, 2}}, nil, nil, 4)

	got, err := p.EmbedText(context.Background(), "red car")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	want := []float32{1, 2, 0, 0}
	if len(got) != 4 {
		t.Fatalf("width = %d, want 4", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmbedImage_PlainPath(t *testing.T) {
	p := newTestProvider(nil, &mockImageEncoder{vector: []float32{1, 2}}, nil, 4)

	got, err := p.EmbedImage(context.Background(), pngBytes(t, 8, 8), Options{})
	if err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("width = %d, want 4", len(got))
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 0 {
		t.Errorf("got = %v", got)
	}
}

func TestEmbedImage_UnsupportedFormat(t *testing.T) {
	p := newTestProvider(nil, &mockImageEncoder{}, nil, 4)

	_, err := p.EmbedImage(context.Background(), []byte("not an image"), Options{})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEmbedImage_HistogramAppended(t *testing.T) {
	base := []float32{1, 2}
	width := len(base) + imaging.HistogramLen
	p := newTestProvider(nil, &mockImageEncoder{vector: base}, nil, width)

	got, err := p.EmbedImage(context.Background(), pngBytes(t, 8, 8), Options{UseColorHistogram: true})
	if err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if len(got) != width {
		t.Fatalf("width = %d, want %d", len(got), width)
	}
	var sum float64
	for _, v := range got[len(base):] {
		sum += float64(v)
	}
	// Normalized histogram: one count per channel per pixel.
	if math.Abs(sum-3) > 0.01 {
		t.Errorf("histogram sum = %v, want 3", sum)
	}
}

func TestEmbedImage_DetectorCrops(t *testing.T) {
	det := &mockDetector{region: &domain.Region{XMin: 0.1, YMin: 0.1, XMax: 0.9, YMax: 0.9, Confidence: 0.8, Label: "car"}}
	p := newTestProvider(nil, &mockImageEncoder{vector: []float32{1}}, det, 2)

	_, err := p.EmbedImage(context.Background(), pngBytes(t, 32, 32), Options{UseCarDetection: true})
	if err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if det.calls != 1 {
		t.Errorf("detector calls = %d, want 1", det.calls)
	}
}

func TestEmbedImage_DetectorFailureIsNonFatal(t *testing.T) {
	det := &mockDetector{err: errors.New("sidecar down")}
	p := newTestProvider(nil, &mockImageEncoder{vector: []float32{1}}, det, 2)

	_, err := p.EmbedImage(context.Background(), pngBytes(t, 8, 8), Options{UseCarDetection: true})
	if err != nil {
		t.Fatalf("EmbedImage() error = %v, want nil (full image fallback)", err)
	}
}

func TestEmbedEnhanced_NoTags(t *testing.T) {
	text := &mockTextEncoder{fixed: []float32{9, 9}}
	p := newTestProvider(text, &mockImageEncoder{vector: []float32{1, 2}}, nil, 2)

	got, err := p.EmbedEnhanced(context.Background(), pngBytes(t, 8, 8), nil, Options{})
	if err != nil {
		t.Fatalf("EmbedEnhanced() error = %v", err)
	}
	if text.calls != 0 {
		t.Errorf("text encoder called %d times for untagged image", text.calls)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("got = %v, want plain image embedding", got)
	}
}

func TestEmbedEnhanced_BlendsTags(t *testing.T) {
	text := &mockTextEncoder{fixed: []float32{10, 10}}
	p := newTestProvider(text, &mockImageEncoder{vector: []float32{10, 0}}, nil, 2)

	got, err := p.EmbedEnhanced(context.Background(), pngBytes(t, 8, 8), []string{"red", "suv"}, Options{})
	if err != nil {
		t.Fatalf("EmbedEnhanced() error = %v", err)
	}
	// 0.7*10 + 0.3*10 = 10, 0.7*0 + 0.3*10 = 3
	if math.Abs(float64(got[0])-10) > 1e-5 || math.Abs(float64(got[1])-3) > 1e-5 {
		t.Errorf("got = %v, want [10 3]", got)
	}
}

func TestEmbedQuery_SingleVariationPassesThrough(t *testing.T) {
	text := &mockTextEncoder{fixed: []float32{1, 2}}
	p := newTestProvider(text, nil, nil, 2)

	got, err := p.EmbedQuery(context.Background(), []string{"fast coupe"})
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("got = %v, want unweighted single vector", got)
	}
}

func TestEmbedQuery_CombinesVariations(t *testing.T) {
	text := &mockTextEncoder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
		"c": {1, 1},
		"d": {2, 2},
	}}
	p := newTestProvider(text, nil, nil, 2)

	got, err := p.EmbedQuery(context.Background(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	// 0.4*[1,0] + 0.2*[0,1] + 0.2*[1,1] + 0.2*[2,2]
	wantX, wantY := 0.4+0.2+0.4, 0.2+0.2+0.4
	if math.Abs(float64(got[0])-wantX) > 1e-5 || math.Abs(float64(got[1])-wantY) > 1e-5 {
		t.Errorf("got = %v, want [%v %v]", got, wantX, wantY)
	}
}

func TestEmbedQuery_NoVariations(t *testing.T) {
	p := newTestProvider(&mockTextEncoder{}, nil, nil, 2)

	_, err := p.EmbedQuery(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
}
