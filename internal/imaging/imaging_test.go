package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/kailas-cloud/carlens/internal/domain"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSniffMimeType(t *testing.T) {
	jpg := &bytes.Buffer{}
	if err := jpeg.Encode(jpg, solidImage(2, 2, color.RGBA{A: 255}), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpg.Bytes(), "image/jpeg"},
		{"png", pngBytes(t, solidImage(2, 2, color.RGBA{A: 255})), "image/png"},
		{"gif", []byte("GIF89a...."), "image/gif"},
		{"webp riff", []byte("RIFF....WEBP"), "image/webp"},
		{"garbage", []byte("not an image"), ""},
		{"short", []byte{0xff}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SniffMimeType(tc.data); got != tc.want {
				t.Errorf("SniffMimeType() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	_, _, err := Decode([]byte("plain text, not pixels"))
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("Decode() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecode_PNG(t *testing.T) {
	img, mime, err := Decode(pngBytes(t, solidImage(3, 5, color.RGBA{R: 255, A: 255})))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q", mime)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 5 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestResizeSquare(t *testing.T) {
	got := ResizeSquare(solidImage(100, 40, color.RGBA{G: 255, A: 255}))

	if got.Bounds().Dx() != TargetSize || got.Bounds().Dy() != TargetSize {
		t.Errorf("bounds = %v, want %dx%d", got.Bounds(), TargetSize, TargetSize)
	}
}

func TestHistogram_SolidRed(t *testing.T) {
	hist := Histogram(solidImage(4, 4, color.RGBA{R: 255, A: 255}))

	if len(hist) != HistogramLen {
		t.Fatalf("len = %d, want %d", len(hist), HistogramLen)
	}
	var sum float64
	for _, v := range hist {
		sum += float64(v)
	}
	if math.Abs(sum-3) > 0.01 {
		t.Errorf("sum = %v, want 3 (one unit per channel)", sum)
	}
	// All red mass lands in the top red bin, all green/blue in bin 0.
	if hist[HistogramBins-1] != 1 {
		t.Errorf("red top bin = %v, want 1", hist[HistogramBins-1])
	}
	if hist[HistogramBins] != 1 || hist[2*HistogramBins] != 1 {
		t.Errorf("green/blue zero bins = %v %v, want 1 1", hist[HistogramBins], hist[2*HistogramBins])
	}
}

func TestCrop_PadsAndClamps(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{B: 255, A: 255})

	got := Crop(img, domain.Region{XMin: 0.25, YMin: 0.25, XMax: 0.75, YMax: 0.75}, 0.1)

	// 50px box padded by 5px each side.
	if got.Bounds().Dx() != 60 || got.Bounds().Dy() != 60 {
		t.Errorf("bounds = %v, want 60x60", got.Bounds())
	}

	edge := Crop(img, domain.Region{XMin: 0, YMin: 0, XMax: 0.5, YMax: 0.5}, 0.2)
	if edge.Bounds().Dx() != 60 || edge.Bounds().Dy() != 60 {
		t.Errorf("edge bounds = %v, padding must clamp at 0", edge.Bounds())
	}
}

func TestCrop_DegenerateRegionReturnsOriginal(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{A: 255})

	got := Crop(img, domain.Region{XMin: 0.5, YMin: 0.5, XMax: 0.5, YMax: 0.5}, 0)
	if got != image.Image(img) {
		t.Error("degenerate region should return the original image")
	}
}

func TestEncodeJPEG_RoundTrips(t *testing.T) {
	data, err := EncodeJPEG(solidImage(8, 8, color.RGBA{R: 200, A: 255}))
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	if SniffMimeType(data) != "image/jpeg" {
		t.Error("output is not a JPEG")
	}
}
