// Package imaging provides the image preprocessing used by the embedding
// pipeline: format sniffing, decoding, square resize, region cropping and
// RGB color histograms.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/kailas-cloud/carlens/internal/domain"
)

// TargetSize is the square resolution fed to the image encoder.
const TargetSize = 224

// HistogramBins is the bin count per RGB channel.
const HistogramBins = 64

// HistogramLen is the total histogram feature width (3 channels).
const HistogramLen = 3 * HistogramBins

// SniffMimeType identifies the image format from magic bytes.
// Returns "" for unrecognized content.
func SniffMimeType(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch {
	case data[0] == 0xff && data[1] == 0xd8 && data[2] == 0xff:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4e && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
		return "image/gif"
	case data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46:
		return "image/webp"
	default:
		return ""
	}
}

// Decode sniffs and decodes image bytes into pixels.
func Decode(data []byte) (image.Image, string, error) {
	mime := SniffMimeType(data)
	if mime == "" {
		return nil, "", fmt.Errorf("sniff image format: %w", domain.ErrUnsupportedFormat)
	}
	var (
		img image.Image
		err error
	)
	switch mime {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", mime, domain.ErrUnsupportedFormat)
	}
	return img, mime, nil
}

// ResizeSquare scales the image to TargetSize x TargetSize with a
// center-cropping cover fit, matching the encoder's expected input.
func ResizeSquare(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	src := b
	if w > h {
		off := (w - h) / 2
		src = image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+h, b.Max.Y)
	} else if h > w {
		off := (h - w) / 2
		src = image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+w)
	}
	dst := image.NewRGBA(image.Rect(0, 0, TargetSize, TargetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// EncodeJPEG serializes pixels as JPEG bytes for transport to the encoder.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop extracts the region given by a normalized [0,1] box expanded by the
// padding fraction on every side, clamped to the image bounds.
func Crop(img image.Image, region domain.Region, padding float64) image.Image {
	b := img.Bounds()
	w := float64(b.Dx())
	h := float64(b.Dy())

	boxW := (region.XMax - region.XMin) * w
	boxH := (region.YMax - region.YMin) * h
	padX := boxW * padding
	padY := boxH * padding

	x0 := clamp(region.XMin*w-padX, 0, w)
	y0 := clamp(region.YMin*h-padY, 0, h)
	x1 := clamp(region.XMax*w+padX, 0, w)
	y1 := clamp(region.YMax*h+padY, 0, h)
	if x1 <= x0 || y1 <= y0 {
		return img
	}

	rect := image.Rect(b.Min.X+int(x0), b.Min.Y+int(y0), b.Min.X+int(x1), b.Min.Y+int(y1))
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// Histogram computes a 64-bin-per-channel RGB histogram normalized by
// pixel count. The result always has HistogramLen entries summing to 3.
func Histogram(img image.Image) []float32 {
	hist := make([]float32, HistogramLen)
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return hist
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			hist[bin(r)]++
			hist[HistogramBins+bin(g)]++
			hist[2*HistogramBins+bin(bl)]++
		}
	}
	n := float32(total)
	for i := range hist {
		hist[i] /= n
	}
	return hist
}

// bin maps a 16-bit color sample to one of 64 bins.
func bin(v uint32) int {
	return int(v >> 8 >> 2) // 8-bit value / 4
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
