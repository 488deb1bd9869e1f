// Package imaging prepares photographed or scanned lab reports for OCR.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// Long edge bounds. Small phone crops are upscaled so glyphs reach a
	// readable height; huge scans are downscaled to stay under API limits.
	MinLongEdge = 1000
	MaxLongEdge = 2000
)

type Result struct {
	PNG            []byte
	Format         string
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
}

// Normalize decodes data, converts to grayscale, scales the long edge into
// [MinLongEdge, MaxLongEdge], sharpens, and re-encodes as PNG.
func Normalize(data []byte) (*Result, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode image: empty bounds")
	}

	tw, th := TargetSize(w, h)
	gray := image.NewGray(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	sharp := Sharpen(gray)

	var buf bytes.Buffer
	if err := png.Encode(&buf, sharp); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &Result{
		PNG:            buf.Bytes(),
		Format:         format,
		OriginalWidth:  w,
		OriginalHeight: h,
		Width:          tw,
		Height:         th,
	}, nil
}

// TargetSize keeps the aspect ratio while moving the long edge into bounds.
func TargetSize(w, h int) (int, int) {
	long := w
	if h > long {
		long = h
	}
	var scale float64
	switch {
	case long < MinLongEdge:
		scale = float64(MinLongEdge) / float64(long)
	case long > MaxLongEdge:
		scale = float64(MaxLongEdge) / float64(long)
	default:
		return w, h
	}
	tw := int(float64(w)*scale + 0.5)
	th := int(float64(h)*scale + 0.5)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

// Sharpen applies a 3x3 unsharp kernel. Edge pixels are copied unchanged.
func Sharpen(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	copy(dst.Pix, src.Pix)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			c := 5*int(src.GrayAt(x, y).Y) -
				int(src.GrayAt(x-1, y).Y) - int(src.GrayAt(x+1, y).Y) -
				int(src.GrayAt(x, y-1).Y) - int(src.GrayAt(x, y+1).Y)
			if c < 0 {
				c = 0
			} else if c > 255 {
				c = 255
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(c)})
		}
	}
	return dst
}
