package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
)

// DecodePNG reads a PNG stream and converts it to a float32 image using the
// usual luma weights. The resulting image origin is (0,0) regardless of the
// source bounds. Sample range is [0,255].
func DecodePNG(r io.Reader) (*Image, error) {
	src, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return FromImage(src), nil
}

// FromImage converts any image.Image into a float32 luma plane with its
// origin at (0,0).
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	out := NewImage(NewBox(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
			out.Set(x, y, float32(v))
		}
	}
	return out
}

// ToGray renders the image to 8-bit grayscale with a linear stretch from the
// valid sample range. NaN samples render as black.
func ToGray(im *Image) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, im.Box.Width, im.Box.Height))
	lo, hi, ok := im.MinMax()
	span := float64(hi - lo)
	if !ok || span <= 0 {
		span = 1
	}
	for y := 0; y < im.Box.Height; y++ {
		for x := 0; x < im.Box.Width; x++ {
			v := float64(im.At(im.Box.MinX+x, im.Box.MinY+y))
			if math.IsNaN(v) {
				continue
			}
			g := (v - float64(lo)) / span * 255
			if g < 0 {
				g = 0
			} else if g > 255 {
				g = 255
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(g + 0.5)})
		}
	}
	return dst
}

// EncodePNG writes the image as an 8-bit grayscale PNG with a linear stretch.
func EncodePNG(w io.Writer, im *Image) error {
	if err := png.Encode(w, ToGray(im)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Preview returns an 8-bit grayscale rendering scaled so the longest side is
// at most maxDim, using CatmullRom resampling.
func Preview(im *Image, maxDim int) *image.Gray {
	gray := ToGray(im)
	w, h := im.Box.Width, im.Box.Height
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim || longest == 0 {
		return gray
	}
	scale := float64(maxDim) / float64(longest)
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), gray, gray.Bounds(), draw.Over, nil)
	return dst
}
