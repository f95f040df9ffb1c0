// Package imaging provides the in-memory image model shared by the
// background estimation pipeline: float32 sample planes addressed by a
// pixel-space bounding box, plus PNG conversion helpers.
//
// Images are immutable by convention once built. NaN samples mark
// masked/invalid pixels and are excluded from statistics.
package imaging

import (
	"fmt"
	"math"
)

// Box is an integer bounding box in pixel space: an origin plus an extent.
type Box struct {
	MinX   int `json:"min_x"`
	MinY   int `json:"min_y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewBox returns a Box with the given origin and extent.
func NewBox(minX, minY, width, height int) Box {
	return Box{MinX: minX, MinY: minY, Width: width, Height: height}
}

// MaxX returns the exclusive upper X bound.
func (b Box) MaxX() int { return b.MinX + b.Width }

// MaxY returns the exclusive upper Y bound.
func (b Box) MaxY() int { return b.MinY + b.Height }

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// Area returns the number of pixels covered by the box.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Contains reports whether the pixel (x, y) lies inside the box.
func (b Box) Contains(x, y int) bool {
	return x >= b.MinX && x < b.MaxX() && y >= b.MinY && y < b.MaxY()
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d) %dx%d", b.MinX, b.MinY, b.Width, b.Height)
}

// Image is a row-major float32 sample plane located in pixel space by Box.
// len(Pix) == Box.Width * Box.Height.
type Image struct {
	Box Box
	Pix []float32
}

// NewImage allocates a zero-filled image covering box.
func NewImage(box Box) *Image {
	return &Image{Box: box, Pix: make([]float32, box.Area())}
}

// Idx converts absolute pixel coordinates to an index into Pix.
// The caller must ensure (x, y) is inside the image box.
func (im *Image) Idx(x, y int) int {
	return (y-im.Box.MinY)*im.Box.Width + (x - im.Box.MinX)
}

// At returns the sample at absolute pixel coordinates (x, y).
func (im *Image) At(x, y int) float32 { return im.Pix[im.Idx(x, y)] }

// Set stores a sample at absolute pixel coordinates (x, y).
func (im *Image) Set(x, y int, v float32) { im.Pix[im.Idx(x, y)] = v }

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	out := &Image{Box: im.Box, Pix: make([]float32, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// Fill sets every sample to v.
func (im *Image) Fill(v float32) {
	for i := range im.Pix {
		im.Pix[i] = v
	}
}

// Mask replaces every sample inside box with NaN, marking it invalid.
// Pixels outside the image are ignored.
func (im *Image) Mask(box Box) {
	nan := float32(math.NaN())
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			if im.Box.Contains(x, y) {
				im.Set(x, y, nan)
			}
		}
	}
}

// IsValid reports whether the sample at (x, y) is usable (not NaN).
func (im *Image) IsValid(x, y int) bool {
	return !math.IsNaN(float64(im.At(x, y)))
}

// MinMax returns the smallest and largest valid samples. NaN samples are
// skipped; ok is false when the image holds no valid samples.
func (im *Image) MinMax() (lo, hi float32, ok bool) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range im.Pix {
		if math.IsNaN(float64(v)) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}
