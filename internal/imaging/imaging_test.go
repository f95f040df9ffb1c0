package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func TestBoxBounds(t *testing.T) {
	b := NewBox(10, 20, 5, 4)
	if b.MaxX() != 15 || b.MaxY() != 24 {
		t.Fatalf("unexpected max corner: %d,%d", b.MaxX(), b.MaxY())
	}
	if b.Area() != 20 {
		t.Fatalf("area = %d, want 20", b.Area())
	}
	if !b.Contains(10, 20) || !b.Contains(14, 23) {
		t.Fatal("expected corners to be contained")
	}
	if b.Contains(15, 20) || b.Contains(10, 24) {
		t.Fatal("exclusive bounds must not be contained")
	}
	if b.Empty() {
		t.Fatal("box should not be empty")
	}
	if !NewBox(0, 0, 0, 3).Empty() {
		t.Fatal("zero-width box should be empty")
	}
}

func TestImageIndexingWithOffsetOrigin(t *testing.T) {
	im := NewImage(NewBox(100, 200, 3, 2))
	im.Set(101, 201, 7.5)
	if got := im.At(101, 201); got != 7.5 {
		t.Fatalf("At = %v, want 7.5", got)
	}
	// row-major layout: (101,201) is row 1, col 1
	if got := im.Pix[1*3+1]; got != 7.5 {
		t.Fatalf("Pix layout mismatch: %v", got)
	}
}

func TestMaskAndMinMax(t *testing.T) {
	im := NewImage(NewBox(0, 0, 4, 4))
	for i := range im.Pix {
		im.Pix[i] = float32(i)
	}
	im.Mask(NewBox(0, 0, 4, 1)) // masks values 0..3
	if im.IsValid(0, 0) {
		t.Fatal("masked pixel should be invalid")
	}
	lo, hi, ok := im.MinMax()
	if !ok {
		t.Fatal("expected valid samples")
	}
	if lo != 4 || hi != 15 {
		t.Fatalf("min/max = %v/%v, want 4/15", lo, hi)
	}
}

func TestCloneIsDeep(t *testing.T) {
	im := NewImage(NewBox(0, 0, 2, 2))
	im.Fill(1)
	cp := im.Clone()
	cp.Set(0, 0, 9)
	if im.At(0, 0) != 1 {
		t.Fatal("clone mutated the original")
	}
}

func TestPNGRoundTrip(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x * 30)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	im, err := DecodePNG(&buf)
	if err != nil {
		t.Fatalf("DecodePNG: %v", err)
	}
	if im.Box.Width != 8 || im.Box.Height != 6 {
		t.Fatalf("decoded size %v", im.Box)
	}
	// luma of a gray pixel is the gray value itself
	if math.Abs(float64(im.At(2, 0))-60) > 1 {
		t.Fatalf("luma at (2,0) = %v, want ~60", im.At(2, 0))
	}

	var out bytes.Buffer
	if err := EncodePNG(&out, im); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("empty png output")
	}
}

func TestPreviewScalesDown(t *testing.T) {
	im := NewImage(NewBox(0, 0, 100, 40))
	g := Preview(im, 50)
	if g.Bounds().Dx() != 50 || g.Bounds().Dy() != 20 {
		t.Fatalf("preview bounds = %v", g.Bounds())
	}
	// already small enough: returned unscaled
	small := NewImage(NewBox(0, 0, 10, 10))
	if got := Preview(small, 50); got.Bounds().Dx() != 10 {
		t.Fatalf("small preview rescaled: %v", got.Bounds())
	}
}
