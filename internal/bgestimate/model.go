package bgestimate

import (
	"fmt"

	"github.com/banshee-data/backgrid/internal/imaging"
)

// Background is a fitted background model: the coarse stats image plus the
// bounding box it was fitted over. The full-resolution source is not
// retained; (ImageBBox, StatsImage) is sufficient to reconstruct an
// equivalent model.
//
// A Background is read-only after construction. Concurrent GetImage calls
// with different styles are safe without locking.
type Background struct {
	ctrl     Control
	imageBox imaging.Box
	stats    *imaging.Image
}

// New fits a background model to img. The control is validated eagerly;
// no model is produced on any error. Under UndersampleReduce the fitted
// bounding box may be smaller than img's when boundary tiles were empty.
func New(img *imaging.Image, ctrl Control) (*Background, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidConfig)
	}
	if err := ctrl.Validate(img.Box); err != nil {
		return nil, err
	}
	stats, fitBox, err := computeStatsImage(img, ctrl)
	if err != nil {
		return nil, err
	}
	return &Background{ctrl: ctrl, imageBox: fitBox, stats: stats}, nil
}

// FromStatsImage rebuilds a model from a previously fitted (bbox, stats
// image) pair, the model's serialized form. The stats image is used as-is;
// no refitting happens.
func FromStatsImage(box imaging.Box, stats *imaging.Image, ctrl Control) (*Background, error) {
	if stats == nil || stats.Box.Empty() {
		return nil, fmt.Errorf("%w: empty stats image", ErrInvalidConfig)
	}
	if box.Empty() {
		return nil, fmt.Errorf("%w: empty bounding box", ErrInvalidConfig)
	}
	if len(stats.Pix) != stats.Box.Area() {
		return nil, fmt.Errorf("%w: stats image cell count %d does not match grid %v",
			ErrInvalidConfig, len(stats.Pix), stats.Box)
	}
	return &Background{ctrl: ctrl, imageBox: box, stats: stats.Clone()}, nil
}

// Control returns the configuration the model was built with.
func (b *Background) Control() Control { return b.ctrl }

// ImageBBox returns the pixel-space bounding box the model covers.
func (b *Background) ImageBBox() imaging.Box { return b.imageBox }

// StatsImage returns the coarse per-tile statistics image. Callers must
// treat it as read-only.
func (b *Background) StatsImage() *imaging.Image { return b.stats }

// GetImage reconstructs the full-resolution background surface over the
// model's bounding box. With no argument the control's default style is
// used; an explicit style overrides it for this call only.
func (b *Background) GetImage(style ...InterpStyle) (*imaging.Image, error) {
	return b.GetImageOver(b.imageBox, b.styleFor(style))
}

// GetImageOver reconstructs the background over an arbitrary bounding box.
// Parts of box beyond the fitted footprint take flat-extrapolated boundary
// values.
func (b *Background) GetImageOver(box imaging.Box, style InterpStyle) (*imaging.Image, error) {
	return Reconstruct(b.stats, b.imageBox, style, box)
}

// Subtract reconstructs the background over img's bounding box using the
// default style and subtracts it from img in place.
func (b *Background) Subtract(img *imaging.Image) error {
	if img == nil || img.Box.Empty() {
		return fmt.Errorf("%w: empty subtraction target", ErrInvalidConfig)
	}
	bg, err := b.GetImageOver(img.Box, b.styleFor(nil))
	if err != nil {
		return err
	}
	for i := range img.Pix {
		img.Pix[i] -= bg.Pix[i]
	}
	return nil
}

func (b *Background) styleFor(override []InterpStyle) InterpStyle {
	if len(override) > 0 {
		return override[0]
	}
	return b.ctrl.Interp
}

func (b *Background) String() string {
	return fmt.Sprintf("background %dx%d cells over %v (stat=%v interp=%v)",
		b.stats.Box.Width, b.stats.Box.Height, b.imageBox, b.ctrl.Statistic, b.ctrl.Interp)
}
