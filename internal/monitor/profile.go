package monitor

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/imaging"
)

// Axis selects the direction of a profile cut through the model.
type Axis int

const (
	// AxisRow cuts along a horizontal line (fixed y).
	AxisRow Axis = iota
	// AxisCol cuts along a vertical line (fixed x).
	AxisCol
)

func (a Axis) String() string {
	if a == AxisCol {
		return "column"
	}
	return "row"
}

// ProfilePlot renders a one-dimensional cut through the reconstructed
// background surface at the given pixel index, overlaid with the per-tile
// statistic values at their centre positions. The cut uses the model's
// configured interpolation style.
func ProfilePlot(bg *bgestimate.Background, axis Axis, index int) (*plot.Plot, error) {
	box := bg.ImageBBox()
	if axis == AxisRow && (index < box.MinY || index >= box.MaxY()) {
		return nil, fmt.Errorf("row %d outside model bounds %s", index, box)
	}
	if axis == AxisCol && (index < box.MinX || index >= box.MaxX()) {
		return nil, fmt.Errorf("column %d outside model bounds %s", index, box)
	}

	rendered, err := bg.GetImage()
	if err != nil {
		return nil, fmt.Errorf("render background: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Background %s profile at %d", axis, index)
	p.Y.Label.Text = "Background level"
	if axis == AxisRow {
		p.X.Label.Text = "X (px)"
	} else {
		p.X.Label.Text = "Y (px)"
	}

	line, err := plotter.NewLine(cutProfile(rendered, axis, index))
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 255}
	p.Add(line)
	p.Legend.Add(bg.Control().Interp.String(), line)

	knots, err := plotter.NewScatter(knotProfile(bg, axis, index))
	if err != nil {
		return nil, err
	}
	knots.Radius = vg.Points(2.5)
	knots.Color = color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 255}
	p.Add(knots)
	p.Legend.Add("tile statistic", knots)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// StyleComparePlot renders the same profile cut reconstructed under each of
// the given interpolation styles, one line per style. Styles that cannot be
// rendered (None, or a spline on too few tiles) are skipped.
func StyleComparePlot(bg *bgestimate.Background, axis Axis, index int, styles []bgestimate.InterpStyle) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Interpolation styles, %s profile at %d", axis, index)
	p.Y.Label.Text = "Background level"
	if axis == AxisRow {
		p.X.Label.Text = "X (px)"
	} else {
		p.X.Label.Text = "Y (px)"
	}

	colors := palette(len(styles))
	plotted := 0
	for i, style := range styles {
		rendered, err := bg.GetImage(style)
		if err != nil {
			continue
		}
		line, err := plotter.NewLine(cutProfile(rendered, axis, index))
		if err != nil {
			return nil, err
		}
		line.Width = vg.Points(1)
		line.Color = colors[i]
		p.Add(line)
		p.Legend.Add(style.String(), line)
		plotted++
	}
	if plotted == 0 {
		return nil, fmt.Errorf("no style produced a profile at %s %d", axis, index)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the plot as a PNG to w at the standard profile size.
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("prepare png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG renders the plot as a PNG file at the standard profile size.
func SavePNG(p *plot.Plot, path string) error {
	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}

// cutProfile extracts the pixel values along a row or column of img.
func cutProfile(img *imaging.Image, axis Axis, index int) plotter.XYs {
	box := img.Box
	if axis == AxisRow {
		pts := make(plotter.XYs, 0, box.Width)
		for x := box.MinX; x < box.MaxX(); x++ {
			v := float64(img.At(x, index))
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(x), Y: v})
		}
		return pts
	}
	pts := make(plotter.XYs, 0, box.Height)
	for y := box.MinY; y < box.MaxY(); y++ {
		v := float64(img.At(index, y))
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(y), Y: v})
	}
	return pts
}

// knotProfile returns the tile statistic values for the grid line nearest
// the cut, positioned at the tile centre coordinates along the cut axis.
func knotProfile(bg *bgestimate.Background, axis Axis, index int) plotter.XYs {
	stats := bg.StatsImage()
	box := bg.ImageBBox()
	tilesX := stats.Box.Width
	tilesY := stats.Box.Height

	if axis == AxisRow {
		centresX := bgestimate.TileCentres(box.MinX, box.Width, tilesX)
		centresY := bgestimate.TileCentres(box.MinY, box.Height, tilesY)
		ty := nearestCentre(centresY, float64(index))
		pts := make(plotter.XYs, 0, tilesX)
		for tx := 0; tx < tilesX; tx++ {
			v := float64(stats.At(tx, ty))
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: centresX[tx], Y: v})
		}
		return pts
	}

	centresX := bgestimate.TileCentres(box.MinX, box.Width, tilesX)
	centresY := bgestimate.TileCentres(box.MinY, box.Height, tilesY)
	tx := nearestCentre(centresX, float64(index))
	pts := make(plotter.XYs, 0, tilesY)
	for ty := 0; ty < tilesY; ty++ {
		v := float64(stats.At(tx, ty))
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: centresY[ty], Y: v})
	}
	return pts
}

func nearestCentre(centres []float64, pos float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centres {
		if d := math.Abs(c - pos); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// palette creates n visually distinct line colors spread around the hue wheel.
func palette(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
