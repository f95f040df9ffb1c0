package bgestimate

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/backgrid/internal/imaging"
)

// Reconstruct expands the coarse stats image back to full resolution over
// outBox. fitBox is the pixel-space footprint the stats cells were fitted
// over; tile centres are distributed evenly across it. Output pixels beyond
// the outermost tile centres (including any part of outBox outside fitBox)
// take the flat-extrapolated value of the nearest centre.
//
// Reconstruction is a pure function of (stats, fitBox, style, outBox):
// the same inputs always yield bit-identical output.
func Reconstruct(stats *imaging.Image, fitBox imaging.Box, style InterpStyle, outBox imaging.Box) (*imaging.Image, error) {
	if style == InterpNone {
		return nil, fmt.Errorf("%w: style %v selects no reconstruction", ErrUnsupportedStyle, style)
	}
	if _, ok := interpNames[style]; !ok {
		return nil, fmt.Errorf("%w: unknown style %d", ErrUnsupportedStyle, int(style))
	}
	if stats == nil || stats.Box.Empty() {
		return nil, fmt.Errorf("%w: empty stats image", ErrInsufficientData)
	}
	if fitBox.Empty() || outBox.Empty() {
		return nil, fmt.Errorf("%w: empty bounding box", ErrInvalidConfig)
	}

	out := imaging.NewImage(outBox)
	if style == InterpConstant {
		out.Fill(float32(gridMean(stats)))
		return out, nil
	}

	nx, ny := stats.Box.Width, stats.Box.Height
	cx := TileCentres(fitBox.MinX, fitBox.Width, nx)
	cy := TileCentres(fitBox.MinY, fitBox.Height, ny)

	// Separable interpolation: first each grid row across the output
	// columns, then each output column down the output rows.
	rows := make([][]float64, ny)
	rowVals := make([]float64, nx)
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			rowVals[j] = float64(stats.Pix[i*nx+j])
		}
		row, err := interpolateLine(cx, rowVals, style, outBox.MinX, outBox.Width)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}

	colVals := make([]float64, ny)
	for x := 0; x < outBox.Width; x++ {
		for i := 0; i < ny; i++ {
			colVals[i] = rows[i][x]
		}
		col, err := interpolateLine(cy, colVals, style, outBox.MinY, outBox.Height)
		if err != nil {
			return nil, err
		}
		for y := 0; y < outBox.Height; y++ {
			out.Pix[y*outBox.Width+x] = float32(col[y])
		}
	}
	return out, nil
}

// TileCentres returns the pixel-index coordinates of n cell centres spread
// evenly across an axis of the given origin and extent.
func TileCentres(origin, extent, n int) []float64 {
	spacing := float64(extent) / float64(n)
	centres := make([]float64, n)
	for i := range centres {
		centres[i] = float64(origin) + (float64(i)+0.5)*spacing - 0.5
	}
	return centres
}

// interpolateLine evaluates one 1D pass at every output pixel coordinate
// origin..origin+count-1. Coordinates are clamped to the knot span before
// prediction, which yields the flat edge policy. A single-knot axis
// degenerates to a constant.
func interpolateLine(xs, ys []float64, style InterpStyle, origin, count int) ([]float64, error) {
	out := make([]float64, count)
	if len(xs) == 1 {
		for i := range out {
			out[i] = ys[0]
		}
		return out, nil
	}

	p, err := newPredictor(style)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fit %v predictor: %w", style, err)
	}

	lo, hi := xs[0], xs[len(xs)-1]
	for i := range out {
		x := float64(origin + i)
		if x < lo {
			x = lo
		} else if x > hi {
			x = hi
		}
		out[i] = p.Predict(x)
	}
	return out, nil
}

// newPredictor maps a style to a gonum 1D predictor.
func newPredictor(style InterpStyle) (interp.FittablePredictor, error) {
	switch style {
	case InterpLinear:
		return &interp.PiecewiseLinear{}, nil
	case InterpNaturalSpline:
		return &interp.NaturalCubic{}, nil
	case InterpAkima:
		return &interp.AkimaSpline{}, nil
	default:
		return nil, fmt.Errorf("%w: no predictor for style %v", ErrUnsupportedStyle, style)
	}
}

// gridMean is the single-cell statistic of the whole grid: the plain mean
// over all cells.
func gridMean(stats *imaging.Image) float64 {
	vals := make([]float64, len(stats.Pix))
	for i, v := range stats.Pix {
		vals[i] = float64(v)
	}
	return stat.Mean(vals, nil)
}
