package bgestimate

import (
	"fmt"
	"math"

	"github.com/banshee-data/backgrid/internal/imaging"
)

// computeStatsImage partitions img into the tile grid described by ctrl and
// computes one statistic per tile. It returns the coarse stats image (its
// box is the cell grid, origin (0,0)) together with the pixel-space
// footprint the cells cover. The footprint equals img.Box except under
// UndersampleReduce, which may trim boundary tiles.
//
// Deterministic: tiles are visited in row-major order and every policy has
// a fixed tie-break.
func computeStatsImage(img *imaging.Image, ctrl Control) (*imaging.Image, imaging.Box, error) {
	tilesX := (img.Box.Width + ctrl.TileSizeX - 1) / ctrl.TileSizeX
	tilesY := (img.Box.Height + ctrl.TileSizeY - 1) / ctrl.TileSizeY

	cells := imaging.NewImage(imaging.NewBox(0, 0, tilesX, tilesY))
	empty := make([]bool, tilesX*tilesY)
	emptyCount := 0

	buf := make([]float64, 0, ctrl.TileSizeX*ctrl.TileSizeY)
	for ty := 0; ty < tilesY; ty++ {
		yStart := img.Box.MinY + ty*ctrl.TileSizeY
		yEnd := yStart + ctrl.TileSizeY
		if yEnd > img.Box.MaxY() {
			yEnd = img.Box.MaxY()
		}
		for tx := 0; tx < tilesX; tx++ {
			xStart := img.Box.MinX + tx*ctrl.TileSizeX
			xEnd := xStart + ctrl.TileSizeX
			if xEnd > img.Box.MaxX() {
				xEnd = img.Box.MaxX()
			}

			buf = buf[:0]
			for y := yStart; y < yEnd; y++ {
				for x := xStart; x < xEnd; x++ {
					v := img.At(x, y)
					if !math.IsNaN(float64(v)) {
						buf = append(buf, float64(v))
					}
				}
			}

			idx := ty*tilesX + tx
			if len(buf) == 0 {
				if ctrl.Undersample == UndersampleThrow {
					return nil, imaging.Box{}, fmt.Errorf(
						"%w: tile (%d,%d) has no valid pixels", ErrInsufficientData, tx, ty)
				}
				empty[idx] = true
				emptyCount++
				cells.Pix[idx] = float32(math.NaN())
				continue
			}
			cells.Pix[idx] = float32(tileStatistic(buf, ctrl))
		}
	}

	if emptyCount == 0 {
		return cells, img.Box, nil
	}

	switch ctrl.Undersample {
	case UndersampleExtrapolate:
		fillFromNearestValid(cells, empty)
		return cells, img.Box, nil
	case UndersampleReduce:
		return reduceGrid(cells, empty, img.Box, ctrl)
	default:
		// Unreachable when the control has been validated.
		return nil, imaging.Box{}, fmt.Errorf("%w: unhandled undersample style %v",
			ErrInvalidConfig, ctrl.Undersample)
	}
}

// fillFromNearestValid replaces empty cells with the value of their nearest
// populated cell, by multi-source BFS over the 8-neighbourhood. Ties break
// on the lower cell index, so the fill is deterministic.
func fillFromNearestValid(cells *imaging.Image, empty []bool) {
	w, h := cells.Box.Width, cells.Box.Height
	queue := make([]int, 0, len(cells.Pix))
	filled := make([]bool, len(cells.Pix))
	for i := range cells.Pix {
		if !empty[i] {
			filled[i] = true
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		next := queue[:0:0]
		for _, idx := range queue {
			cx, cy := idx%w, idx/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := cx+dx, cy+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					nIdx := ny*w + nx
					if !filled[nIdx] {
						filled[nIdx] = true
						cells.Pix[nIdx] = cells.Pix[idx]
						next = append(next, nIdx)
					}
				}
			}
		}
		queue = next
	}
}

// reduceGrid trims boundary rows/columns until no empty tiles remain,
// keeping the largest fully-populated sub-grid. Each step removes the
// boundary line holding the most empty tiles (ties: bottom row, top row,
// right column, left column). Fails with ErrInsufficientData when nothing
// survives.
func reduceGrid(cells *imaging.Image, empty []bool, imgBox imaging.Box, ctrl Control) (*imaging.Image, imaging.Box, error) {
	w := cells.Box.Width
	x0, y0 := 0, 0
	x1, y1 := cells.Box.Width-1, cells.Box.Height-1

	countLine := func(fx0, fy0, fx1, fy1 int) int {
		n := 0
		for y := fy0; y <= fy1; y++ {
			for x := fx0; x <= fx1; x++ {
				if empty[y*w+x] {
					n++
				}
			}
		}
		return n
	}

	for x0 <= x1 && y0 <= y1 {
		total := countLine(x0, y0, x1, y1)
		if total == 0 {
			break
		}
		bottom := countLine(x0, y1, x1, y1)
		top := countLine(x0, y0, x1, y0)
		right := countLine(x1, y0, x1, y1)
		left := countLine(x0, y0, x0, y1)

		best := bottom
		edge := 0
		if top > best {
			best, edge = top, 1
		}
		if right > best {
			best, edge = right, 2
		}
		if left > best {
			edge = 3
		}
		switch edge {
		case 0:
			y1--
		case 1:
			y0++
		case 2:
			x1--
		case 3:
			x0++
		}
	}

	if x0 > x1 || y0 > y1 {
		return nil, imaging.Box{}, fmt.Errorf(
			"%w: no fully-populated sub-grid after reduction", ErrInsufficientData)
	}

	nw, nh := x1-x0+1, y1-y0+1
	out := imaging.NewImage(imaging.NewBox(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			out.Pix[y*nw+x] = cells.Pix[(y+y0)*w+(x+x0)]
		}
	}

	// Pixel footprint of the retained tiles.
	fx := imgBox.MinX + x0*ctrl.TileSizeX
	fy := imgBox.MinY + y0*ctrl.TileSizeY
	fw := (x1 + 1) * ctrl.TileSizeX
	if fw > imgBox.Width {
		fw = imgBox.Width
	}
	fw -= x0 * ctrl.TileSizeX
	fh := (y1 + 1) * ctrl.TileSizeY
	if fh > imgBox.Height {
		fh = imgBox.Height
	}
	fh -= y0 * ctrl.TileSizeY
	return out, imaging.NewBox(fx, fy, fw, fh), nil
}
