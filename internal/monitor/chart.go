package monitor

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/backgrid/internal/bgestimate"
)

// viridisColors is the color ramp used by the grid charts.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// StatsChartHTML renders the model's stats grid as an interactive scatter
// chart: one symbol per tile, positioned at the tile centre in image
// coordinates and colored by the tile statistic. Returns a standalone HTML
// page.
func StatsChartHTML(bg *bgestimate.Background, title string) ([]byte, error) {
	stats := bg.StatsImage()
	box := bg.ImageBBox()
	tilesX := stats.Box.Width
	tilesY := stats.Box.Height

	centresX := bgestimate.TileCentres(box.MinX, box.Width, tilesX)
	centresY := bgestimate.TileCentres(box.MinY, box.Height, tilesY)

	data := make([]opts.ScatterData, 0, tilesX*tilesY)
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			v := float64(stats.At(tx, ty))
			if math.IsNaN(v) {
				continue
			}
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
			data = append(data, opts.ScatterData{Value: []interface{}{centresX[tx], centresY[ty], v}})
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("stats grid has no valid tiles")
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	// Symbols sized so adjacent tiles roughly touch on a 900px canvas.
	symbolSize := 900 / max(tilesX, tilesY)
	if symbolSize < 4 {
		symbolSize = 4
	}
	if symbolSize > 40 {
		symbolSize = 40
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("tiles=%dx%d bbox=%s", tilesX, tilesY, box)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: box.MinX, Max: box.MaxX(), Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: box.MinY, Max: box.MaxY(), Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minVal),
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("tile statistic", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: symbolSize}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
