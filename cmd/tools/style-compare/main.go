// Command style-compare fits one background model per interpolation style
// over the same image and reports per-style residual statistics, so a style
// can be chosen for a given image population.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/imaging"
)

// Config holds configuration for the style comparison.
type Config struct {
	Input      string
	TileX      int
	TileY      int
	Stat       string
	OutputDir  string
	OutputJSON string
}

// StyleResult holds residual statistics for one interpolation style.
type StyleResult struct {
	Style       string  `json:"style"`
	RMSResidual float64 `json:"rms_residual"`
	MaxResidual float64 `json:"max_residual"`
	Error       string  `json:"error,omitempty"`
}

// ComparisonResult holds the full comparison output.
type ComparisonResult struct {
	Input    string        `json:"input"`
	TileX    int           `json:"tile_x"`
	TileY    int           `json:"tile_y"`
	Stat     string        `json:"stat"`
	PerStyle []StyleResult `json:"per_style"`
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.Input, "input", "", "Path to input PNG image")
	flag.IntVar(&cfg.TileX, "tile-x", 64, "Tile width in pixels")
	flag.IntVar(&cfg.TileY, "tile-y", 64, "Tile height in pixels")
	flag.StringVar(&cfg.Stat, "stat", "meanclip", "Per-tile statistic: mean, median, meanclip")
	flag.StringVar(&cfg.OutputDir, "output", "", "Directory for per-style background PNGs (optional)")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g. results.json)")

	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()

	if cfg.Input == "" {
		log.Fatal("input image is required")
	}

	result, err := runComparison(cfg)
	if err != nil {
		log.Fatalf("comparison failed: %v", err)
	}

	printResults(result)

	if cfg.OutputJSON != "" {
		if err := exportJSON(result, cfg.OutputJSON); err != nil {
			log.Printf("warning: failed to export JSON: %v", err)
		} else {
			log.Printf("results exported to: %s", cfg.OutputJSON)
		}
	}
}

func runComparison(cfg Config) (*ComparisonResult, error) {
	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	img, err := imaging.DecodePNG(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}

	stat, err := bgestimate.ParseStatistic(cfg.Stat)
	if err != nil {
		return nil, err
	}
	ctrl := bgestimate.DefaultControl(cfg.TileX, cfg.TileY)
	ctrl.Statistic = stat

	// One fit; styles only affect reconstruction.
	bg, err := bgestimate.New(img, ctrl)
	if err != nil {
		return nil, fmt.Errorf("fit background: %w", err)
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	result := &ComparisonResult{
		Input: cfg.Input,
		TileX: cfg.TileX,
		TileY: cfg.TileY,
		Stat:  cfg.Stat,
	}
	for _, style := range bgestimate.AllInterpStyles() {
		result.PerStyle = append(result.PerStyle, compareStyle(cfg, bg, img, style))
	}
	return result, nil
}

func compareStyle(cfg Config, bg *bgestimate.Background, img *imaging.Image, style bgestimate.InterpStyle) StyleResult {
	res := StyleResult{Style: style.String()}

	rendered, err := bg.GetImage(style)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	// Residuals are taken over the rendered footprint, which can be
	// smaller than the input when the grid was reduced.
	var sumSq float64
	var count int
	maxAbs := 0.0
	box := rendered.Box
	for y := box.MinY; y < box.MaxY(); y++ {
		for x := box.MinX; x < box.MaxX(); x++ {
			v := float64(img.At(x, y))
			if math.IsNaN(v) {
				continue
			}
			d := v - float64(rendered.At(x, y))
			sumSq += d * d
			if math.Abs(d) > maxAbs {
				maxAbs = math.Abs(d)
			}
			count++
		}
	}
	if count > 0 {
		res.RMSResidual = math.Sqrt(sumSq / float64(count))
	}
	res.MaxResidual = maxAbs

	if cfg.OutputDir != "" {
		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("background_%s.png", style))
		if err := writePNG(path, rendered); err != nil {
			res.Error = err.Error()
		}
	}
	return res
}

func printResults(result *ComparisonResult) {
	fmt.Printf("Input: %s (tiles %dx%d, stat %s)\n", result.Input, result.TileX, result.TileY, result.Stat)
	fmt.Printf("%-16s %12s %12s\n", "STYLE", "RMS", "MAX")
	for _, r := range result.PerStyle {
		if r.Error != "" {
			fmt.Printf("%-16s %s\n", r.Style, r.Error)
			continue
		}
		fmt.Printf("%-16s %12.4f %12.4f\n", r.Style, r.RMSResidual, r.MaxResidual)
	}
}

func exportJSON(result *ComparisonResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writePNG(path string, img *imaging.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return imaging.EncodePNG(f, img)
}
