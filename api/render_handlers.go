package api

import (
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"gonum.org/v1/plot"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/httputil"
	"github.com/banshee-data/backgrid/internal/imaging"
	"github.com/banshee-data/backgrid/internal/monitor"
)

// handleImagePNG renders the reconstructed background surface as a
// grayscale PNG. Query parameters: uid or source_id to select the model,
// style to override the stored interpolation style, preview to cap the
// longest output dimension.
func (s *Server) handleImagePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	bg, ok := s.restoreModel(w, r)
	if !ok {
		return
	}

	var styleOverride []bgestimate.InterpStyle
	if raw := r.URL.Query().Get("style"); raw != "" {
		style, err := bgestimate.ParseInterpStyle(raw)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		styleOverride = append(styleOverride, style)
	}

	img, err := bg.GetImage(styleOverride...)
	if err != nil {
		switch {
		case errors.Is(err, bgestimate.ErrUnsupportedStyle):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.InternalServerError(w, fmt.Sprintf("failed to render background: %v", err))
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if raw := r.URL.Query().Get("preview"); raw != "" {
		maxDim, err := strconv.Atoi(raw)
		if err != nil || maxDim < 1 {
			httputil.BadRequest(w, "preview must be a positive integer")
			return
		}
		if err := png.Encode(w, imaging.Preview(img, maxDim)); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to encode preview: %v", err))
		}
		return
	}
	if err := imaging.EncodePNG(w, img); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode png: %v", err))
	}
}

// handleStatsPNG serves the coarse per-tile stats image as a grayscale
// PNG, one pixel per tile.
func (s *Server) handleStatsPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	bg, ok := s.restoreModel(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := imaging.EncodePNG(w, bg.StatsImage()); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode stats png: %v", err))
	}
}

// handleProfilePNG renders a one-dimensional profile cut through the
// model as a PNG plot. Query parameters: axis (row|col, default row) and
// index (pixel coordinate of the cut; defaults to the bbox centre).
// With compare=1 every renderable interpolation style is overlaid.
func (s *Server) handleProfilePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	bg, ok := s.restoreModel(w, r)
	if !ok {
		return
	}

	box := bg.ImageBBox()
	axis := monitor.AxisRow
	index := box.MinY + box.Height/2
	switch r.URL.Query().Get("axis") {
	case "", "row":
	case "col", "column":
		axis = monitor.AxisCol
		index = box.MinX + box.Width/2
	default:
		httputil.BadRequest(w, "axis must be row or col")
		return
	}
	if raw := r.URL.Query().Get("index"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httputil.BadRequest(w, "index must be an integer")
			return
		}
		index = v
	}

	var p *plot.Plot
	var err error
	if r.URL.Query().Get("compare") == "1" {
		p, err = monitor.StyleComparePlot(bg, axis, index, bgestimate.AllInterpStyles())
	} else {
		p, err = monitor.ProfilePlot(bg, axis, index)
	}
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := monitor.WritePNG(p, w); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
	}
}

// handleChart serves the interactive stats grid chart as an HTML page.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap, ok := s.lookupSnapshot(w, r)
	if !ok {
		return
	}
	bg, err := bgestimate.RestoreBackground(snap)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to restore model: %v", err))
		return
	}

	title := "Background Stats Grid"
	if snap.SourceID != "" {
		title = fmt.Sprintf("Background Stats Grid: %s", snap.SourceID)
	}
	html, err := monitor.StatsChartHTML(bg, title)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}
