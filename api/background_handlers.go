package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/httputil"
	"github.com/banshee-data/backgrid/internal/imaging"
	"github.com/banshee-data/backgrid/internal/monitoring"
	sqlite "github.com/banshee-data/backgrid/internal/storage/sqlite"
)

// snapshotSummary is the JSON shape returned for a persisted model.
type snapshotSummary struct {
	UID            string          `json:"uid"`
	SourceID       string          `json:"source_id"`
	TakenUnixNanos int64           `json:"taken_unix_nanos"`
	BBox           boxJSON         `json:"bbox"`
	TilesX         int             `json:"tiles_x"`
	TilesY         int             `json:"tiles_y"`
	Control        json.RawMessage `json:"control"`
}

type boxJSON struct {
	MinX   int `json:"min_x"`
	MinY   int `json:"min_y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func summarize(snap *bgestimate.Snapshot) snapshotSummary {
	return snapshotSummary{
		UID:            snap.SnapshotUID,
		SourceID:       snap.SourceID,
		TakenUnixNanos: snap.TakenUnixNanos,
		BBox: boxJSON{
			MinX:   snap.ImageBox.MinX,
			MinY:   snap.ImageBox.MinY,
			Width:  snap.ImageBox.Width,
			Height: snap.ImageBox.Height,
		},
		TilesX:  snap.TilesX,
		TilesY:  snap.TilesY,
		Control: json.RawMessage(snap.ControlJSON),
	}
}

// handleBackgrounds dispatches the collection endpoint: POST fits and
// persists a new model from an uploaded PNG, GET lists recent snapshots.
func (s *Server) handleBackgrounds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBackground(w, r)
	case http.MethodGet:
		s.listBackgrounds(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// createBackground fits a background model over a PNG request body.
//
// Query parameters: tile_x, tile_y (required), stat, interp, undersample,
// clip_sigma, clip_iters, source_id (optional).
func (s *Server) createBackground(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	ctrl, err := controlFromQuery(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	img, err := imaging.DecodePNG(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to decode png: %v", err))
		return
	}

	bg, err := bgestimate.New(img, ctrl)
	if err != nil {
		switch {
		case errors.Is(err, bgestimate.ErrInvalidConfig):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, bgestimate.ErrInsufficientData):
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			httputil.InternalServerError(w, err.Error())
		}
		return
	}

	sourceID := r.URL.Query().Get("source_id")
	snap, err := bg.Snapshot(sourceID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to snapshot model: %v", err))
		return
	}
	if _, err := s.store.InsertSnapshot(snap); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to persist snapshot: %v", err))
		return
	}

	monitoring.Logf("fitted background %s: %s", snap.SnapshotUID, bg)
	httputil.WriteJSON(w, http.StatusCreated, summarize(snap))
}

// listBackgrounds returns recent snapshots, newest first. Query parameter
// limit defaults to 50.
func (s *Server) listBackgrounds(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 1000 {
			httputil.BadRequest(w, "limit must be an integer in [1,1000]")
			return
		}
		limit = v
	}

	snaps, err := s.store.ListSnapshots(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list snapshots: %v", err))
		return
	}
	summaries := make([]snapshotSummary, 0, len(snaps))
	for _, snap := range snaps {
		summaries = append(summaries, summarize(snap))
	}
	httputil.WriteJSONOK(w, summariesResponse{Snapshots: summaries})
}

type summariesResponse struct {
	Snapshots []snapshotSummary `json:"snapshots"`
}

// handleBackground serves a single snapshot: GET returns metadata,
// DELETE removes it. Selection is by uid, or by source_id (latest).
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, ok := s.lookupSnapshot(w, r)
		if !ok {
			return
		}
		httputil.WriteJSONOK(w, summarize(snap))
	case http.MethodDelete:
		s.deleteBackground(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) deleteBackground(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		httputil.BadRequest(w, "missing uid parameter")
		return
	}
	if err := s.store.DeleteSnapshot(uid); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to delete snapshot: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"deleted": uid})
}

// lookupSnapshot resolves the snapshot addressed by the request's uid or
// source_id parameter, writing the error response itself on failure.
func (s *Server) lookupSnapshot(w http.ResponseWriter, r *http.Request) (*bgestimate.Snapshot, bool) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return nil, false
	}

	q := r.URL.Query()
	uid := q.Get("uid")
	sourceID := q.Get("source_id")

	var (
		snap *bgestimate.Snapshot
		err  error
	)
	switch {
	case uid != "":
		snap, err = s.store.GetSnapshot(uid)
	case sourceID != "":
		snap, err = s.store.LatestForSource(sourceID)
	default:
		httputil.BadRequest(w, "missing uid or source_id parameter")
		return nil, false
	}
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			httputil.NotFound(w, err.Error())
		} else {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load snapshot: %v", err))
		}
		return nil, false
	}
	return snap, true
}

// restoreModel loads and rebuilds the model addressed by the request,
// writing the error response itself on failure.
func (s *Server) restoreModel(w http.ResponseWriter, r *http.Request) (*bgestimate.Background, bool) {
	snap, ok := s.lookupSnapshot(w, r)
	if !ok {
		return nil, false
	}
	bg, err := bgestimate.RestoreBackground(snap)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to restore model: %v", err))
		return nil, false
	}
	return bg, true
}

// controlFromQuery builds a fit Control from request query parameters.
func controlFromQuery(q url.Values) (bgestimate.Control, error) {
	tileX, err := strconv.Atoi(q.Get("tile_x"))
	if err != nil {
		return bgestimate.Control{}, fmt.Errorf("tile_x must be an integer")
	}
	tileY, err := strconv.Atoi(q.Get("tile_y"))
	if err != nil {
		return bgestimate.Control{}, fmt.Errorf("tile_y must be an integer")
	}
	ctrl := bgestimate.DefaultControl(tileX, tileY)

	if raw := q.Get("stat"); raw != "" {
		stat, err := bgestimate.ParseStatistic(raw)
		if err != nil {
			return bgestimate.Control{}, err
		}
		ctrl.Statistic = stat
	}
	if raw := q.Get("interp"); raw != "" {
		style, err := bgestimate.ParseInterpStyle(raw)
		if err != nil {
			return bgestimate.Control{}, err
		}
		ctrl.Interp = style
	}
	if raw := q.Get("undersample"); raw != "" {
		us, err := bgestimate.ParseUndersampleStyle(raw)
		if err != nil {
			return bgestimate.Control{}, err
		}
		ctrl.Undersample = us
	}
	if raw := q.Get("clip_sigma"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bgestimate.Control{}, fmt.Errorf("clip_sigma must be a number")
		}
		ctrl.ClipSigma = v
	}
	if raw := q.Get("clip_iters"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return bgestimate.Control{}, fmt.Errorf("clip_iters must be an integer")
		}
		ctrl.ClipIters = v
	}
	return ctrl, nil
}
