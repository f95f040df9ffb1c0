package bgestimate

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/backgrid/internal/imaging"
)

// Snapshot is the persisted form of a fitted Background: the bounding box
// plus the stats image cells, with the control for reconstruction defaults.
// Matches the bg_snapshot table structure.
type Snapshot struct {
	SnapshotID     *int64 // set by the database after insert
	SnapshotUID    string // external identifier; assigned by the store when empty
	SourceID       string // caller-supplied identifier of the source image
	TakenUnixNanos int64
	ImageBox       imaging.Box
	TilesX         int
	TilesY         int
	CellsBlob      []byte // gob+gzip compressed []float32 cells
	ControlJSON    string
}

// SnapshotStore persists Snapshot records. Implemented by
// storage/sqlite.SnapshotStore.
type SnapshotStore interface {
	InsertSnapshot(s *Snapshot) (int64, error)
}

// serializeCells compresses grid cells using gob encoding and gzip.
func serializeCells(cells []float32) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(cells); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeCells decompresses and decodes grid cells from a gob+gzip blob.
func deserializeCells(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty cells blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var cells []float32
	dec := gob.NewDecoder(gz)
	if err := dec.Decode(&cells); err != nil {
		return nil, fmt.Errorf("failed to decode grid cells: %w", err)
	}
	return cells, nil
}

// Snapshot builds a persistable snapshot of the model.
func (b *Background) Snapshot(sourceID string) (*Snapshot, error) {
	blob, err := serializeCells(b.stats.Pix)
	if err != nil {
		return nil, err
	}
	ctrlJSON, err := json.Marshal(b.ctrl)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		SourceID:       sourceID,
		TakenUnixNanos: time.Now().UnixNano(),
		ImageBox:       b.imageBox,
		TilesX:         b.stats.Box.Width,
		TilesY:         b.stats.Box.Height,
		CellsBlob:      blob,
		ControlJSON:    string(ctrlJSON),
	}, nil
}

// Persist writes a snapshot of the model via the provided store and returns
// the assigned snapshot ID.
func (b *Background) Persist(store SnapshotStore, sourceID string) (int64, error) {
	if store == nil {
		return 0, fmt.Errorf("nil snapshot store")
	}
	snap, err := b.Snapshot(sourceID)
	if err != nil {
		return 0, err
	}
	return store.InsertSnapshot(snap)
}

// RestoreBackground rebuilds a Background from a persisted snapshot. The
// round-trip law holds: the restored model reconstructs bit-identical
// images to the one that produced the snapshot.
func RestoreBackground(s *Snapshot) (*Background, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidConfig)
	}
	cells, err := deserializeCells(s.CellsBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(cells) != s.TilesX*s.TilesY {
		return nil, fmt.Errorf("%w: blob holds %d cells, snapshot declares %dx%d",
			ErrInvalidConfig, len(cells), s.TilesX, s.TilesY)
	}
	var ctrl Control
	if err := json.Unmarshal([]byte(s.ControlJSON), &ctrl); err != nil {
		return nil, fmt.Errorf("%w: bad control json: %v", ErrInvalidConfig, err)
	}
	stats := &imaging.Image{Box: imaging.NewBox(0, 0, s.TilesX, s.TilesY), Pix: cells}
	return FromStatsImage(s.ImageBox, stats, ctrl)
}
