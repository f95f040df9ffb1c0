package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/imaging"
)

// ErrNotFound is returned when no snapshot matches the requested key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore provides persistence for fitted background snapshots.
// It implements bgestimate.SnapshotStore.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a SnapshotStore backed by the given database.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

const snapshotColumns = `snapshot_id, snapshot_uid, source_id, taken_unix_nanos,
	min_x, min_y, width, height, tiles_x, tiles_y, cells_blob, control_json`

// InsertSnapshot persists a snapshot. A SnapshotUID is generated when the
// caller did not supply one; TakenUnixNanos defaults to now. The assigned
// row ID is returned and stored back on the snapshot.
func (s *SnapshotStore) InsertSnapshot(snap *bgestimate.Snapshot) (int64, error) {
	if snap == nil {
		return 0, fmt.Errorf("nil snapshot")
	}
	if snap.SnapshotUID == "" {
		snap.SnapshotUID = uuid.New().String()
	}
	if snap.TakenUnixNanos == 0 {
		snap.TakenUnixNanos = time.Now().UnixNano()
	}

	var id int64
	err := retryOnBusy(func() error {
		res, err := s.db.Exec(`
			INSERT INTO bg_snapshots (
				snapshot_uid, source_id, taken_unix_nanos,
				min_x, min_y, width, height, tiles_x, tiles_y,
				cells_blob, control_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.SnapshotUID, snap.SourceID, snap.TakenUnixNanos,
			snap.ImageBox.MinX, snap.ImageBox.MinY, snap.ImageBox.Width, snap.ImageBox.Height,
			snap.TilesX, snap.TilesY, snap.CellsBlob, snap.ControlJSON,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	snap.SnapshotID = &id
	return id, nil
}

// GetSnapshot returns a snapshot by its external UID.
func (s *SnapshotStore) GetSnapshot(uid string) (*bgestimate.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM bg_snapshots WHERE snapshot_uid = ?`, uid)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: uid %s", ErrNotFound, uid)
	}
	return snap, err
}

// GetSnapshotByID returns a snapshot by its row ID.
func (s *SnapshotStore) GetSnapshotByID(id int64) (*bgestimate.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM bg_snapshots WHERE snapshot_id = ?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return snap, err
}

// LatestForSource returns the most recent snapshot recorded for a source
// image, or an error when none exists.
func (s *SnapshotStore) LatestForSource(sourceID string) (*bgestimate.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM bg_snapshots WHERE source_id = ?
		ORDER BY taken_unix_nanos DESC LIMIT 1`, sourceID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no snapshot for source %s", ErrNotFound, sourceID)
	}
	return snap, err
}

// ListSnapshots returns up to limit snapshots ordered newest first.
// A non-positive limit returns all rows.
func (s *SnapshotStore) ListSnapshots(limit int) ([]*bgestimate.Snapshot, error) {
	q := `SELECT ` + snapshotColumns + ` FROM bg_snapshots ORDER BY taken_unix_nanos DESC`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*bgestimate.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshot removes a snapshot by UID. Deleting a missing snapshot is
// not an error.
func (s *SnapshotStore) DeleteSnapshot(uid string) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM bg_snapshots WHERE snapshot_uid = ?`, uid)
		return err
	})
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (*bgestimate.Snapshot, error) {
	var snap bgestimate.Snapshot
	var id int64
	var minX, minY, width, height int
	err := row.Scan(
		&id, &snap.SnapshotUID, &snap.SourceID, &snap.TakenUnixNanos,
		&minX, &minY, &width, &height, &snap.TilesX, &snap.TilesY,
		&snap.CellsBlob, &snap.ControlJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.SnapshotID = &id
	snap.ImageBox = imaging.NewBox(minX, minY, width, height)
	return &snap, nil
}
