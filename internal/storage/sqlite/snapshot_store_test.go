package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/imaging"
)

func fitTestModel(t *testing.T) *bgestimate.Background {
	t.Helper()
	img := imaging.NewImage(imaging.NewBox(0, 0, 12, 12))
	for i := range img.Pix {
		img.Pix[i] = float32(i % 7)
	}
	ctrl := bgestimate.DefaultControl(4, 4)
	ctrl.Statistic = bgestimate.StatMean
	m, err := bgestimate.New(img, ctrl)
	require.NoError(t, err)
	return m
}

func TestInsertAndGetSnapshot(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db)
	m := fitTestModel(t)

	snap, err := m.Snapshot("scene-a")
	require.NoError(t, err)
	id, err := store.InsertSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, id, *snap.SnapshotID)
	require.NotEmpty(t, snap.SnapshotUID)

	got, err := store.GetSnapshot(snap.SnapshotUID)
	require.NoError(t, err)
	assert.Equal(t, snap.SourceID, got.SourceID)
	assert.Equal(t, snap.ImageBox, got.ImageBox)
	assert.Equal(t, snap.TilesX, got.TilesX)
	assert.Equal(t, snap.CellsBlob, got.CellsBlob)
	assert.Equal(t, snap.ControlJSON, got.ControlJSON)

	byID, err := store.GetSnapshotByID(id)
	require.NoError(t, err)
	assert.Equal(t, got.SnapshotUID, byID.SnapshotUID)
}

func TestRestoreFromStoredSnapshot(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db)
	m := fitTestModel(t)

	_, err := m.Persist(store, "scene-b")
	require.NoError(t, err)

	stored, err := store.LatestForSource("scene-b")
	require.NoError(t, err)

	restored, err := bgestimate.RestoreBackground(stored)
	require.NoError(t, err)

	a, err := m.GetImage()
	require.NoError(t, err)
	b, err := restored.GetImage()
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestLatestForSourceOrdering(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db)
	m := fitTestModel(t)

	older, err := m.Snapshot("scene-c")
	require.NoError(t, err)
	older.TakenUnixNanos = 100
	_, err = store.InsertSnapshot(older)
	require.NoError(t, err)

	newer, err := m.Snapshot("scene-c")
	require.NoError(t, err)
	newer.TakenUnixNanos = 200
	_, err = store.InsertSnapshot(newer)
	require.NoError(t, err)

	got, err := store.LatestForSource("scene-c")
	require.NoError(t, err)
	assert.Equal(t, newer.SnapshotUID, got.SnapshotUID)

	_, err = store.LatestForSource("absent")
	assert.Error(t, err)
}

func TestListSnapshotsLimit(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db)
	m := fitTestModel(t)

	for i := 0; i < 3; i++ {
		snap, err := m.Snapshot("scene-d")
		require.NoError(t, err)
		snap.TakenUnixNanos = int64(i + 1)
		_, err = store.InsertSnapshot(snap)
		require.NoError(t, err)
	}

	all, err := store.ListSnapshots(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// newest first
	assert.Equal(t, int64(3), all[0].TakenUnixNanos)

	two, err := store.ListSnapshots(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestDeleteSnapshot(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db)
	m := fitTestModel(t)

	snap, err := m.Snapshot("scene-e")
	require.NoError(t, err)
	_, err = store.InsertSnapshot(snap)
	require.NoError(t, err)

	require.NoError(t, store.DeleteSnapshot(snap.SnapshotUID))
	_, err = store.GetSnapshot(snap.SnapshotUID)
	assert.Error(t, err)

	// deleting again is not an error
	assert.NoError(t, store.DeleteSnapshot(snap.SnapshotUID))
}

func TestInsertNilSnapshot(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db)
	_, err := store.InsertSnapshot(nil)
	assert.Error(t, err)
}
