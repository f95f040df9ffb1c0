package bgestimate

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSnapshotStore is a minimal SnapshotStore for persistence tests.
type mockSnapshotStore struct {
	lastID    int64
	insertErr error
	snapshots []*Snapshot
}

func (m *mockSnapshotStore) InsertSnapshot(s *Snapshot) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.lastID++
	m.snapshots = append(m.snapshots, s)
	return m.lastID, nil
}

func TestPersistBasicSuccess(t *testing.T) {
	t.Parallel()
	m, err := New(rampImage(12, 12), DefaultControl(4, 4))
	require.NoError(t, err)

	store := &mockSnapshotStore{}
	id, err := m.Persist(store, "frame-0001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, store.snapshots, 1)
	snap := store.snapshots[0]
	assert.Equal(t, "frame-0001", snap.SourceID)
	assert.Equal(t, 3, snap.TilesX)
	assert.Equal(t, 3, snap.TilesY)
	assert.Equal(t, m.ImageBBox(), snap.ImageBox)
	assert.NotEmpty(t, snap.CellsBlob)
	assert.NotZero(t, snap.TakenUnixNanos)
}

func TestPersistNilStore(t *testing.T) {
	t.Parallel()
	m, err := New(rampImage(8, 8), DefaultControl(4, 4))
	require.NoError(t, err)

	_, err = m.Persist(nil, "x")
	assert.Error(t, err)
}

func TestPersistStoreError(t *testing.T) {
	t.Parallel()
	m, err := New(rampImage(8, 8), DefaultControl(4, 4))
	require.NoError(t, err)

	store := &mockSnapshotStore{insertErr: fmt.Errorf("disk full")}
	_, err = m.Persist(store, "x")
	assert.ErrorContains(t, err, "disk full")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctrl := DefaultControl(4, 4)
	ctrl.Statistic = StatMedian
	ctrl.Interp = InterpNaturalSpline
	m, err := New(rampImage(16, 12), ctrl)
	require.NoError(t, err)

	snap, err := m.Snapshot("frame-7")
	require.NoError(t, err)

	restored, err := RestoreBackground(snap)
	require.NoError(t, err)

	if diff := cmp.Diff(m.Control(), restored.Control()); diff != "" {
		t.Errorf("restored control mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, m.ImageBBox(), restored.ImageBBox())
	assert.Equal(t, m.StatsImage().Pix, restored.StatsImage().Pix)

	// the round-trip law: reconstruction is bit-identical
	a, err := m.GetImage()
	require.NoError(t, err)
	b, err := restored.GetImage()
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRestoreRejectsCorruptSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("nil snapshot", func(t *testing.T) {
		t.Parallel()
		_, err := RestoreBackground(nil)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("garbage blob", func(t *testing.T) {
		t.Parallel()
		_, err := RestoreBackground(&Snapshot{CellsBlob: []byte("not gzip")})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("cell count mismatch", func(t *testing.T) {
		t.Parallel()
		blob, err := serializeCells([]float32{1, 2, 3})
		require.NoError(t, err)
		_, err = RestoreBackground(&Snapshot{CellsBlob: blob, TilesX: 2, TilesY: 2})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestSerializeCellsRoundTrip(t *testing.T) {
	t.Parallel()
	cells := []float32{0, 1.5, -3.25, 1e9}
	blob, err := serializeCells(cells)
	require.NoError(t, err)

	back, err := deserializeCells(blob)
	require.NoError(t, err)
	assert.Equal(t, cells, back)

	_, err = deserializeCells(nil)
	assert.Error(t, err)
}
