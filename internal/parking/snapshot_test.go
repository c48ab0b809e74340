package parking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	_, err = e.Unpark("ABC-123", at(2*time.Hour))
	require.NoError(t, err)
	_, err = e.Park("ABC-123", Small, 0, at(150*time.Minute))
	require.NoError(t, err)
	_, err = e.Park("XYZ-999", Large, 1, at(time.Hour))
	require.NoError(t, err)

	snap := e.Snapshot()
	restored, err := RestoreEngine(snap)
	require.NoError(t, err)

	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, e.EntryPoints(), restored.EntryPoints())

	// Billing continues across the restore as if nothing happened.
	want, err := e.Unpark("ABC-123", at(10*time.Hour))
	require.NoError(t, err)
	got, err := restored.Unpark("ABC-123", at(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = restored.Park("XYZ-999", Large, 0, at(11*time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyParked)
}

func TestSnapshotIsDetached(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)

	snap := e.Snapshot()
	snap.Slots[2].IsVacant = true
	snap.Vehicles[0].Sessions[0].SlotLocation[0] = 9

	assert.NoError(t, e.Verify())
}

func TestRestoreEngineRejectsInconsistentSnapshots(t *testing.T) {
	base := func() Snapshot {
		e := newTestEngine(t)
		_, err := e.Park("ABC-123", Small, 0, at(0))
		require.NoError(t, err)
		return e.Snapshot()
	}

	t.Run("occupied slot without holder", func(t *testing.T) {
		snap := base()
		snap.Slots[0].IsVacant = false
		_, err := RestoreEngine(snap)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("parked vehicle in vacant slot", func(t *testing.T) {
		snap := base()
		snap.Slots[2].IsVacant = true
		_, err := RestoreEngine(snap)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("duplicate vehicle", func(t *testing.T) {
		snap := base()
		snap.Vehicles = append(snap.Vehicles, snap.Vehicles[0])
		_, err := RestoreEngine(snap)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("no entry points", func(t *testing.T) {
		snap := base()
		snap.EntryPoints = 0
		_, err := RestoreEngine(snap)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})
}
