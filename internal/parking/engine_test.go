package parking

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(0, testLocations, testSizes)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewEngine(4, testLocations, testSizes)
	assert.ErrorIs(t, err, ErrInvalidLayout, "slots with fewer coordinates than entry points")

	_, err = NewEngine(3, testLocations, []Size{Small, Size(3), Medium})
	assert.ErrorIs(t, err, ErrInvalidSize)

	e, err := NewEngine(2, []Location{{1, 2, 9}}, []Size{Large})
	require.NoError(t, err)
	assert.Equal(t, 2, e.EntryPoints())
	assert.Equal(t, 1, e.Capacity())
}

func TestEnginePark(t *testing.T) {
	e := newTestEngine(t)

	loc, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	assert.Equal(t, Location{0, 1, 4}, loc)

	slot, ok := e.Slot(loc)
	require.True(t, ok)
	assert.False(t, slot.IsVacant)

	v, ok := e.Vehicle("ABC-123")
	require.True(t, ok)
	assert.True(t, v.IsParked)
	assert.Equal(t, Small, v.Size)
	require.Len(t, v.Sessions, 1)
	assert.Equal(t, loc, v.Sessions[0].SlotLocation)
	assert.Equal(t, testBase, v.Sessions[0].TimeParkedAt)
	assert.Nil(t, v.Sessions[0].TimeUnparkedAt)
	assert.Nil(t, v.Sessions[0].Charge)

	assert.NoError(t, e.Verify())
}

func TestEngineParkFull(t *testing.T) {
	e := newTestEngine(t)

	steps := []struct {
		plate string
		entry int
		want  Location
	}{
		{"AAA-001", 0, Location{0, 1, 4}},
		{"AAA-002", 2, Location{1, 2, 3}},
		{"AAA-003", 1, Location{2, 3, 5}},
	}
	for _, step := range steps {
		loc, err := e.Park(step.plate, Small, step.entry, at(0))
		require.NoError(t, err)
		assert.Equal(t, step.want, loc, step.plate)
	}

	_, err := e.Park("AAA-004", Small, 0, at(0))
	assert.ErrorIs(t, err, ErrNoSlotAvailable)

	_, ok := e.Vehicle("AAA-004")
	assert.False(t, ok, "rejected vehicle must not be recorded")
}

func TestEngineParkRejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Park("ABC-123", Small, -1, at(0))
	assert.ErrorIs(t, err, ErrInvalidEntryPoint)

	_, err = e.Park("ABC-123", Small, 3, at(0))
	assert.ErrorIs(t, err, ErrInvalidEntryPoint)

	_, err = e.Park("ABC-123", Size(5), 0, at(0))
	assert.ErrorIs(t, err, ErrInvalidSize)

	assert.Empty(t, e.Vehicles())
}

func TestEngineAlreadyParkedLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	before := e.Snapshot()

	_, err = e.Park("ABC-123", Small, 0, at(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyParked)
	assert.Equal(t, before, e.Snapshot())
}

func TestEngineUnpark(t *testing.T) {
	e := newTestEngine(t)

	loc, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)

	charge, err := e.Unpark("ABC-123", at(20*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1120), charge)

	slot, _ := e.Slot(loc)
	assert.True(t, slot.IsVacant)

	v, _ := e.Vehicle("ABC-123")
	assert.False(t, v.IsParked)
	require.Len(t, v.Sessions, 1)
	require.NotNil(t, v.Sessions[0].Charge)
	assert.Equal(t, int64(1120), *v.Sessions[0].Charge)
	require.NotNil(t, v.Sessions[0].TimeUnparkedAt)
	assert.Equal(t, testBase.Add(20*time.Hour+30*time.Minute), *v.Sessions[0].TimeUnparkedAt)

	assert.NoError(t, e.Verify())
}

func TestEngineUnparkMissing(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Unpark("NOPE-000", nil)
	assert.ErrorIs(t, err, ErrVehicleNotExists)

	_, err = e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	_, err = e.Unpark("ABC-123", at(time.Hour))
	require.NoError(t, err)

	_, err = e.Unpark("ABC-123", at(2*time.Hour))
	assert.ErrorIs(t, err, ErrVehicleNotExists, "second unpark of the same stay")
}

func TestEngineRejectsTimeTravel(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Park("ABC-123", Small, 0, at(2*time.Hour))
	require.NoError(t, err)

	_, err = e.Unpark("ABC-123", at(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTime)

	v, _ := e.Vehicle("ABC-123")
	assert.True(t, v.IsParked, "failed unpark must leave the vehicle parked")
	assert.Nil(t, v.Sessions[0].TimeUnparkedAt)

	_, err = e.Unpark("ABC-123", at(3*time.Hour))
	require.NoError(t, err)

	_, err = e.Park("ABC-123", Small, 0, at(150*time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTime)
	assert.NoError(t, e.Verify())
}

func TestEngineTimeErrorsKeepSubSecondPrecision(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Park("ABC-123", Small, 0, at(500*time.Millisecond))
	require.NoError(t, err)

	_, err = e.Unpark("ABC-123", at(200*time.Millisecond))
	require.ErrorIs(t, err, ErrInvalidTime)
	assert.Contains(t, err.Error(), "left at 2022-05-29T00:00:00.2Z")
	assert.Contains(t, err.Error(), "parked at 2022-05-29T00:00:00.5Z")

	_, err = e.Unpark("ABC-123", at(1500*time.Millisecond))
	require.NoError(t, err)

	_, err = e.Park("ABC-123", Small, 0, at(1200*time.Millisecond))
	require.ErrorIs(t, err, ErrInvalidTime)
	assert.Contains(t, err.Error(), "parked at 2022-05-29T00:00:01.2Z before it left at 2022-05-29T00:00:01.5Z")
}

func TestEngineVersionCountsCommittedChanges(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, uint64(0), e.Version())

	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	_, err = e.Park("ABC-123", Small, 0, at(0))
	require.ErrorIs(t, err, ErrAlreadyParked)
	assert.Equal(t, uint64(1), e.Version(), "rejected park leaves the version alone")

	_, err = e.Unpark("ABC-123", at(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.Version())

	restored, err := RestoreEngine(e.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), restored.Version())
}

func TestEngineContinuousRate(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	charge, err := e.Unpark("ABC-123", at(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(40), charge)

	// The recorded size wins over the one supplied on a continuous re-park.
	loc, err := e.Park("ABC-123", Large, 1, at(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Location{0, 1, 4}, loc)

	v, _ := e.Vehicle("ABC-123")
	assert.Equal(t, Small, v.Size)
	assert.Len(t, v.Sessions, 2)

	charge, err = e.Unpark("ABC-123", at(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), charge)
}

func TestEngineNotContinuousRate(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
	}{
		{"well past the window", 90 * time.Minute},
		{"exactly the window", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)

			_, err := e.Park("ABC-123", Small, 0, at(0))
			require.NoError(t, err)
			_, err = e.Unpark("ABC-123", at(time.Hour))
			require.NoError(t, err)

			loc, err := e.Park("ABC-123", Large, 1, at(time.Hour+tt.gap))
			require.NoError(t, err)
			assert.Equal(t, Location{2, 3, 5}, loc)

			v, _ := e.Vehicle("ABC-123")
			assert.Equal(t, Large, v.Size)
			assert.Len(t, v.Sessions, 1)
		})
	}
}

func TestEngineContinuousRunMatchesSingleStay(t *testing.T) {
	split := newTestEngine(t)

	_, err := split.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	first, err := split.Unpark("ABC-123", at(2*time.Hour))
	require.NoError(t, err)
	_, err = split.Park("ABC-123", Small, 0, at(150*time.Minute))
	require.NoError(t, err)
	second, err := split.Unpark("ABC-123", at(10*time.Hour))
	require.NoError(t, err)

	single := newTestEngine(t)
	_, err = single.Park("XYZ-999", Small, 0, at(0))
	require.NoError(t, err)
	whole, err := single.Unpark("XYZ-999", at(10*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(460), whole)
	assert.Equal(t, whole, first+second)
}

func TestEngineCustomContinuityWindow(t *testing.T) {
	e := newTestEngine(t, WithContinuityWindow(3*time.Hour))

	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	_, err = e.Unpark("ABC-123", at(time.Hour))
	require.NoError(t, err)
	_, err = e.Park("ABC-123", Small, 0, at(3*time.Hour))
	require.NoError(t, err)

	v, _ := e.Vehicle("ABC-123")
	assert.Len(t, v.Sessions, 2)
}

func TestEngineUsesClockWhenTimeOmitted(t *testing.T) {
	now := testBase
	e := newTestEngine(t, WithClock(func() time.Time { return now }))

	_, err := e.Park("ABC-123", Medium, 2, nil)
	require.NoError(t, err)

	now = now.Add(5 * time.Hour)
	charge, err := e.Unpark("ABC-123", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(160), charge)

	v, _ := e.Vehicle("ABC-123")
	assert.Equal(t, testBase, v.Sessions[0].TimeParkedAt)
	assert.Equal(t, now, *v.Sessions[0].TimeUnparkedAt)
}

func TestEngineCustomRates(t *testing.T) {
	rates := DefaultRateSchedule()
	rates.FlatCharge = 50
	e := newTestEngine(t, WithRateSchedule(rates))

	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)
	charge, err := e.Unpark("ABC-123", at(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(50), charge)
}

func TestEngineListingsAreCopies(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Park("ABC-123", Small, 0, at(0))
	require.NoError(t, err)

	slots := e.Slots()
	slots[0].IsVacant = false
	slots[2].Location[0] = 42

	vehicles := e.Vehicles()
	vehicles[0].IsParked = false
	vehicles[0].Sessions[0].SlotLocation[0] = 42

	assert.NoError(t, e.Verify())
	slot, ok := e.Slot(Location{0, 1, 4})
	require.True(t, ok)
	assert.False(t, slot.IsVacant)
}

func TestEngineVehiclesKeepInsertionOrder(t *testing.T) {
	e := newTestEngine(t)
	for i, plate := range []string{"CCC-3", "AAA-1", "BBB-2"} {
		_, err := e.Park(plate, Small, i, at(0))
		require.NoError(t, err)
	}

	var plates []string
	for _, v := range e.Vehicles() {
		plates = append(plates, v.PlateNumber)
	}
	assert.Equal(t, []string{"CCC-3", "AAA-1", "BBB-2"}, plates)
}

func TestEngineInvariantsHoldUnderRandomTraffic(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(7))
	plates := []string{"P-1", "P-2", "P-3", "P-4", "P-5"}
	clock := time.Duration(0)

	for i := 0; i < 500; i++ {
		clock += time.Duration(rng.Intn(180)) * time.Minute
		plate := plates[rng.Intn(len(plates))]

		if rng.Intn(2) == 0 {
			_, _ = e.Park(plate, Size(rng.Intn(3)), rng.Intn(testEntryPoints), at(clock))
		} else {
			charge, err := e.Unpark(plate, at(clock))
			if err == nil {
				assert.GreaterOrEqual(t, charge, int64(0))
			}
		}

		require.NoError(t, e.Verify(), "step %d", i)
	}
}

func TestEngineConcurrentParking(t *testing.T) {
	const slots = 50
	locations := make([]Location, slots)
	sizes := make([]Size, slots)
	for i := range locations {
		locations[i] = Location{i, slots - i}
		sizes[i] = Size(i % 3)
	}
	e, err := NewEngine(2, locations, sizes)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		assigned = make(map[string]string)
		full     int
	)
	for i := 0; i < 2*slots; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plate := fmt.Sprintf("CAR-%03d", i)
			loc, err := e.Park(plate, Small, i%2, at(0))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, ErrNoSlotAvailable)
				full++
				return
			}
			if holder, taken := assigned[loc.Key()]; taken {
				t.Errorf("slot %s handed to both %s and %s", loc, holder, plate)
			}
			assigned[loc.Key()] = plate
		}(i)
	}
	wg.Wait()

	assert.Len(t, assigned, slots)
	assert.Equal(t, slots, full)
	assert.NoError(t, e.Verify())
}
