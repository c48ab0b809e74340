package parking

import (
	"fmt"
	"sync"
	"time"
)

const DefaultContinuityWindow = time.Hour

type Option func(*Engine)

func WithRateSchedule(rates RateSchedule) Option {
	return func(e *Engine) {
		e.rates = rates
	}
}

// WithClock replaces the time source used when a caller omits the instant.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithContinuityWindow sets how soon after unparking a re-park of the same
// plate is billed as a continuation of the previous stay.
func WithContinuityWindow(window time.Duration) Option {
	return func(e *Engine) {
		e.continuityWindow = window
	}
}

// Engine is the allocation and billing authority. Park and Unpark run their
// whole read-modify-write sequence under one write lock; listings share a
// read lock and return copies.
type Engine struct {
	mu sync.RWMutex

	entryPoints int
	registry    *SlotRegistry
	ledger      *VehicleLedger
	allocator   *Allocator
	calculator  *Calculator

	rates            RateSchedule
	now              func() time.Time
	continuityWindow time.Duration

	// version counts committed state changes.
	version uint64
}

func NewEngine(entryPoints int, locations []Location, sizes []Size, opts ...Option) (*Engine, error) {
	if entryPoints <= 0 {
		return nil, fmt.Errorf("%w: entry point count must be positive, got %d", ErrInvalidLayout, entryPoints)
	}
	for _, loc := range locations {
		if len(loc) < entryPoints {
			return nil, fmt.Errorf("%w: slot %s needs %d coordinates", ErrInvalidLayout, loc, entryPoints)
		}
	}

	registry, err := NewSlotRegistry(locations, sizes)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		entryPoints:      entryPoints,
		registry:         registry,
		ledger:           NewVehicleLedger(),
		allocator:        NewAllocator(registry),
		rates:            DefaultRateSchedule(),
		now:              time.Now,
		continuityWindow: DefaultContinuityWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.calculator = NewCalculator(e.rates, registry)

	return e, nil
}

func (e *Engine) EntryPoints() int {
	return e.entryPoints
}

func (e *Engine) Capacity() int {
	return e.registry.Len()
}

// Park assigns the nearest suitable vacant slot to plateNumber and opens a
// session. A known plate re-parking within the continuity window keeps its
// record, including the size it was first recorded with; otherwise a fresh
// record with the given size replaces it.
func (e *Engine) Park(plateNumber string, size Size, entryPoint int, parkedAt *time.Time) (Location, error) {
	if entryPoint < 0 || entryPoint >= e.entryPoints {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidEntryPoint, entryPoint, e.entryPoints)
	}
	if !size.Valid() {
		return nil, fmt.Errorf("%w: vehicle size %d", ErrInvalidSize, int(size))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.instant(parkedAt)
	vehicle := NewVehicle(plateNumber, size)

	if saved, ok := e.ledger.Get(plateNumber); ok {
		if saved.IsParked {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyParked, plateNumber)
		}
		if last := saved.LatestSession(); last != nil && last.Closed() {
			if at.Before(*last.TimeUnparkedAt) {
				return nil, fmt.Errorf("%w: %s parked at %s before it left at %s",
					ErrInvalidTime, plateNumber, at.Format(time.RFC3339Nano), last.TimeUnparkedAt.Format(time.RFC3339Nano))
			}
			if at.Sub(*last.TimeUnparkedAt) < e.continuityWindow {
				vehicle = saved
			}
		}
	}

	slot, ok := e.allocator.FindNearestVacant(vehicle.Size, entryPoint)
	if !ok {
		return nil, fmt.Errorf("%w: size %s from entry %d", ErrNoSlotAvailable, vehicle.Size, entryPoint)
	}

	vehicle.AddSession(NewParkingSession(slot.Location, at))
	vehicle.IsParked = true
	slot.Occupy()
	e.ledger.Upsert(vehicle)
	e.version++

	return slot.Location.Clone(), nil
}

// Unpark closes the plate's open session, prices it against the vehicle's
// session history and frees the slot.
func (e *Engine) Unpark(plateNumber string, unparkedAt *time.Time) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vehicle, ok := e.ledger.Get(plateNumber)
	if !ok || !vehicle.IsParked {
		return 0, fmt.Errorf("%w: %s", ErrVehicleNotExists, plateNumber)
	}

	at := e.instant(unparkedAt)
	session := vehicle.LatestSession()
	if at.Before(session.TimeParkedAt) {
		return 0, fmt.Errorf("%w: %s left at %s before it parked at %s",
			ErrInvalidTime, plateNumber, at.Format(time.RFC3339Nano), session.TimeParkedAt.Format(time.RFC3339Nano))
	}

	session.TimeUnparkedAt = &at
	charge, err := e.calculator.Charge(vehicle.Sessions)
	if err == nil && charge < 0 {
		err = fmt.Errorf("%w: negative charge %d for %s", ErrBilling, charge, plateNumber)
	}
	if err != nil {
		session.TimeUnparkedAt = nil
		return 0, err
	}

	session.Close(at, charge)
	vehicle.IsParked = false
	if err := e.registry.SetVacancy(session.SlotLocation, true); err != nil {
		return 0, err
	}
	e.version++

	return charge, nil
}

// Version increases by one with every successful Park or Unpark.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

func (e *Engine) Slots() []Slot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Slot, 0, e.registry.Len())
	for _, slot := range e.registry.All() {
		out = append(out, slot.clone())
	}
	return out
}

func (e *Engine) Vehicles() []Vehicle {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Vehicle, 0, e.ledger.Len())
	for _, v := range e.ledger.All() {
		out = append(out, v.clone())
	}
	return out
}

func (e *Engine) Slot(location Location) (Slot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	slot, ok := e.registry.Get(location)
	if !ok {
		return Slot{}, false
	}
	return slot.clone(), true
}

func (e *Engine) Vehicle(plateNumber string) (Vehicle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.ledger.Get(plateNumber)
	if !ok {
		return Vehicle{}, false
	}
	return v.clone(), true
}

// Verify checks the registry and ledger against each other.
func (e *Engine) Verify() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.verify()
}

func (e *Engine) verify() error {
	holders := make(map[string]int)
	for _, v := range e.ledger.All() {
		last := v.LatestSession()
		if v.IsParked != (last != nil && !last.Closed()) {
			return fmt.Errorf("%w: %s parked=%t disagrees with its latest session", ErrInvalidLayout, v.PlateNumber, v.IsParked)
		}
		for i, s := range v.Sessions {
			if !s.Closed() {
				if i != len(v.Sessions)-1 {
					return fmt.Errorf("%w: %s has an open session before its latest", ErrInvalidLayout, v.PlateNumber)
				}
				continue
			}
			if s.TimeUnparkedAt.Before(s.TimeParkedAt) {
				return fmt.Errorf("%w: %s session %d ends before it starts", ErrInvalidTime, v.PlateNumber, i)
			}
			if s.Charge == nil || *s.Charge < 0 {
				return fmt.Errorf("%w: %s session %d has no valid charge", ErrBilling, v.PlateNumber, i)
			}
		}
		if v.IsParked {
			if _, ok := e.registry.Get(last.SlotLocation); !ok {
				return fmt.Errorf("%w: %s parked in unknown slot %s", ErrInvalidLayout, v.PlateNumber, last.SlotLocation)
			}
			holders[last.SlotLocation.Key()]++
		}
	}

	for _, slot := range e.registry.All() {
		n := holders[slot.Location.Key()]
		if slot.IsVacant && n != 0 || !slot.IsVacant && n != 1 {
			return fmt.Errorf("%w: slot %s vacant=%t held by %d vehicles", ErrInvalidLayout, slot.Location, slot.IsVacant, n)
		}
	}
	return nil
}

func (e *Engine) instant(at *time.Time) time.Time {
	if at != nil {
		return *at
	}
	return e.now()
}
