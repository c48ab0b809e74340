package parking

import "fmt"

// Snapshot is a point-in-time copy of an engine's state, used by storage
// collaborators to carry the engine across restarts.
type Snapshot struct {
	// Version is the engine version the snapshot was taken at. Stores use it
	// to refuse overwriting a newer snapshot with an older one.
	Version     uint64
	EntryPoints int
	Slots       []Slot
	Vehicles    []Vehicle
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		Version:     e.version,
		EntryPoints: e.entryPoints,
		Slots:       make([]Slot, 0, e.registry.Len()),
		Vehicles:    make([]Vehicle, 0, e.ledger.Len()),
	}
	for _, slot := range e.registry.All() {
		snap.Slots = append(snap.Slots, slot.clone())
	}
	for _, v := range e.ledger.All() {
		snap.Vehicles = append(snap.Vehicles, v.clone())
	}
	return snap
}

// RestoreEngine rebuilds an engine from a snapshot and rejects snapshots whose
// slots and vehicles disagree.
func RestoreEngine(snap Snapshot, opts ...Option) (*Engine, error) {
	locations := make([]Location, len(snap.Slots))
	sizes := make([]Size, len(snap.Slots))
	for i, slot := range snap.Slots {
		locations[i] = slot.Location
		sizes[i] = slot.Size
	}

	e, err := NewEngine(snap.EntryPoints, locations, sizes, opts...)
	if err != nil {
		return nil, err
	}

	for _, slot := range snap.Slots {
		if err := e.registry.SetVacancy(slot.Location, slot.IsVacant); err != nil {
			return nil, err
		}
	}
	for i := range snap.Vehicles {
		v := snap.Vehicles[i].clone()
		if _, dup := e.ledger.Get(v.PlateNumber); dup {
			return nil, fmt.Errorf("%w: duplicate vehicle %s", ErrInvalidLayout, v.PlateNumber)
		}
		e.ledger.Upsert(&v)
	}

	if err := e.verify(); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	e.version = snap.Version
	return e, nil
}
