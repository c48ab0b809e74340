package parking

import "fmt"

// SlotRegistry owns the fixed set of slots. Slots are created once and only
// their vacancy changes afterwards.
type SlotRegistry struct {
	slots []*Slot
	index map[string]*Slot
}

// NewSlotRegistry creates one slot per (location, size) pair, keeping the
// given order as creation order.
func NewSlotRegistry(locations []Location, sizes []Size) (*SlotRegistry, error) {
	if len(locations) != len(sizes) {
		return nil, fmt.Errorf("%w: %d locations but %d sizes", ErrInvalidLayout, len(locations), len(sizes))
	}

	r := &SlotRegistry{
		slots: make([]*Slot, 0, len(locations)),
		index: make(map[string]*Slot, len(locations)),
	}
	for i, loc := range locations {
		if !sizes[i].Valid() {
			return nil, fmt.Errorf("%w: slot %s has size %d", ErrInvalidSize, loc, int(sizes[i]))
		}
		if _, dup := r.index[loc.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate slot %s", ErrInvalidLayout, loc)
		}
		slot := NewSlot(loc, sizes[i])
		r.slots = append(r.slots, slot)
		r.index[loc.Key()] = slot
	}
	return r, nil
}

func (r *SlotRegistry) Get(location Location) (*Slot, bool) {
	slot, ok := r.index[location.Key()]
	return slot, ok
}

// All returns the registry's slots in creation order.
func (r *SlotRegistry) All() []*Slot {
	return r.slots
}

func (r *SlotRegistry) Len() int {
	return len(r.slots)
}

func (r *SlotRegistry) SetVacancy(location Location, vacant bool) error {
	slot, ok := r.Get(location)
	if !ok {
		return fmt.Errorf("%w: unknown slot %s", ErrInvalidLayout, location)
	}
	if vacant {
		slot.Release()
	} else {
		slot.Occupy()
	}
	return nil
}

// SlotSize implements SlotSizer for the billing calculator.
func (r *SlotRegistry) SlotSize(location Location) (Size, bool) {
	slot, ok := r.Get(location)
	if !ok {
		return 0, false
	}
	return slot.Size, true
}
