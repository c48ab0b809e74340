package parking

// Allocator picks slots from a registry: the vacant slot large enough for the
// vehicle with the smallest coordinate for the requested entry point.
type Allocator struct {
	registry *SlotRegistry
}

func NewAllocator(registry *SlotRegistry) *Allocator {
	return &Allocator{registry: registry}
}

// FindNearestVacant returns false when no candidate exists. Ties keep the
// registry's creation order.
func (a *Allocator) FindNearestVacant(minSize Size, entryPoint int) (*Slot, bool) {
	var best *Slot
	for _, slot := range a.registry.All() {
		if !slot.IsVacant || !slot.Size.Fits(minSize) {
			continue
		}
		if entryPoint < 0 || entryPoint >= len(slot.Location) {
			continue
		}
		if best == nil || slot.Location[entryPoint] < best.Location[entryPoint] {
			best = slot
		}
	}
	return best, best != nil
}
