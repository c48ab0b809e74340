package parking

// VehicleLedger owns vehicle records keyed by plate number. Listing follows
// the order in which plates were first recorded.
type VehicleLedger struct {
	vehicles map[string]*Vehicle
	order    []string
}

func NewVehicleLedger() *VehicleLedger {
	return &VehicleLedger{
		vehicles: make(map[string]*Vehicle),
	}
}

func (l *VehicleLedger) Get(plateNumber string) (*Vehicle, bool) {
	v, ok := l.vehicles[plateNumber]
	return v, ok
}

// Upsert stores v under its plate, replacing any previous record for that
// plate without changing its listing position.
func (l *VehicleLedger) Upsert(v *Vehicle) {
	if _, ok := l.vehicles[v.PlateNumber]; !ok {
		l.order = append(l.order, v.PlateNumber)
	}
	l.vehicles[v.PlateNumber] = v
}

func (l *VehicleLedger) All() []*Vehicle {
	out := make([]*Vehicle, 0, len(l.order))
	for _, plate := range l.order {
		out = append(out, l.vehicles[plate])
	}
	return out
}

func (l *VehicleLedger) Len() int {
	return len(l.order)
}
