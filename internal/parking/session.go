package parking

import "time"

// ParkingSession is one stay of one vehicle in one slot. TimeUnparkedAt and
// Charge are set together, once, when the vehicle leaves.
type ParkingSession struct {
	SlotLocation   Location   `json:"slot_location"`
	TimeParkedAt   time.Time  `json:"time_parked"`
	TimeUnparkedAt *time.Time `json:"time_unparked"`
	Charge         *int64     `json:"charge"`
}

func NewParkingSession(location Location, parkedAt time.Time) *ParkingSession {
	return &ParkingSession{
		SlotLocation: location.Clone(),
		TimeParkedAt: parkedAt,
	}
}

func (s *ParkingSession) Closed() bool {
	return s.TimeUnparkedAt != nil
}

func (s *ParkingSession) Close(unparkedAt time.Time, charge int64) {
	s.TimeUnparkedAt = &unparkedAt
	s.Charge = &charge
}

// Duration is zero for a session that is still open.
func (s *ParkingSession) Duration() time.Duration {
	if s.TimeUnparkedAt == nil {
		return 0
	}
	return s.TimeUnparkedAt.Sub(s.TimeParkedAt)
}

func (s *ParkingSession) clone() *ParkingSession {
	out := &ParkingSession{
		SlotLocation: s.SlotLocation.Clone(),
		TimeParkedAt: s.TimeParkedAt,
	}
	if s.TimeUnparkedAt != nil {
		at := *s.TimeUnparkedAt
		out.TimeUnparkedAt = &at
	}
	if s.Charge != nil {
		charge := *s.Charge
		out.Charge = &charge
	}
	return out
}
