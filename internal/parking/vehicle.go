package parking

type Vehicle struct {
	PlateNumber string            `json:"plate_number"`
	Size        Size              `json:"size"`
	IsParked    bool              `json:"is_parked"`
	Sessions    []*ParkingSession `json:"parking_logs"`
}

func NewVehicle(plateNumber string, size Size) *Vehicle {
	return &Vehicle{
		PlateNumber: plateNumber,
		Size:        size,
	}
}

func (v *Vehicle) AddSession(session *ParkingSession) {
	v.Sessions = append(v.Sessions, session)
}

// LatestSession returns nil for a vehicle that has never parked.
func (v *Vehicle) LatestSession() *ParkingSession {
	if len(v.Sessions) == 0 {
		return nil
	}
	return v.Sessions[len(v.Sessions)-1]
}

func (v *Vehicle) clone() Vehicle {
	out := Vehicle{
		PlateNumber: v.PlateNumber,
		Size:        v.Size,
		IsParked:    v.IsParked,
		Sessions:    make([]*ParkingSession, len(v.Sessions)),
	}
	for i, s := range v.Sessions {
		out.Sessions[i] = s.clone()
	}
	return out
}
