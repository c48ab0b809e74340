package parking

import (
	"fmt"
	"strconv"
	"strings"
)

// Location identifies a slot. Coordinate i is the slot's distance proxy from
// entry point i.
type Location []int

func (l Location) Key() string {
	parts := make([]string, len(l))
	for i, c := range l {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

func (l Location) String() string {
	return "(" + l.Key() + ")"
}

func (l Location) Equal(other Location) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

func (l Location) Clone() Location {
	if l == nil {
		return nil
	}
	out := make(Location, len(l))
	copy(out, l)
	return out
}

// ParseLocation reads the comma separated form produced by Key.
func ParseLocation(raw string) (Location, error) {
	fields := strings.Split(strings.Trim(strings.TrimSpace(raw), "()"), ",")
	loc := make(Location, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("%w: bad coordinate %q", ErrInvalidLayout, f)
		}
		loc = append(loc, n)
	}
	return loc, nil
}

type Slot struct {
	Location Location `json:"location"`
	Size     Size     `json:"size"`
	IsVacant bool     `json:"is_vacant"`
}

func NewSlot(location Location, size Size) *Slot {
	return &Slot{
		Location: location.Clone(),
		Size:     size,
		IsVacant: true,
	}
}

func (s *Slot) Occupy() {
	s.IsVacant = false
}

func (s *Slot) Release() {
	s.IsVacant = true
}

func (s *Slot) clone() Slot {
	return Slot{
		Location: s.Location.Clone(),
		Size:     s.Size,
		IsVacant: s.IsVacant,
	}
}
