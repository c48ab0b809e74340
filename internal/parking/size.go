package parking

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is shared by slots and vehicles. A slot hosts any vehicle whose size
// is less than or equal to its own.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

var sizeNames = map[Size]string{
	Small:  "SMALL",
	Medium: "MEDIUM",
	Large:  "LARGE",
}

func (s Size) Valid() bool {
	return s >= Small && s <= Large
}

func (s Size) String() string {
	if name, ok := sizeNames[s]; ok {
		return name
	}
	return "Size(" + strconv.Itoa(int(s)) + ")"
}

// Fits reports whether a vehicle of size v can be hosted by a slot of size s.
func (s Size) Fits(v Size) bool {
	return v <= s
}

// ParseSize accepts a size name (any case) or its numeric value.
func ParseSize(raw string) (Size, error) {
	value := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(value); err == nil {
		size := Size(n)
		if !size.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidSize, n)
		}
		return size, nil
	}

	for size, name := range sizeNames {
		if strings.EqualFold(name, value) {
			return size, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSize, raw)
}
