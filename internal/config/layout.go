package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"parking-engine/internal/parking"
)

// Layout is the on-disk description of a lot:
//
//	entry_points = 3
//
//	[[slots]]
//	location = [1, 2, 3]
//	size = "SMALL"
type Layout struct {
	EntryPoints int          `toml:"entry_points"`
	Slots       []LayoutSlot `toml:"slots"`
}

type LayoutSlot struct {
	Location []int `toml:"location"`
	Size     string `toml:"size"`
}

func LoadLayout(path string) (*Layout, error) {
	var layout Layout
	meta, err := toml.DecodeFile(path, &layout)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %s in %s", parking.ErrInvalidLayout, undecoded[0], path)
	}
	return &layout, nil
}

// Engine builds an engine for the layout.
func (l *Layout) Engine(opts ...parking.Option) (*parking.Engine, error) {
	locations := make([]parking.Location, len(l.Slots))
	sizes := make([]parking.Size, len(l.Slots))
	for i, slot := range l.Slots {
		size, err := parking.ParseSize(slot.Size)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		locations[i] = parking.Location(slot.Location)
		sizes[i] = size
	}
	return parking.NewEngine(l.EntryPoints, locations, sizes, opts...)
}
