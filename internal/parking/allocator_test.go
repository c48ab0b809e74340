package parking

import "testing"

func TestFindNearestVacant(t *testing.T) {
	r, err := NewSlotRegistry(testLocations, testSizes)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	a := NewAllocator(r)

	tests := []struct {
		name       string
		size       Size
		entryPoint int
		want       Location
	}{
		{"small from entry 0", Small, 0, Location{0, 1, 4}},
		{"small from entry 2", Small, 2, Location{1, 2, 3}},
		{"medium from entry 2", Medium, 2, Location{0, 1, 4}},
		{"large from any entry", Large, 0, Location{2, 3, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, ok := a.FindNearestVacant(tt.size, tt.entryPoint)
			if !ok {
				t.Fatal("Expected a slot")
			}
			if !slot.Location.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, slot.Location)
			}
		})
	}
}

func TestFindNearestVacantSkipsOccupied(t *testing.T) {
	r, _ := NewSlotRegistry(testLocations, testSizes)
	a := NewAllocator(r)

	r.SetVacancy(Location{0, 1, 4}, false)
	slot, ok := a.FindNearestVacant(Small, 0)
	if !ok || !slot.Location.Equal(Location{1, 2, 3}) {
		t.Errorf("Expected (1,2,3), got %v", slot)
	}

	r.SetVacancy(Location{2, 3, 5}, false)
	if _, ok := a.FindNearestVacant(Medium, 0); ok {
		t.Error("Expected no medium slot once (0,1,4) and (2,3,5) are taken")
	}
}

func TestFindNearestVacantTiesKeepCreationOrder(t *testing.T) {
	r, _ := NewSlotRegistry(
		[]Location{{5, 1}, {2, 9}, {2, 1}, {2, 0}},
		[]Size{Large, Large, Large, Large},
	)
	a := NewAllocator(r)

	for i := 0; i < 10; i++ {
		slot, ok := a.FindNearestVacant(Small, 0)
		if !ok {
			t.Fatal("Expected a slot")
		}
		if !slot.Location.Equal(Location{2, 9}) {
			t.Fatalf("Expected the first created of the tied slots (2,9), got %s", slot.Location)
		}
	}
}

func TestFindNearestVacantEmptyRegistry(t *testing.T) {
	r, _ := NewSlotRegistry(nil, nil)
	if _, ok := NewAllocator(r).FindNearestVacant(Small, 0); ok {
		t.Error("Expected no slot from an empty registry")
	}
}
