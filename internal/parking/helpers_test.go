package parking

import (
	"testing"
	"time"
)

var (
	testEntryPoints = 3
	testLocations   = []Location{{1, 2, 3}, {2, 3, 5}, {0, 1, 4}}
	testSizes       = []Size{Small, Large, Medium}
	testBase        = time.Date(2022, 5, 29, 0, 0, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(testEntryPoints, testLocations, testSizes, opts...)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func at(d time.Duration) *time.Time {
	t := testBase.Add(d)
	return &t
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
