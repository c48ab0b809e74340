package parking

import (
	"context"
	"fmt"
	"sync"
)

// SnapshotSaver persists engine state after every successful change.
type SnapshotSaver interface {
	Save(ctx context.Context, snap Snapshot) error
}

// Lot holds the one engine every surface of a process works on. It starts
// empty when no layout or snapshot was available and is filled by Init.
type Lot struct {
	mu     sync.RWMutex
	engine *InstrumentedEngine

	// saveMu orders snapshots so a slow save cannot land after a newer one.
	saveMu sync.Mutex
	saver  SnapshotSaver

	telemetry *TelemetryProvider
	opts      []Option
}

// NewLot wraps engine, which may be nil. saver may be nil.
func NewLot(telemetry *TelemetryProvider, engine *InstrumentedEngine, saver SnapshotSaver, opts ...Option) *Lot {
	return &Lot{
		engine:    engine,
		saver:     saver,
		telemetry: telemetry,
		opts:      opts,
	}
}

// Engine returns the current engine, or nil before Init.
func (l *Lot) Engine() *InstrumentedEngine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine
}

func (l *Lot) Telemetry() *TelemetryProvider {
	return l.telemetry
}

// Init creates the engine. Only the first call succeeds; later calls get
// ErrAlreadyInitialized whichever surface made the first one. Callers Save
// afterwards.
func (l *Lot) Init(entryPoints int, locations []Location, sizes []Size) (*InstrumentedEngine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return nil, ErrAlreadyInitialized
	}

	engine, err := NewEngine(entryPoints, locations, sizes, l.opts...)
	if err != nil {
		return nil, err
	}
	instrumented, err := NewInstrumentedEngine(engine, l.telemetry)
	if err != nil {
		return nil, fmt.Errorf("instrument engine: %w", err)
	}
	l.engine = instrumented
	return instrumented, nil
}

// Save persists the current engine state. Taking the snapshot and writing it
// happen under one lock, so saves reach the saver in engine order.
func (l *Lot) Save(ctx context.Context) error {
	engine := l.Engine()
	if l.saver == nil || engine == nil {
		return nil
	}

	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	if err := l.saver.Save(ctx, engine.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
