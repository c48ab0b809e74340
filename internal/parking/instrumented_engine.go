package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-engine/internal/logging"
)

// InstrumentedEngine wraps an Engine with spans, metrics and logs.
type InstrumentedEngine struct {
	*Engine
	telemetry *TelemetryProvider

	parkingOperations   metric.Int64Counter
	unparkingOperations metric.Int64Counter
	occupancyGauge      metric.Int64UpDownCounter
	totalSlotsGauge     metric.Int64UpDownCounter
	chargesTotal        metric.Int64Counter
	operationDuration   metric.Float64Histogram
}

func NewInstrumentedEngine(engine *Engine, telemetry *TelemetryProvider) (*InstrumentedEngine, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of park operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	unparkingOperations, err := meter.Int64Counter("unparking_operations_total",
		metric.WithDescription("Total number of unpark operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_slots",
		metric.WithDescription("Total number of parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	chargesTotal, err := meter.Int64Counter("parking_charges_total",
		metric.WithDescription("Sum of charges collected at unpark"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking engine operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	ie := &InstrumentedEngine{
		Engine:              engine,
		telemetry:           telemetry,
		parkingOperations:   parkingOperations,
		unparkingOperations: unparkingOperations,
		occupancyGauge:      occupancyGauge,
		totalSlotsGauge:     totalSlotsGauge,
		chargesTotal:        chargesTotal,
		operationDuration:   operationDuration,
	}

	ctx := context.Background()
	totalSlotsGauge.Add(ctx, int64(engine.Capacity()))
	occupied := 0
	for _, slot := range engine.Slots() {
		if !slot.IsVacant {
			occupied++
		}
	}
	occupancyGauge.Add(ctx, int64(occupied))

	return ie, nil
}

func (ie *InstrumentedEngine) Park(ctx context.Context, plateNumber string, size Size, entryPoint int, parkedAt *time.Time) (Location, error) {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.park",
		trace.WithAttributes(
			attribute.String("vehicle.plate_number", plateNumber),
			attribute.String("vehicle.size", size.String()),
			attribute.Int("parking.entry_point", entryPoint),
		))
	defer span.End()

	start := time.Now()
	span.AddEvent("finding_nearest_slot")

	location, err := ie.Engine.Park(plateNumber, size, entryPoint, parkedAt)

	duration := time.Since(start).Seconds()
	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_size", size.String()),
	}

	movement := logging.Movement{
		Op:         logging.OpPark,
		Plate:      plateNumber,
		Size:       size.String(),
		EntryPoint: entryPoint,
		Err:        err,
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		movement.Reason = errorReason(err)
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", movement.Reason),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.String("parking.slot_location", location.Key()))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.String("slot_location", location.Key()),
		))
		ie.occupancyGauge.Add(ctx, 1)
		movement.Slot = location.Key()
	}
	logging.LogMovement(ctx, movement)

	ie.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ie.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return location, err
}

func (ie *InstrumentedEngine) Unpark(ctx context.Context, plateNumber string, unparkedAt *time.Time) (int64, error) {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.unpark",
		trace.WithAttributes(
			attribute.String("vehicle.plate_number", plateNumber),
		))
	defer span.End()

	start := time.Now()
	span.AddEvent("computing_charge")

	charge, err := ie.Engine.Unpark(plateNumber, unparkedAt)

	duration := time.Since(start).Seconds()
	labels := []attribute.KeyValue{
		attribute.String("operation", "unpark"),
	}

	movement := logging.Movement{Op: logging.OpUnpark, Plate: plateNumber, Err: err}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		movement.Reason = errorReason(err)
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", movement.Reason),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int64("parking.charge", charge))
		span.AddEvent("slot_released")
		ie.occupancyGauge.Add(ctx, -1)
		ie.chargesTotal.Add(ctx, charge)
		movement.Charge = charge
	}
	logging.LogMovement(ctx, movement)

	ie.unparkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ie.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return charge, err
}

func (ie *InstrumentedEngine) Slots(ctx context.Context) []Slot {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.list_slots")
	defer span.End()

	start := time.Now()
	slots := ie.Engine.Slots()

	vacant := 0
	for _, slot := range slots {
		if slot.IsVacant {
			vacant++
		}
	}
	span.SetAttributes(
		attribute.Int("parking.total_slots", len(slots)),
		attribute.Int("parking.vacant_slots", vacant),
	)

	ie.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "list_slots"),
		attribute.String("status", "success"),
	))

	return slots
}

func (ie *InstrumentedEngine) Vehicles(ctx context.Context) []Vehicle {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.list_vehicles")
	defer span.End()

	start := time.Now()
	vehicles := ie.Engine.Vehicles()

	span.SetAttributes(attribute.Int("parking.vehicle_count", len(vehicles)))
	ie.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "list_vehicles"),
		attribute.String("status", "success"),
	))

	return vehicles
}

// errorReason maps engine errors onto a small fixed label set.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEntryPoint):
		return "invalid_entry_point"
	case errors.Is(err, ErrInvalidSize):
		return "invalid_size"
	case errors.Is(err, ErrAlreadyParked):
		return "already_parked"
	case errors.Is(err, ErrNoSlotAvailable):
		return "no_slot_available"
	case errors.Is(err, ErrVehicleNotExists):
		return "vehicle_not_exists"
	case errors.Is(err, ErrInvalidTime):
		return "invalid_time"
	default:
		return "internal"
	}
}
