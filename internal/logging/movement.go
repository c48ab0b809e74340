package logging

import (
	"context"
	"log/slog"
)

const (
	OpPark   = "park"
	OpUnpark = "unpark"
)

// Movement is one park or unpark attempt against the lot. Slot and Charge
// are only set on success; Reason and Err only on failure.
type Movement struct {
	Op         string
	Plate      string
	Size       string
	EntryPoint int
	Slot       string
	Charge     int64
	Reason     string
	Err        error
}

// LogMovement records an accepted movement at info and a rejected one at
// warn.
func LogMovement(ctx context.Context, m Movement) {
	level, msg := slog.LevelInfo, "vehicle parked"
	switch {
	case m.Err != nil && m.Op == OpPark:
		level, msg = slog.LevelWarn, "park rejected"
	case m.Err != nil:
		level, msg = slog.LevelWarn, "unpark rejected"
	case m.Op == OpUnpark:
		msg = "vehicle unparked"
	}
	traced(ctx).LogAttrs(ctx, level, msg, m.attrs()...)
}

func (m Movement) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("plate", m.Plate)}
	if m.Op == OpPark {
		attrs = append(attrs,
			slog.String("size", m.Size),
			slog.Int("entry_point", m.EntryPoint))
	}
	if m.Err != nil {
		return append(attrs,
			slog.String("reason", m.Reason),
			slog.String("error", m.Err.Error()))
	}
	if m.Op == OpPark {
		return append(attrs, slog.String("slot", m.Slot))
	}
	return append(attrs, slog.Int64("charge", m.Charge))
}
