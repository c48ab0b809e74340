package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-engine/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Initialized bool   `json:"initialized"`
	Meta        *Meta  `json:"meta,omitempty"`
}

type InitRequest struct {
	EntryPoints int         `json:"entry_points"`
	Slots       [][]int     `json:"slots"`
	Sizes       []SizeField `json:"sizes"`
}

type ParkRequest struct {
	PlateNumber string          `json:"plate_number"`
	Size        *SizeField      `json:"size"`
	EntryPoint  int             `json:"entry_point"`
	TimeParked  json.RawMessage `json:"time_parked,omitempty"`
}

type UnparkRequest struct {
	PlateNumber  string          `json:"plate_number"`
	TimeUnparked json.RawMessage `json:"time_unparked,omitempty"`
}

type InitResponse struct {
	EntryPoints int `json:"entry_points"`
	Slots       int `json:"slots"`
}

type SlotsResponse struct {
	Slots []parking.Slot `json:"slots"`
}

type VehiclesResponse struct {
	Vehicles []parking.Vehicle `json:"vehicles"`
}

type ParkResponse struct {
	Location parking.Location `json:"location"`
}

type UnparkResponse struct {
	Charge int64 `json:"charge"`
}

// SizeField decodes a size given either as its number or its name.
type SizeField parking.Size

func (s *SizeField) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	size, err := parking.ParseSize(raw)
	if err != nil {
		return err
	}
	*s = SizeField(size)
	return nil
}

// parseInstant accepts an RFC 3339 string or a [year, month, day, hour,
// minute, second, microsecond] array read as UTC. Missing input means now.
func parseInstant(raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		t, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", parking.ErrInvalidTime, text)
		}
		return &t, nil
	}

	var parts []int
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 3 || len(parts) > 7 {
		return nil, fmt.Errorf("%w: %s", parking.ErrInvalidTime, raw)
	}
	fields := make([]int, 7)
	copy(fields, parts)
	if fields[1] < 1 || fields[1] > 12 || fields[2] < 1 || fields[2] > 31 ||
		fields[3] > 23 || fields[4] > 59 || fields[5] > 59 || fields[6] > 999999 {
		return nil, fmt.Errorf("%w: %s", parking.ErrInvalidTime, raw)
	}
	for _, f := range fields {
		if f < 0 {
			return nil, fmt.Errorf("%w: %s", parking.ErrInvalidTime, raw)
		}
	}

	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5],
		fields[6]*int(time.Microsecond), time.UTC)
	// time.Date rolls days past the end of the month into the next one.
	if t.Day() != fields[2] || int(t.Month()) != fields[1] {
		return nil, fmt.Errorf("%w: %s", parking.ErrInvalidTime, raw)
	}
	return &t, nil
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteStatus(ctx, w, http.StatusOK, message, data)
}

func WriteStatus(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
