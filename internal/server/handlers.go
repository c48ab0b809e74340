package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parking-engine/internal/logging"
	"parking-engine/internal/parking"
)

type Handler struct {
	lot         *parking.Lot
	serviceName string
}

// NewHandler serves lot, whose engine may be nil until a client calls init.
func NewHandler(serviceName string, lot *parking.Lot) *Handler {
	return &Handler{
		lot:         lot,
		serviceName: serviceName,
	}
}

// Engine returns the current engine, or nil before init.
func (h *Handler) Engine() *parking.InstrumentedEngine {
	return h.lot.Engine()
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Service:     h.serviceName,
		Initialized: h.Engine() != nil,
		Meta:        extractMeta(r.Context()),
	})
}

func (h *Handler) InitParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	locations := make([]parking.Location, len(req.Slots))
	for i, slot := range req.Slots {
		locations[i] = parking.Location(slot)
	}
	sizes := make([]parking.Size, len(req.Sizes))
	for i, size := range req.Sizes {
		sizes[i] = parking.Size(size)
	}

	engine, err := h.lot.Init(req.EntryPoints, locations, sizes)
	if err != nil {
		WriteError(ctx, w, statusFor(err), err.Error())
		return
	}

	h.save(ctx)
	logging.Info(ctx, "parking lot initialized", "entry_points", req.EntryPoints, "slots", engine.Capacity())

	WriteStatus(ctx, w, http.StatusCreated, "Parking lot initialized", InitResponse{
		EntryPoints: req.EntryPoints,
		Slots:       engine.Capacity(),
	})
}

func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engine, ok := h.requireEngine(ctx, w)
	if !ok {
		return
	}

	WriteSuccess(ctx, w, "Slots retrieved successfully", SlotsResponse{Slots: engine.Slots(ctx)})
}

func (h *Handler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engine, ok := h.requireEngine(ctx, w)
	if !ok {
		return
	}

	WriteSuccess(ctx, w, "Vehicles retrieved successfully", VehiclesResponse{Vehicles: engine.Vehicles(ctx)})
}

func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engine, ok := h.requireEngine(ctx, w)
	if !ok {
		return
	}

	loc, err := parking.ParseLocation(chi.URLParam(r, "location"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	slot, found := engine.Slot(loc)
	if !found {
		WriteError(ctx, w, http.StatusNotFound, "Slot not found")
		return
	}

	WriteSuccess(ctx, w, "Slot found", slot)
}

func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engine, ok := h.requireEngine(ctx, w)
	if !ok {
		return
	}

	plate := chi.URLParam(r, "plate")
	vehicle, found := engine.Vehicle(plate)
	if !found {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", vehicle)
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engine, ok := h.requireEngine(ctx, w)
	if !ok {
		return
	}

	var req ParkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.PlateNumber == "" || req.Size == nil {
		WriteError(ctx, w, http.StatusBadRequest, "plate_number and size are required")
		return
	}

	parkedAt, err := parseInstant(req.TimeParked)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	location, err := engine.Park(ctx, req.PlateNumber, parking.Size(*req.Size), req.EntryPoint, parkedAt)
	if err != nil {
		WriteError(ctx, w, statusFor(err), err.Error())
		return
	}

	h.save(ctx)
	WriteSuccess(ctx, w, "Vehicle parked successfully", ParkResponse{Location: location})
}

func (h *Handler) UnparkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engine, ok := h.requireEngine(ctx, w)
	if !ok {
		return
	}

	var req UnparkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.PlateNumber == "" {
		WriteError(ctx, w, http.StatusBadRequest, "plate_number is required")
		return
	}

	unparkedAt, err := parseInstant(req.TimeUnparked)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	charge, err := engine.Unpark(ctx, req.PlateNumber, unparkedAt)
	if err != nil {
		WriteError(ctx, w, statusFor(err), err.Error())
		return
	}

	h.save(ctx)
	WriteSuccess(ctx, w, "Vehicle unparked successfully", UnparkResponse{Charge: charge})
}

func (h *Handler) requireEngine(ctx context.Context, w http.ResponseWriter) (*parking.InstrumentedEngine, bool) {
	engine := h.Engine()
	if engine == nil {
		WriteError(ctx, w, http.StatusMethodNotAllowed, "Parking lot not initialized")
		return nil, false
	}
	return engine, true
}

func (h *Handler) save(ctx context.Context) {
	if err := h.lot.Save(ctx); err != nil {
		logging.Error(ctx, "saving snapshot failed", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrInvalidEntryPoint),
		errors.Is(err, parking.ErrInvalidSize),
		errors.Is(err, parking.ErrInvalidTime),
		errors.Is(err, parking.ErrInvalidLayout),
		errors.Is(err, parking.ErrAlreadyInitialized),
		errors.Is(err, parking.ErrAlreadyParked),
		errors.Is(err, parking.ErrVehicleNotExists):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrNoSlotAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
