package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parking-engine/internal/logging"
)

// shellTimeLayouts are tried in order for optional time arguments.
var shellTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type Shell struct {
	lot     *Lot
	scanner *bufio.Scanner
	out     io.Writer
}

// NewShell reads commands from in and writes replies to out. When lot has no
// engine yet it is created with the init command.
func NewShell(in io.Reader, out io.Writer, lot *Lot) *Shell {
	return &Shell{
		lot:     lot,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (s *Shell) Engine() *InstrumentedEngine {
	return s.lot.Engine()
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.lot.Telemetry().Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))
		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "init":
		s.handleInit(ctx, parts)
	case "park":
		s.handlePark(ctx, parts)
	case "unpark":
		s.handleUnpark(ctx, parts)
	case "slots":
		s.handleSlots(ctx)
	case "vehicles":
		s.handleVehicles(ctx)
	case "slot":
		s.handleSlot(ctx, parts)
	case "vehicle":
		s.handleVehicle(ctx, parts)
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handleInit(ctx context.Context, parts []string) {
	if s.Engine() != nil {
		s.println("Parking lot already initialized")
		return
	}
	if len(parts) < 3 {
		s.println("Usage: init <entry_points> <x,y,z:SIZE> ...")
		return
	}

	entryPoints, err := strconv.Atoi(parts[1])
	if err != nil {
		s.println("Invalid entry point count")
		return
	}

	locations := make([]Location, 0, len(parts)-2)
	sizes := make([]Size, 0, len(parts)-2)
	for _, spec := range parts[2:] {
		rawLoc, rawSize, ok := strings.Cut(spec, ":")
		if !ok {
			s.printf("Invalid slot %q, expected x,y,z:SIZE\n", spec)
			return
		}
		loc, err := ParseLocation(rawLoc)
		if err != nil {
			s.printf("Error: %s\n", err)
			return
		}
		size, err := ParseSize(rawSize)
		if err != nil {
			s.printf("Error: %s\n", err)
			return
		}
		locations = append(locations, loc)
		sizes = append(sizes, size)
	}

	engine, err := s.lot.Init(entryPoints, locations, sizes)
	if errors.Is(err, ErrAlreadyInitialized) {
		s.println("Parking lot already initialized")
		return
	}
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.save(ctx)
	s.printf("Created a parking lot with %d slots and %d entry points\n", engine.Capacity(), entryPoints)
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if !s.ready() {
		return
	}
	if len(parts) != 4 && len(parts) != 5 {
		s.println("Usage: park <plate_number> <size> <entry_point> [time]")
		return
	}

	size, err := ParseSize(parts[2])
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}
	entryPoint, err := strconv.Atoi(parts[3])
	if err != nil {
		s.println("Invalid entry point")
		return
	}
	at, ok := s.optionalTime(parts, 4)
	if !ok {
		return
	}

	location, err := s.Engine().Park(ctx, parts[1], size, entryPoint, at)
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.save(ctx)
	s.printf("Allocated slot: %s\n", location)
}

func (s *Shell) handleUnpark(ctx context.Context, parts []string) {
	if !s.ready() {
		return
	}
	if len(parts) != 2 && len(parts) != 3 {
		s.println("Usage: unpark <plate_number> [time]")
		return
	}

	at, ok := s.optionalTime(parts, 2)
	if !ok {
		return
	}

	charge, err := s.Engine().Unpark(ctx, parts[1], at)
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.save(ctx)
	s.printf("Charge: %d\n", charge)
}

func (s *Shell) handleSlots(ctx context.Context) {
	if !s.ready() {
		return
	}

	s.println("Location\tSize\tVacant")
	for _, slot := range s.Engine().Slots(ctx) {
		s.printf("%s\t%s\t%t\n", slot.Location, slot.Size, slot.IsVacant)
	}
}

func (s *Shell) handleVehicles(ctx context.Context) {
	if !s.ready() {
		return
	}

	vehicles := s.Engine().Vehicles(ctx)
	if len(vehicles) == 0 {
		s.println("No vehicles recorded")
		return
	}

	s.println("Plate No.\tSize\tParked\tSessions")
	for _, v := range vehicles {
		s.printf("%s\t%s\t%t\t%d\n", v.PlateNumber, v.Size, v.IsParked, len(v.Sessions))
	}
}

func (s *Shell) handleSlot(_ context.Context, parts []string) {
	if !s.ready() {
		return
	}
	if len(parts) != 2 {
		s.println("Usage: slot <x,y,z>")
		return
	}

	loc, err := ParseLocation(parts[1])
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}
	slot, ok := s.Engine().Slot(loc)
	if !ok {
		s.println("Not found")
		return
	}
	s.printf("%s\t%s\t%t\n", slot.Location, slot.Size, slot.IsVacant)
}

func (s *Shell) handleVehicle(_ context.Context, parts []string) {
	if !s.ready() {
		return
	}
	if len(parts) != 2 {
		s.println("Usage: vehicle <plate_number>")
		return
	}

	v, ok := s.Engine().Vehicle(parts[1])
	if !ok {
		s.println("Not found")
		return
	}
	s.printf("%s\t%s\tparked=%t\n", v.PlateNumber, v.Size, v.IsParked)
	for _, session := range v.Sessions {
		charge := "-"
		if session.Charge != nil {
			charge = strconv.FormatInt(*session.Charge, 10)
		}
		left := "-"
		if session.TimeUnparkedAt != nil {
			left = session.TimeUnparkedAt.Format(time.RFC3339)
		}
		s.printf("  %s\t%s\t%s\t%s\n", session.SlotLocation, session.TimeParkedAt.Format(time.RFC3339), left, charge)
	}
}

func (s *Shell) ready() bool {
	if s.Engine() == nil {
		s.println("Parking lot not initialized")
		return false
	}
	return true
}

func (s *Shell) optionalTime(parts []string, idx int) (*time.Time, bool) {
	if len(parts) <= idx {
		return nil, true
	}
	for _, layout := range shellTimeLayouts {
		if t, err := time.Parse(layout, parts[idx]); err == nil {
			return &t, true
		}
	}
	s.printf("Invalid time %q\n", parts[idx])
	return nil, false
}

func (s *Shell) save(ctx context.Context) {
	if err := s.lot.Save(ctx); err != nil {
		logging.Error(ctx, "saving snapshot failed", "error", err)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(msg string) {
	fmt.Fprintln(s.out, msg)
}
