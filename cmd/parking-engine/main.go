package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parking-engine/internal/config"
	"parking-engine/internal/logging"
	"parking-engine/internal/parking"
	"parking-engine/internal/server"
	"parking-engine/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "parking-engine",
		Short:         "Parking slot allocation and billing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, modeShell)
		},
	}

	flags := root.PersistentFlags()
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port for the HTTP server")
	flags.StringVar(&cfg.LayoutFile, "layout", cfg.LayoutFile, "TOML file describing entry points and slots")
	flags.StringVar(&cfg.SnapshotDB, "snapshot-db", cfg.SnapshotDB, "SQLite file holding the lot snapshot")
	flags.DurationVar(&cfg.ContinuityWindow, "continuity-window", cfg.ContinuityWindow, "re-park gap still billed as one stay")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Run the interactive shell on stdin",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), cfg, modeShell)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), cfg, modeServer)
			},
		},
		&cobra.Command{
			Use:   "both",
			Short: "Run the HTTP API and the shell side by side",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), cfg, modeBoth)
			},
		},
	)

	return root
}

type mode int

const (
	modeShell mode = iota
	modeServer
	modeBoth
)

func run(parent context.Context, cfg *config.Config, m mode) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetry, err := parking.NewTelemetryProvider(ctx, parking.TelemetryConfig{
		ServiceName:  cfg.OTelServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		Environment:  cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(telemetry)

	logging.Init(cfg.OTelServiceName, cfg.Environment)

	opts := []parking.Option{parking.WithContinuityWindow(cfg.ContinuityWindow)}

	var saver parking.SnapshotSaver
	if cfg.SnapshotDB != "" {
		st, err := store.Open(ctx, cfg.SnapshotDB)
		if err != nil {
			return err
		}
		defer st.Close()
		saver = st
	}

	engine, err := bootstrapEngine(ctx, cfg, saver, telemetry, opts)
	if err != nil {
		return err
	}
	lot := parking.NewLot(telemetry, engine, saver, opts...)

	switch m {
	case modeShell:
		parking.NewShell(os.Stdin, os.Stdout, lot).Run(ctx)
		return nil
	case modeServer:
		return runServer(ctx, cfg, server.NewHandler(cfg.OTelServiceName, lot))
	default:
		return runBoth(ctx, cfg, lot, os.Stdin, os.Stdout)
	}
}

// bootstrapEngine prefers a stored snapshot over the layout file. It returns
// nil when neither is configured; the lot is then created with init.
func bootstrapEngine(ctx context.Context, cfg *config.Config, saver parking.SnapshotSaver, telemetry *parking.TelemetryProvider, opts []parking.Option) (*parking.InstrumentedEngine, error) {
	var engine *parking.Engine

	if st, ok := saver.(*store.Store); ok {
		snap, err := st.Load(ctx)
		switch {
		case err == nil:
			if engine, err = parking.RestoreEngine(snap, opts...); err != nil {
				return nil, err
			}
			logging.Info(ctx, "restored parking lot from snapshot",
				"path", cfg.SnapshotDB, "slots", engine.Capacity(), "vehicles", len(snap.Vehicles))
		case !errors.Is(err, store.ErrNoSnapshot):
			return nil, err
		}
	}

	if engine == nil && cfg.LayoutFile != "" {
		layout, err := config.LoadLayout(cfg.LayoutFile)
		if err != nil {
			return nil, err
		}
		if engine, err = layout.Engine(opts...); err != nil {
			return nil, fmt.Errorf("layout %s: %w", cfg.LayoutFile, err)
		}
		logging.Info(ctx, "created parking lot from layout",
			"path", cfg.LayoutFile, "entry_points", engine.EntryPoints(), "slots", engine.Capacity())

		if saver != nil {
			if err := saver.Save(ctx, engine.Snapshot()); err != nil {
				return nil, err
			}
		}
	}

	if engine == nil {
		return nil, nil
	}
	return parking.NewInstrumentedEngine(engine, telemetry)
}

func runServer(ctx context.Context, cfg *config.Config, handler *server.Handler) error {
	srv := server.NewServer(cfg.Port, handler)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info(context.Background(), "received shutdown signal")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// runBoth serves the HTTP API and the shell on one lot, so an init from
// either surface is seen by the other.
func runBoth(ctx context.Context, cfg *config.Config, lot *parking.Lot, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- runServer(ctx, cfg, server.NewHandler(cfg.OTelServiceName, lot))
	}()

	shellDone := make(chan struct{})
	go func() {
		parking.NewShell(in, out, lot).Run(ctx)
		close(shellDone)
	}()

	select {
	case err := <-serverDone:
		return err
	case <-shellDone:
		logging.Info(ctx, "shell exited")
	case <-ctx.Done():
	}

	cancel()
	return <-serverDone
}

func shutdownTelemetry(telemetry *parking.TelemetryProvider) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutting down telemetry: %v\n", err)
	}
}
