// Package store keeps the latest engine snapshot in a SQLite file so a lot
// survives restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"parking-engine/internal/parking"
)

var (
	ErrNoSnapshot    = errors.New("no snapshot stored")
	ErrStaleSnapshot = errors.New("snapshot older than the stored one")
)

const schema = `
CREATE TABLE IF NOT EXISTS lot (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	version      INTEGER NOT NULL,
	entry_points INTEGER NOT NULL,
	saved_at     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS slots (
	position  INTEGER PRIMARY KEY,
	location  TEXT    NOT NULL UNIQUE,
	size      INTEGER NOT NULL,
	is_vacant INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS vehicles (
	position     INTEGER PRIMARY KEY,
	plate_number TEXT    NOT NULL UNIQUE,
	size         INTEGER NOT NULL,
	is_parked    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	plate_number  TEXT    NOT NULL,
	seq           INTEGER NOT NULL,
	slot_location TEXT    NOT NULL,
	time_parked   INTEGER NOT NULL,
	time_unparked INTEGER,
	charge        INTEGER,
	PRIMARY KEY (plate_number, seq)
);`

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot in a single transaction. A snapshot with
// a lower version than the stored one is refused with ErrStaleSnapshot.
func (s *Store) Save(ctx context.Context, snap parking.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stored uint64
	err = tx.QueryRowContext(ctx, `SELECT version FROM lot WHERE id = 1`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return fmt.Errorf("read stored version: %w", err)
	case snap.Version < stored:
		return fmt.Errorf("%w: version %d, stored %d", ErrStaleSnapshot, snap.Version, stored)
	}

	for _, table := range []string{"sessions", "vehicles", "slots", "lot"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO lot (id, version, entry_points, saved_at) VALUES (1, ?, ?, ?)`,
		int64(snap.Version), snap.EntryPoints, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("save lot: %w", err)
	}

	for i, slot := range snap.Slots {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO slots (position, location, size, is_vacant) VALUES (?, ?, ?, ?)`,
			i, slot.Location.Key(), int(slot.Size), slot.IsVacant); err != nil {
			return fmt.Errorf("save slot %s: %w", slot.Location, err)
		}
	}

	for i, v := range snap.Vehicles {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO vehicles (position, plate_number, size, is_parked) VALUES (?, ?, ?, ?)`,
			i, v.PlateNumber, int(v.Size), v.IsParked); err != nil {
			return fmt.Errorf("save vehicle %s: %w", v.PlateNumber, err)
		}
		for seq, session := range v.Sessions {
			var unparked, charge sql.NullInt64
			if session.TimeUnparkedAt != nil {
				unparked = sql.NullInt64{Int64: session.TimeUnparkedAt.UnixNano(), Valid: true}
			}
			if session.Charge != nil {
				charge = sql.NullInt64{Int64: *session.Charge, Valid: true}
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO sessions (plate_number, seq, slot_location, time_parked, time_unparked, charge)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				v.PlateNumber, seq, session.SlotLocation.Key(), session.TimeParkedAt.UnixNano(), unparked, charge); err != nil {
				return fmt.Errorf("save session %s/%d: %w", v.PlateNumber, seq, err)
			}
		}
	}

	return tx.Commit()
}

// Load returns the stored snapshot, or ErrNoSnapshot when nothing was saved.
func (s *Store) Load(ctx context.Context) (parking.Snapshot, error) {
	var snap parking.Snapshot

	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT version, entry_points FROM lot WHERE id = 1`).Scan(&version, &snap.EntryPoints)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("load lot: %w", err)
	}
	snap.Version = uint64(version)

	if snap.Slots, err = s.loadSlots(ctx); err != nil {
		return snap, err
	}
	if snap.Vehicles, err = s.loadVehicles(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Store) loadSlots(ctx context.Context) ([]parking.Slot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT location, size, is_vacant FROM slots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	var slots []parking.Slot
	for rows.Next() {
		var (
			rawLoc string
			size   int
			vacant bool
		)
		if err := rows.Scan(&rawLoc, &size, &vacant); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		loc, err := parking.ParseLocation(rawLoc)
		if err != nil {
			return nil, err
		}
		slot := parking.NewSlot(loc, parking.Size(size))
		slot.IsVacant = vacant
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

func (s *Store) loadVehicles(ctx context.Context) ([]parking.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT plate_number, size, is_parked FROM vehicles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}

	var vehicles []parking.Vehicle
	for rows.Next() {
		var (
			plate  string
			size   int
			parked bool
		)
		if err := rows.Scan(&plate, &size, &parked); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		v := parking.NewVehicle(plate, parking.Size(size))
		v.IsParked = parked
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range vehicles {
		sessions, err := s.loadSessions(ctx, vehicles[i].PlateNumber)
		if err != nil {
			return nil, err
		}
		vehicles[i].Sessions = sessions
	}
	return vehicles, nil
}

func (s *Store) loadSessions(ctx context.Context, plate string) ([]*parking.ParkingSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot_location, time_parked, time_unparked, charge FROM sessions WHERE plate_number = ? ORDER BY seq`, plate)
	if err != nil {
		return nil, fmt.Errorf("load sessions for %s: %w", plate, err)
	}
	defer rows.Close()

	var sessions []*parking.ParkingSession
	for rows.Next() {
		var (
			rawLoc   string
			parked   int64
			unparked sql.NullInt64
			charge   sql.NullInt64
		)
		if err := rows.Scan(&rawLoc, &parked, &unparked, &charge); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		loc, err := parking.ParseLocation(rawLoc)
		if err != nil {
			return nil, err
		}
		session := parking.NewParkingSession(loc, time.Unix(0, parked).UTC())
		if unparked.Valid {
			at := time.Unix(0, unparked.Int64).UTC()
			session.TimeUnparkedAt = &at
		}
		if charge.Valid {
			c := charge.Int64
			session.Charge = &c
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
