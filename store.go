package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/lib/pq"
	"github.com/zathras777/ysiodo/odo"
)

const (
	createReadingsSQL = `
CREATE TABLE IF NOT EXISTS odo_readings (
    ts        TIMESTAMPTZ NOT NULL,
    device    SMALLINT    NOT NULL,
    registers INTEGER[]   NOT NULL,
    PRIMARY KEY (device, ts)
)`
	createMeasurementsSQL = `
CREATE TABLE IF NOT EXISTS odo_measurements (
    ts     TIMESTAMPTZ      NOT NULL,
    device SMALLINT         NOT NULL,
    name   TEXT             NOT NULL,
    unit   TEXT             NOT NULL,
    value  DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (device, name, ts)
)`
	insertReadingSQL = `
INSERT INTO odo_readings (ts, device, registers)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`
	insertMeasurementSQL = `
INSERT INTO odo_measurements (ts, device, name, unit, value)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// store keeps every reading in Postgres: the raw registers and one row per
// measurement.
type store struct {
	db  *sql.DB
	log logr.Logger
}

func openStore(ctx context.Context, dsn string, log logr.Logger) (*store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("connected to database")
	return &store{db: db, log: log}, nil
}

func migrate(ctx context.Context, db execer) error {
	for _, stmt := range []string{createReadingsSQL, createMeasurementsSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func (s *store) Name() string {
	return "postgres"
}

func (s *store) Close() error {
	return s.db.Close()
}

// Publish stores r in a single transaction.
func (s *store) Publish(ctx context.Context, r odo.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertReading(ctx, tx, r); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertReading(ctx context.Context, ex execer, r odo.Reading) error {
	regs := make([]int64, len(r.Registers))
	for i, v := range r.Registers {
		regs[i] = int64(v)
	}
	if _, err := ex.ExecContext(ctx, insertReadingSQL, r.Time, int(r.Device), pq.Array(regs)); err != nil {
		return fmt.Errorf("store: insert reading: %w", err)
	}
	for _, m := range r.Measurements {
		if _, err := ex.ExecContext(ctx, insertMeasurementSQL, r.Time, int(r.Device), m.Name, m.Unit, m.Value); err != nil {
			return fmt.Errorf("store: insert %s: %w", m.Name, err)
		}
	}
	return nil
}
