/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package rrd // import "github.com/solnx/zenjmx/internal/rrd"

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	// pure Go sqlite driver, registers itself with database/sql
	_ "modernc.org/sqlite"
)

const seriesDDL = `
CREATE TABLE IF NOT EXISTS series (
	path       TEXT PRIMARY KEY,
	rrd_type   TEXT NOT NULL,
	create_cmd TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
)`

const samplesDDL = `
CREATE TABLE IF NOT EXISTS samples (
	path  TEXT NOT NULL,
	ts    INTEGER NOT NULL,
	value REAL NOT NULL,
	rate  REAL
)`

const samplesIdxDDL = `
CREATE INDEX IF NOT EXISTS samples_path_ts ON samples (path, ts)`

// lastSample is the previous persisted sample of a series, kept for
// rate derivation of COUNTER and DERIVE series
type lastSample struct {
	ts    time.Time
	value float64
}

// sqlStore is the sqlite backed Store implementation
type sqlStore struct {
	db            *sql.DB
	defaultCreate string
	mu            sync.Mutex
	last          map[string]lastSample
	known         map[string]bool
	points        int64
	cycle         int64
	now           func() time.Time
}

// NewStore opens the metric store at the given sqlite location and
// creates the schema if required. defaultCreate is used as create
// parameter descriptor for series whose datapoint carries none.
func NewStore(dsn, defaultCreate string) (Store, error) {
	db, err := sql.Open(`sqlite`, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageWrite, dsn, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStorageWrite, dsn, err)
	}
	for _, ddl := range []string{seriesDDL, samplesDDL, samplesIdxDDL} {
		if _, err = db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: migrate: %v", ErrStorageWrite, err)
		}
	}
	return &sqlStore{
		db:            db,
		defaultCreate: defaultCreate,
		last:          make(map[string]lastSample),
		known:         make(map[string]bool),
		now:           time.Now,
	}, nil
}

// Save implements Store. Samples outside the configured clamp bounds
// are treated as unknown and not persisted.
func (s *sqlStore) Save(path string, value float64, rrdType,
	createCmd string, min, max *float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if min != nil && value < *min {
		return unknown(), nil
	}
	if max != nil && value > *max {
		return unknown(), nil
	}

	ts := s.now()
	if err := s.ensureSeries(path, rrdType, createCmd, ts); err != nil {
		return unknown(), err
	}

	current := value
	switch rrdType {
	case TypeCounter, TypeDerive:
		current = s.derive(path, rrdType, ts, value)
	}

	var rate interface{}
	if !math.IsNaN(current) {
		rate = current
	}
	if _, err := s.db.Exec(
		`INSERT INTO samples (path, ts, value, rate) VALUES (?, ?, ?, ?)`,
		path, ts.Unix(), value, rate,
	); err != nil {
		return unknown(), fmt.Errorf("%w: %s: %v", ErrStorageWrite, path, err)
	}

	s.last[path] = lastSample{ts: ts, value: value}
	s.points++
	s.cycle++
	return current, nil
}

// ensureSeries registers the series metadata on first contact
func (s *sqlStore) ensureSeries(path, rrdType, createCmd string,
	ts time.Time) error {
	if s.known[path] {
		return nil
	}
	if createCmd == `` {
		createCmd = s.defaultCreate
	}
	if _, err := s.db.Exec(
		`INSERT INTO series (path, rrd_type, create_cmd, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (path) DO NOTHING`,
		path, rrdType, createCmd, ts.Unix(),
	); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrStorageWrite, path, err)
	}
	s.known[path] = true
	return nil
}

// derive computes the per second rate against the previous sample.
// The first sample of a series has no rate. A shrinking COUNTER value
// is a wrap or reset and yields no rate either; DERIVE series may go
// negative.
func (s *sqlStore) derive(path, rrdType string, ts time.Time,
	value float64) float64 {
	prev, ok := s.last[path]
	if !ok {
		return unknown()
	}
	elapsed := ts.Sub(prev.ts).Seconds()
	if elapsed <= 0 {
		return unknown()
	}
	delta := value - prev.value
	if rrdType == TypeCounter && delta < 0 {
		return unknown()
	}
	return delta / elapsed
}

// DataPoints implements Store
func (s *sqlStore) DataPoints() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// EndCycle implements Store. It returns the number of datapoints
// written since the previous cycle end and resets the counter.
func (s *sqlStore) EndCycle() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cycle
	s.cycle = 0
	return c
}

// Close implements Store
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
