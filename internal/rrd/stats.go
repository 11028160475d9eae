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
	"strconv"
)

// Stats writes the daemon's own health metrics through the regular
// metric store, so an operator can trend the daemon like any other
// monitored target. Cadence is the expected reporting interval of the
// metric; it is recorded in the series create parameters.
type Stats struct {
	Store  Store
	Prefix string
}

// Gauge stores a point-in-time self metric
func (s *Stats) Gauge(name string, cadence int64, value float64) error {
	_, err := s.Store.Save(s.Prefix+`/`+name, value, TypeGauge,
		createCmd(cadence), nil, nil)
	return err
}

// Counter stores a monotonic self metric
func (s *Stats) Counter(name string, cadence int64, value float64) error {
	_, err := s.Store.Save(s.Prefix+`/`+name, value, TypeDerive,
		createCmd(cadence), nil, nil)
	return err
}

func createCmd(cadence int64) string {
	return `--step ` + strconv.FormatInt(cadence, 10)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
