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
	"errors"
	"math"
)

// RRD datapoint semantics tags
const (
	TypeGauge    = `GAUGE`
	TypeCounter  = `COUNTER`
	TypeDerive   = `DERIVE`
	TypeAbsolute = `ABSOLUTE`
)

// ErrStorageWrite is returned when a sample cannot be persisted, for
// example because the storage location cannot be created or written.
// The failure is per datapoint; the next cycle's write is the retry.
var ErrStorageWrite = errors.New(`rrd: storage write failed`)

// Store persists time series samples and returns the effective rolling
// value used for threshold comparison. For GAUGE and ABSOLUTE series
// that is the sample itself, for COUNTER and DERIVE series the rate
// computed against the previous sample. NaN is returned when no
// effective value exists yet.
type Store interface {
	Save(path string, value float64, rrdType, createCmd string,
		min, max *float64) (float64, error)
	DataPoints() int64
	EndCycle() int64
	Close() error
}

// unknown is the value returned when no rate can be derived
func unknown() float64 {
	return math.NaN()
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
