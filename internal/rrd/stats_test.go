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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	s := testStore(t)
	stats := &Stats{
		Store:  s,
		Prefix: `Daemons/localhost/zenjmx`,
	}

	require.NoError(t, stats.Gauge(`cycleTime`, 300, 12.5))
	require.NoError(t, stats.Counter(`dataPoints`, 900, 42))

	// self metrics land under the daemon prefix with a create command
	// matching their cadence
	var rrdType, createCmd string
	require.NoError(t, s.db.QueryRow(
		`SELECT rrd_type, create_cmd FROM series WHERE path = ?`,
		`Daemons/localhost/zenjmx/cycleTime`).Scan(&rrdType, &createCmd))
	assert.Equal(t, TypeGauge, rrdType)
	assert.Equal(t, `--step 300`, createCmd)

	require.NoError(t, s.db.QueryRow(
		`SELECT rrd_type, create_cmd FROM series WHERE path = ?`,
		`Daemons/localhost/zenjmx/dataPoints`).Scan(&rrdType, &createCmd))
	assert.Equal(t, TypeDerive, rrdType)
	assert.Equal(t, `--step 900`, createCmd)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
