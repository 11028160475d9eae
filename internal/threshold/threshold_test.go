/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package threshold // import "github.com/solnx/zenjmx/internal/threshold"

import (
	"testing"
	"time"

	"github.com/solnx/zenjmx/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxRule(limit float64) MinMax {
	return MinMax{
		ID:         `heap high`,
		EventClass: `/Perf/Memory`,
		EventKey:   `heapHigh`,
		Severity:   event.Warning,
		Max:        &limit,
		Paths:      []string{`Devices/dev01/used`},
	}
}

func TestCheckTransitions(t *testing.T) {
	e := NewEngine()
	e.UpdateList(`dev01`, []MinMax{maxRule(100)})
	now := time.Now()

	// inside bounds from the start, nothing to report
	assert.Empty(t, e.Check(`Devices/dev01/used`, now, 50))

	// first breach raises exactly one event
	evts := e.Check(`Devices/dev01/used`, now, 150)
	require.Len(t, evts, 1)
	assert.Equal(t, event.Warning, evts[0].Severity)
	assert.Equal(t, `/Perf/Memory`, evts[0].EventClass)
	assert.Contains(t, evts[0].Summary, `heap high exceeded`)

	// staying breached is silent
	assert.Empty(t, e.Check(`Devices/dev01/used`, now, 160))
	assert.Empty(t, e.Check(`Devices/dev01/used`, now, 170))

	// returning inside bounds clears once
	evts = e.Check(`Devices/dev01/used`, now, 90)
	require.Len(t, evts, 1)
	assert.Equal(t, event.Clear, evts[0].Severity)
	assert.Contains(t, evts[0].Summary, `restored`)

	assert.Empty(t, e.Check(`Devices/dev01/used`, now, 80))
}

func TestCheckMinBound(t *testing.T) {
	low := float64(10)
	e := NewEngine()
	e.UpdateList(`dev01`, []MinMax{{
		ID:       `free low`,
		Severity: event.Error,
		Min:      &low,
		Paths:    []string{`Devices/dev01/free`},
	}})

	evts := e.Check(`Devices/dev01/free`, time.Now(), 5)
	require.Len(t, evts, 1)
	assert.Equal(t, event.Error, evts[0].Severity)
	assert.Contains(t, evts[0].Summary, `not met`)
}

func TestCheckUnboundPath(t *testing.T) {
	e := NewEngine()
	e.UpdateList(`dev01`, []MinMax{maxRule(100)})
	assert.Empty(t, e.Check(`Devices/other/used`, time.Now(), 9999))
}

func TestUpdateListReplaces(t *testing.T) {
	e := NewEngine()
	e.UpdateList(`dev01`, []MinMax{maxRule(100)})
	assert.Equal(t, 1, e.RuleCount())

	// the replacement list drops the rule and its breach state
	require.Len(t, e.Check(`Devices/dev01/used`, time.Now(), 150), 1)
	e.UpdateList(`dev01`, nil)
	assert.Equal(t, 0, e.RuleCount())
	assert.Empty(t, e.Check(`Devices/dev01/used`, time.Now(), 150))
}

func TestUpdateListKeepsBreachState(t *testing.T) {
	e := NewEngine()
	e.UpdateList(`dev01`, []MinMax{maxRule(100)})
	now := time.Now()

	require.Len(t, e.Check(`Devices/dev01/used`, now, 150), 1)

	// a refresh with the same rule must not rearm the breach
	e.UpdateList(`dev01`, []MinMax{maxRule(100)})
	assert.Empty(t, e.Check(`Devices/dev01/used`, now, 150))

	// but the clear transition still fires
	evts := e.Check(`Devices/dev01/used`, now, 50)
	require.Len(t, evts, 1)
	assert.Equal(t, event.Clear, evts[0].Severity)
}

func TestUpdateListOwnerIsolation(t *testing.T) {
	rule := maxRule(100)
	rule.Paths = []string{`shared/path`}

	e := NewEngine()
	e.UpdateList(`dev01`, []MinMax{rule})
	e.UpdateList(`collector`, []MinMax{rule})
	assert.Equal(t, 2, e.RuleCount())

	// removing one owner leaves the other owner's binding in place
	e.UpdateList(`dev01`, nil)
	assert.Equal(t, 1, e.RuleCount())
	assert.Len(t, e.Check(`shared/path`, time.Now(), 150), 1)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
