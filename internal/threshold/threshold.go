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
	"fmt"
	"time"

	"github.com/solnx/zenjmx/internal/event"
)

// MinMax is a threshold rule bound to one or more metric paths. A
// value below Min or above Max breaches the rule. A nil bound is not
// checked.
type MinMax struct {
	ID         string
	EventClass string
	EventKey   string
	Severity   int64
	Min        *float64
	Max        *float64
	Paths      []string
}

// bound is one rule instance attached to one path, together with the
// breach state from the previous check
type bound struct {
	owner    string
	rule     MinMax
	breached int64 // severity currently raised, event.Clear when inside bounds
}

// Engine evaluates metric values against the active threshold rules.
// It is stateful per path so that only state transitions produce
// events. It must only be used from a single goroutine.
type Engine struct {
	byPath map[string][]*bound
}

// NewEngine returns an empty threshold engine
func NewEngine() *Engine {
	return &Engine{
		byPath: make(map[string][]*bound),
	}
}

// UpdateList replaces all rules installed by owner with the given
// list. Callers pass their rules wholesale on every configuration
// refresh; rules no longer in the list are removed together with
// their breach state.
func (e *Engine) UpdateList(owner string, rules []MinMax) {
	// carry over breach state for rules that survive the update
	state := make(map[string]int64)
	for path := range e.byPath {
		kept := e.byPath[path][:0]
		for _, b := range e.byPath[path] {
			if b.owner != owner {
				kept = append(kept, b)
				continue
			}
			state[b.rule.ID+`|`+path] = b.breached
		}
		if len(kept) == 0 {
			delete(e.byPath, path)
			continue
		}
		e.byPath[path] = kept
	}

	for i := range rules {
		for _, path := range rules[i].Paths {
			b := &bound{
				owner:    owner,
				rule:     rules[i],
				breached: state[rules[i].ID+`|`+path],
			}
			e.byPath[path] = append(e.byPath[path], b)
		}
	}
}

// Check evaluates value against all rules bound to path and returns
// the resulting transition events. A value that stays breached at the
// same severity produces nothing; a breach start, a severity change
// and a return inside the bounds produce exactly one event each.
func (e *Engine) Check(path string, ts time.Time, value float64) []event.Event {
	evts := []event.Event{}
	for _, b := range e.byPath[path] {
		severity := event.Clear
		var summary string
		switch {
		case b.rule.Max != nil && value > *b.rule.Max:
			severity = b.rule.Severity
			summary = fmt.Sprintf(
				"threshold of %s exceeded: current value %.2f > %.2f",
				b.rule.ID, value, *b.rule.Max)
		case b.rule.Min != nil && value < *b.rule.Min:
			severity = b.rule.Severity
			summary = fmt.Sprintf(
				"threshold of %s not met: current value %.2f < %.2f",
				b.rule.ID, value, *b.rule.Min)
		}

		if severity == b.breached {
			continue
		}
		if severity == event.Clear {
			summary = fmt.Sprintf("threshold of %s restored:"+
				" current value %.2f", b.rule.ID, value)
		}
		b.breached = severity
		evts = append(evts, event.Event{
			EventClass: b.rule.EventClass,
			EventKey:   b.rule.EventKey,
			Severity:   severity,
			Summary:    summary,
			Timestamp:  ts.UTC().Format(time.RFC3339Nano),
		})
	}
	return evts
}

// RuleCount returns the number of installed path bindings
func (e *Engine) RuleCount() int {
	count := 0
	for path := range e.byPath {
		count += len(e.byPath[path])
	}
	return count
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
