/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package event // import "github.com/solnx/zenjmx/internal/event"

import (
	"time"
)

// Severity levels for events
const (
	Clear    int64 = 0
	Debug    int64 = 1
	Info     int64 = 2
	Warning  int64 = 3
	Error    int64 = 4
	Critical int64 = 5
)

// Well known event classes
const (
	ClassStatusJMX     = `/Status/JMX`
	ClassStatusJMXConn = `/Status/JMX/Connection`
	ClassPerfSnmp      = `/Perf/Snmp`
	ClassAppJavaJMX    = `/App/Java/JMX`
)

// Event is the record sent to the event processing backend
type Event struct {
	EvID       string `json:"evid,omitempty"`
	EventClass string `json:"eventClass"`
	EventKey   string `json:"eventKey,omitempty"`
	Component  string `json:"component,omitempty"`
	Device     string `json:"device,omitempty"`
	Severity   int64  `json:"severity"`
	Summary    string `json:"summary"`
	Agent      string `json:"agent,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	// Timeout is only set on heartbeat events; the liveness lapse
	// window in seconds
	Timeout int64 `json:"timeout,omitempty"`
}

// Stamp sets the event timestamp to the current time unless it is
// already set
func (e Event) Stamp() Event {
	if e.Timestamp == `` {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return e
}

// Sink is an outlet for events raised by the daemon
type Sink interface {
	Send(ev Event)
}

// Discard is a Sink that drops all events. It is used in testmode when
// no events may leave the daemon.
type Discard struct{}

// Send implements Sink
func (d *Discard) Send(ev Event) {
}

// Memory is a Sink that records all events in order of arrival
type Memory struct {
	Events []Event
}

// Send implements Sink
func (m *Memory) Send(ev Event) {
	m.Events = append(m.Events, ev)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
