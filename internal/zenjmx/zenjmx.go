/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package zenjmx // import "github.com/solnx/zenjmx/internal/zenjmx"

import (
	"time"

	"github.com/mjolnir42/delay"
	"github.com/mjolnir42/limit"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/collector"
	"github.com/solnx/zenjmx/internal/config"
	"github.com/solnx/zenjmx/internal/dsconf"
	"github.com/solnx/zenjmx/internal/event"
	"github.com/solnx/zenjmx/internal/rrd"
	"github.com/solnx/zenjmx/internal/threshold"
	"github.com/solnx/zenjmx/internal/zenhub"
)

// DaemonName is the component name used on daemon level events
const DaemonName = `zenjmx`

// collectorOwner is the threshold engine owner key for collector
// level thresholds
const collectorOwner = `collector`

// ZenJMX is the collection orchestrator. It owns the device
// configuration map and the connection health map; both are touched
// exclusively by the run loop goroutine.
type ZenJMX struct {
	Shutdown chan struct{}
	Death    chan error
	Done     chan struct{}
	Config   *config.DaemonConfig
	Metrics  *metrics.Registry
	Limit    *limit.Limit
	AppLog   *logrus.Logger
	// unexported
	hub        *zenhub.Client
	push       *zenhub.PushListener
	coll       *collector.Client
	store      rrd.Store
	stats      *rrd.Stats
	events     event.Sink
	thresholds *threshold.Engine
	builder    *dsconf.Builder
	delay      *delay.Delay

	// deviceConfigs maps device id to its active configuration;
	// entries are swapped wholesale, never patched
	deviceConfigs map[string]*dsconf.DeviceConfig
	// jmxConnUp tracks the last known state per mbean server key;
	// a missing entry means unknown
	jmxConnUp map[string]bool

	running       bool
	cycleTimer    *time.Timer
	configTimer   *time.Timer
	batchDone     chan *batchResult
	outstanding   int
	cycleStart    time.Time
	defaultCreate string
	oneShotDone   bool
}

// batchResult carries the outcome of one dispatched batch back into
// the run loop
type batchResult struct {
	serverKey string
	device    string
	results   []collector.Result
	err       error
}

// SetCollector injects the helper process RPC client
func (z *ZenJMX) SetCollector(c *collector.Client) {
	z.coll = c
}

// SetEventSink injects the event outlet
func (z *ZenJMX) SetEventSink(s event.Sink) {
	z.events = s
}

// SetStore injects the metric store. When unset, Start opens the
// sqlite store at the configured storage path.
func (z *ZenJMX) SetStore(s rrd.Store) {
	z.store = s
}

// SetHub injects the configuration service client
func (z *ZenJMX) SetHub(h *zenhub.Client) {
	z.hub = h
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
