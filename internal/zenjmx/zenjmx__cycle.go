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

	metrics "github.com/rcrowley/go-metrics"
	"github.com/solnx/zenjmx/internal/dsconf"
	"github.com/solnx/zenjmx/internal/event"
)

// startCycle partitions the configured work into one batch per mbean
// server and dispatches them with bounded concurrency. Completion is
// reported per batch through batchDone; the cycle ends when all
// batches have reported.
func (z *ZenJMX) startCycle() {
	z.running = true
	z.cycleStart = time.Now()
	if z.Config.Cycle {
		z.heartbeat()
	}
	z.AppLog.Debugln(`doCollection(): starting collection cycle`)

	// defensive copy; the config map may be updated while batches
	// are in flight
	type batch struct {
		serverKey string
		device    string
		configs   []*dsconf.DataSourceConfig
	}
	work := []batch{}
	for deviceID := range z.deviceConfigs {
		cfg := z.deviceConfigs[deviceID]
		z.AppLog.Infof("doCollection(): running collection for %s",
			deviceID)
		for serverKey := range cfg.DataSources {
			configs := make([]*dsconf.DataSourceConfig, 0,
				len(cfg.DataSources[serverKey]))
			configs = append(configs, cfg.DataSources[serverKey]...)
			work = append(work, batch{
				serverKey: serverKey,
				device:    deviceID,
				configs:   configs,
			})
		}
	}

	z.outstanding = len(work)
	if z.outstanding == 0 {
		z.endCycle()
		return
	}

	for i := range work {
		b := work[i]
		z.delay.Use()
		go func() {
			defer z.delay.Done()
			// acquire a concurrency slot before issuing the call
			z.Limit.Start()
			results, err := z.coll.Collect(b.configs)
			z.Limit.Done()
			z.batchDone <- &batchResult{
				serverKey: b.serverKey,
				device:    b.device,
				results:   results,
				err:       err,
			}
		}()
	}
}

// completeBatch routes one finished batch through result processing
// and finishes the cycle once every batch has reported. A failed
// batch is logged and isolated; it never blocks the other batches.
func (z *ZenJMX) completeBatch(res *batchResult) {
	z.outstanding--
	switch {
	case res.err != nil:
		z.AppLog.Errorf("handleFinish(): batch for %s failed: %s",
			res.device, res.err)
		metrics.GetOrRegisterMeter(`.batches.failed`,
			*z.Metrics).Mark(1)
	default:
		z.processResults(res.serverKey, res.results)
		metrics.GetOrRegisterMeter(`.batches.completed`,
			*z.Metrics).Mark(1)
	}

	if z.outstanding == 0 && z.running {
		z.endCycle()
	}
}

// endCycle records the daemon self metrics and re-arms the collection
// timer. Re-arming at the end of processing means a slow cycle pushes
// the next start back instead of overlapping.
func (z *ZenJMX) endCycle() {
	cycleTime := time.Since(z.cycleStart).Seconds()
	cyclePoints := z.store.EndCycle()
	dataPoints := z.store.DataPoints()

	heartbeatTimeout := z.Config.HeartbeatTimeout()
	if err := z.stats.Gauge(`cycleTime`,
		int64(z.Config.CycleSeconds), cycleTime); err != nil {
		z.AppLog.Errorf("doCollection(): %s", err)
	}
	if err := z.stats.Counter(`dataPoints`,
		heartbeatTimeout, float64(dataPoints)); err != nil {
		z.AppLog.Errorf("doCollection(): %s", err)
	}
	if err := z.stats.Gauge(`cyclePoints`,
		heartbeatTimeout, float64(cyclePoints)); err != nil {
		z.AppLog.Errorf("doCollection(): %s", err)
	}

	metrics.GetOrRegisterGauge(`.cycle.seconds`,
		*z.Metrics).Update(int64(cycleTime))
	metrics.GetOrRegisterGauge(`.cycle.datapoints`,
		*z.Metrics).Update(cyclePoints)

	z.AppLog.Debugf("doCollection(): daemon stats cycle time is %.2f",
		cycleTime)
	z.AppLog.Debugf("doCollection(): daemon stats data points is %d",
		dataPoints)
	z.AppLog.Debugf("doCollection(): daemon stats end cycle is %d",
		cyclePoints)

	z.running = false
	if !z.Config.Cycle {
		z.oneShotDone = true
		return
	}
	z.cycleTimer.Reset(z.cycleInterval())
}

// heartbeat emits the daemon liveness event. The external supervisor
// considers the daemon stalled when no heartbeat arrives within three
// cycle lengths.
func (z *ZenJMX) heartbeat() {
	z.events.Send(event.Event{
		EventClass: `/Heartbeat`,
		Component:  DaemonName,
		Device:     z.Config.Monitor,
		Severity:   event.Clear,
		Summary:    `heartbeat`,
		Timeout:    z.Config.HeartbeatTimeout(),
	})
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
