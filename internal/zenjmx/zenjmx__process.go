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
	"errors"
	"math"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/solnx/zenjmx/internal/collector"
	"github.com/solnx/zenjmx/internal/event"
	"github.com/solnx/zenjmx/internal/rrd"
)

// processResults routes the results of one batch: value results are
// written to the store and checked against thresholds, error results
// are forwarded as events. Connection health for the batch's mbean
// server is tracked here and clearing events are raised on a down to
// up transition.
func (z *ZenJMX) processResults(serverKey string, results []collector.Result) {
	for i := range results {
		res := results[i]

		if !res.IsError() {
			z.storeRRD(res.Device, res.DatasourceID, res.DPID, res.Value)

			if !z.jmxConnUp[serverKey] {
				z.events.Send(event.Event{
					EventClass: event.ClassStatusJMXConn,
					Severity:   event.Clear,
					Summary:    `Connection is up`,
					Device:     res.Device,
				})
			}
			z.jmxConnUp[serverKey] = true

			z.events.Send(z.clearEvent(&res))
			continue
		}

		// error result: forward the carried event; a connection
		// level error flips the health state to down
		z.AppLog.Debugf("processResults(): jmx error,"+
			" sending event for %s %s: %s",
			res.Device, res.DatasourceID, res.Summary)
		evt := z.createEvent(&res)
		evt.Severity = event.Error
		if res.Severity != 0 {
			evt.Severity = res.Severity
		}
		z.events.Send(evt)
		if res.EventClass == event.ClassStatusJMXConn {
			z.jmxConnUp[serverKey] = false
		}
	}
}

// clearEvent builds the clearing event for a good value result. The
// datasource configuration owns the attribution of its good state, a
// datasource without a configured event key correlates on its id.
func (z *ZenJMX) clearEvent(res *collector.Result) event.Event {
	evt := event.Event{
		EventClass: event.ClassStatusJMX,
		EventKey:   res.DatasourceID,
		Device:     res.Device,
		Severity:   event.Clear,
		Agent:      DaemonName,
	}
	if deviceConfig, ok := z.deviceConfigs[res.Device]; ok {
		if ds := deviceConfig.FindDataSource(res.DatasourceID); ds != nil {
			if ds.EventClass != `` {
				evt.EventClass = ds.EventClass
			}
			if ds.EventKey != `` {
				evt.EventKey = ds.EventKey
			}
			evt.Component = ds.Component
		}
	}
	return evt
}

// createEvent builds the correlation event for one result. Results
// without an event key default to their datasource id.
func (z *ZenJMX) createEvent(res *collector.Result) event.Event {
	evt := event.Event{
		EventClass: res.EventClass,
		EventKey:   res.EventKey,
		Component:  res.Component,
		Device:     res.Device,
		Summary:    res.Summary,
		Agent:      DaemonName,
	}
	if res.DatasourceID != `` && evt.EventKey == `` {
		evt.EventKey = res.DatasourceID
	}
	return evt
}

// storeRRD persists one datapoint value and runs the threshold checks
// on the effective value. A storage write failure is confined to this
// datapoint: it is logged, a degraded write event is raised, and the
// next cycle's write is the retry.
func (z *ZenJMX) storeRRD(deviceID, datasourceID, dpID string, value float64) {
	deviceConfig, ok := z.deviceConfigs[deviceID]
	if !ok {
		z.AppLog.Infof("No configuration for device %s found", deviceID)
		return
	}
	dsConfig := deviceConfig.FindDataSource(datasourceID)
	if dsConfig == nil {
		z.AppLog.Infof("No data source config found for"+
			" device %s datasource %s", deviceID, datasourceID)
		return
	}
	rrdConf, ok := dsConfig.RRDConfig[dpID]
	if !ok {
		z.AppLog.Infof("No RRD config found for device %s"+
			" datasource %s datapoint %s", deviceID, datasourceID, dpID)
		return
	}

	prefix := dsConfig.StoragePath
	if prefix == `` {
		prefix = deviceConfig.Path
	}
	dpPath := prefix + `/` + rrdConf.DPName
	createCmd := rrdConf.CreateCmd
	if createCmd == `` {
		createCmd = z.defaultCreate
	}

	current, err := z.store.Save(dpPath, value, rrdConf.RRDType,
		createCmd, rrdConf.Min, rrdConf.Max)
	if err != nil {
		if !errors.Is(err, rrd.ErrStorageWrite) {
			z.AppLog.Errorf("storeRRD(): %s", err)
			return
		}
		z.AppLog.Errorf("storeRRD(): %s", err)
		z.events.Send(event.Event{
			EventClass: event.ClassPerfSnmp,
			EventKey:   datasourceID + `|write`,
			Component:  dsConfig.Component,
			Device:     deviceID,
			Severity:   event.Warning,
			Summary:    `metric write failed: ` + dpPath,
		})
		return
	}
	metrics.GetOrRegisterMeter(`.datapoints.stored`,
		*z.Metrics).Mark(1)

	if math.IsNaN(current) {
		// no effective value yet, nothing to check
		return
	}

	for _, ev := range z.thresholds.Check(dpPath, time.Now(), current) {
		switch ev.EventKey {
		case ``:
			ev.EventKey = dsConfig.EventKey
		default:
			ev.EventKey = dsConfig.EventKey + `|` + ev.EventKey
		}
		ev.Component = dsConfig.Component
		ev.Device = deviceID
		z.events.Send(ev)
	}
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
