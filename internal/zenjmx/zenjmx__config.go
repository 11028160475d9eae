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
	"strconv"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/solnx/zenjmx/internal/dsconf"
	"github.com/solnx/zenjmx/internal/threshold"
	"github.com/solnx/zenjmx/internal/zenhub"
)

// refreshConfig pulls the full configuration snapshot from the hub:
// storage defaults, property items, threshold class registry,
// collector level thresholds and the per device configuration
// records. Failures leave the previous configuration in place; the
// refresh timer is the retry.
func (z *ZenJMX) refreshConfig() {
	startTime := time.Now()
	z.AppLog.Debugln(`fetchConfig(): fetching config from hub`)

	createCmd, err := z.hub.GetDefaultRRDCreateCommand()
	if err != nil {
		z.AppLog.Errorf("fetchConfig(): %s", err)
		return
	}
	z.defaultCreate = createCmd

	items, err := z.hub.PropertyItems()
	if err != nil {
		z.AppLog.Errorf("fetchConfig(): %s", err)
		return
	}
	z.AppLog.Debugf("fetchConfig(): received %d property items",
		len(items))
	z.applyPropertyItems(items)

	classes, err := z.hub.GetThresholdClasses()
	if err != nil {
		z.AppLog.Errorf("fetchConfig(): %s", err)
		return
	}
	z.AppLog.Debugf("fetchConfig(): %d threshold classes registered",
		len(classes))

	collectorThresholds, err := z.hub.GetCollectorThresholds()
	if err != nil {
		z.AppLog.Errorf("fetchConfig(): %s", err)
		return
	}
	z.updateCollectorThresholds(collectorThresholds)

	var devices []string
	if z.Config.Device != `` {
		devices = []string{z.Config.Device}
	}
	records, err := z.hub.GetDeviceConfigs(devices)
	if err != nil {
		z.AppLog.Errorf("fetchConfig(): %s", err)
		return
	}
	if len(records) == 0 {
		z.AppLog.Infoln(`fetchConfig(): no configs returned from hub`)
	}
	for i := range records {
		z.applyDeviceConfig(&records[i])
	}

	configTime := time.Since(startTime).Seconds()
	if err = z.stats.Gauge(`configTime`,
		int64(z.configInterval().Seconds()), configTime); err != nil {
		z.AppLog.Errorf("fetchConfig(): %s", err)
	}
	metrics.GetOrRegisterGauge(`.config.fetch.seconds`,
		*z.Metrics).Update(int64(configTime))
	z.AppLog.Debugf("fetchConfig(): daemon stats config time is %.2f",
		configTime)
}

// applyPropertyItems folds hub side collector properties into the
// runtime configuration. Only properties the daemon understands are
// picked up; everything else is carried for the helper process.
func (z *ZenJMX) applyPropertyItems(items map[string]string) {
	if v, ok := items[`configCycleInterval`]; ok {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			z.AppLog.Warnf("fetchConfig(): invalid"+
				" configCycleInterval %q", v)
			return
		}
		if minutes != z.Config.ConfigCycleMinutes {
			z.AppLog.Infof("fetchConfig(): configCycleInterval"+
				" set to %d minutes", minutes)
			z.Config.ConfigCycleMinutes = minutes
		}
	}
}

// updateCollectorThresholds installs the threshold rules watching the
// daemon's own health metrics
func (z *ZenJMX) updateCollectorThresholds(records []dsconf.ThresholdRecord) {
	rules := make([]threshold.MinMax, 0, len(records))
	for i := range records {
		rec := records[i]
		paths := make([]string, 0, len(rec.DataPoints))
		for _, dp := range rec.DataPoints {
			paths = append(paths, z.stats.Prefix+`/`+dp)
		}
		rules = append(rules, threshold.MinMax{
			ID:         rec.ID,
			EventClass: rec.EventClass,
			EventKey:   rec.EventKey,
			Severity:   rec.Severity,
			Min:        rec.Min,
			Max:        rec.Max,
			Paths:      paths,
		})
	}
	z.thresholds.UpdateList(collectorOwner, rules)
}

// applyDeviceConfig builds and swaps in the configuration for one
// device. The whole DeviceConfig object is replaced in a single map
// update, so an in-flight batch sees either the old or the new
// config, never a partial one.
func (z *ZenJMX) applyDeviceConfig(rec *zenhub.DeviceConfigRecord) {
	key := rec.Device.ID

	// if the device option is set, only handle configs for that device
	if z.Config.Device != `` && z.Config.Device != key {
		z.AppLog.Infof("device option enabled for %s;"+
			" rejecting config for %s", z.Config.Device, key)
		return
	}
	z.AppLog.Debugf("updateConfig(): updating config for device %s", key)

	cfg := z.builder.BuildDeviceConfig(rec.Device, rec.Components,
		rec.Templates)
	if cfg == nil {
		// nothing to collect for this device
		z.deleteDevice(key)
		return
	}

	z.thresholds.UpdateList(key, cfg.Thresholds)
	z.deviceConfigs[key] = cfg
}

// deleteDevice removes a device and its thresholds
func (z *ZenJMX) deleteDevice(deviceID string) {
	z.AppLog.Debugf("deleteDevice(): %s", deviceID)
	delete(z.deviceConfigs, deviceID)
	z.thresholds.UpdateList(deviceID, nil)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
