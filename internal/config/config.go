/*-
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 * Written by Jörg Pernfuß <joerg.pernfuss@1und1.de>
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package config // import "github.com/solnx/zenjmx/internal/config"

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"

	ucl "github.com/nahanni/go-ucl"
)

// DaemonConfig is the runtime configuration of the zenjmx daemon
type DaemonConfig struct {
	LogPath   string `json:"log.path"`
	LogFile   string `json:"log.file"`
	LogLevel  string `json:"log.level"`
	LogRotate bool   `json:"log.rotate.on.usr2,string"`

	HubURI       string `json:"hub.uri"`
	HubTimeoutMs int    `json:"hub.timeout.ms,string"`
	PushListen   string `json:"hub.push.listen"`

	EventURI       string `json:"eventapi.uri"`
	EventTimeoutMs int    `json:"eventapi.timeout.ms,string"`
	EventQueueLen  int    `json:"eventapi.queue.length,string"`

	StoragePath string `json:"storage.path"`

	JavaBinary         string `json:"collector.binary"`
	JavaPort           int    `json:"collector.port,string"`
	JavaTimeoutMs      int    `json:"collector.timeout.ms,string"`
	JavaConfigFile     string `json:"collector.configfile"`
	JavaLogSeverity    int    `json:"collector.severity,string"`
	ConcurrentJMXCalls bool   `json:"collector.concurrent.jmx.calls,string"`

	CycleSeconds       int `json:"collection.cycle.seconds,string"`
	ConfigCycleMinutes int `json:"collection.configcycle.minutes,string"`
	Parallel           int `json:"collection.parallel,string"`

	Monitor        string `json:"misc.monitor"`
	InstanceName   string `json:"misc.instance.name"`
	ProduceMetrics bool   `json:"misc.produce.metrics,string"`
	TestMode       bool   `json:"misc.testmode,string"`

	GraphiteHost          string `json:"graphite.host"`
	GraphitePort          string `json:"graphite.port"`
	GraphitePrefix        string `json:"graphite.prefix"`
	GraphiteFlushInterval int64  `json:"graphite.flush.interval.seconds,string"`

	// set from command line options, not the configuration file
	Device string `json:"-"`
	Cycle  bool   `json:"-"`
}

// FromFile loads the configuration from a UCL format file
func (c *DaemonConfig) FromFile(fname string) error {
	file, err := ioutil.ReadFile(fname)
	if err != nil {
		return err
	}

	log.Printf("Loading configuration from %s", fname)

	// UCL parses into map[string]interface{}
	fileBytes := bytes.NewBuffer([]byte(file))
	parser := ucl.NewParser(fileBytes)
	uclData, err := parser.Ucl()
	if err != nil {
		return err
	}

	// take detour via JSON to load UCL into struct
	uclJSON, err := json.Marshal(uclData)
	if err != nil {
		return err
	}
	if err = json.Unmarshal([]byte(uclJSON), &c); err != nil {
		return err
	}
	c.applyDefaults()
	return nil
}

// applyDefaults fills unset fields with their default values
func (c *DaemonConfig) applyDefaults() {
	if c.LogFile == `` {
		c.LogFile = `zenjmx.log`
	}
	if c.HubTimeoutMs == 0 {
		c.HubTimeoutMs = 60000
	}
	if c.EventTimeoutMs == 0 {
		c.EventTimeoutMs = 5000
	}
	if c.EventQueueLen == 0 {
		c.EventQueueLen = 256
	}
	if c.JavaPort == 0 {
		c.JavaPort = 9988
	}
	if c.JavaTimeoutMs == 0 {
		c.JavaTimeoutMs = 60000
	}
	if c.CycleSeconds == 0 {
		c.CycleSeconds = 300
	}
	if c.ConfigCycleMinutes == 0 {
		c.ConfigCycleMinutes = 20
	}
	if c.Parallel == 0 {
		c.Parallel = 200
	}
	if c.Monitor == `` {
		c.Monitor = `localhost`
	}
	if c.StoragePath == `` {
		c.StoragePath = `perf/zenjmx.db`
	}
}

// HeartbeatTimeout is the lapse window of the daemon's liveness
// heartbeat, three collection cycles
func (c *DaemonConfig) HeartbeatTimeout() int64 {
	return int64(c.CycleSeconds) * 3
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
