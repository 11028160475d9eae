/*-
 * Copyright © 2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package zenjmx // import "github.com/solnx/zenjmx/internal/zenjmx"

import (
	"fmt"
	"time"

	"github.com/mjolnir42/delay"
	"github.com/solnx/zenjmx/internal/dsconf"
	"github.com/solnx/zenjmx/internal/rrd"
	"github.com/solnx/zenjmx/internal/threshold"
	"github.com/solnx/zenjmx/internal/zenhub"
)

// Start sets up the ZenJMX orchestrator and enters the run loop
func (z *ZenJMX) Start() {
	if z.coll == nil || z.events == nil {
		z.Death <- fmt.Errorf(`Incorrectly set up orchestrator`)
		<-z.Shutdown
		close(z.Done)
		return
	}

	z.deviceConfigs = make(map[string]*dsconf.DeviceConfig)
	z.jmxConnUp = make(map[string]bool)
	z.thresholds = threshold.NewEngine()
	z.builder = &dsconf.Builder{AppLog: z.AppLog}
	z.delay = delay.New()
	z.batchDone = make(chan *batchResult, z.Config.Parallel)

	if z.store == nil {
		store, err := rrd.NewStore(z.Config.StoragePath, ``)
		if err != nil {
			z.Death <- err
			<-z.Shutdown
			close(z.Done)
			return
		}
		z.store = store
	}
	defer z.store.Close()
	z.stats = &rrd.Stats{
		Store:  z.store,
		Prefix: `Daemons/` + z.Config.Monitor + `/` + DaemonName,
	}

	if z.hub == nil {
		z.hub = zenhub.NewClient(z.Config.HubURI,
			time.Duration(z.Config.HubTimeoutMs)*time.Millisecond)
	}
	z.hub.AppLog = z.AppLog

	if z.Config.PushListen != `` {
		z.push = zenhub.NewPushListener(z.Config.PushListen, z.AppLog)
		z.delay.Use()
		go func() {
			defer z.delay.Done()
			z.push.Start()
		}()
		defer z.push.Stop()
	}

	// initial configuration load, then the first collection cycle
	// starts immediately
	z.refreshConfig()
	z.configTimer = time.NewTimer(z.configInterval())
	z.cycleTimer = time.NewTimer(0)

	z.run()
}

// configInterval returns the configuration refresh period
func (z *ZenJMX) configInterval() time.Duration {
	return time.Duration(z.Config.ConfigCycleMinutes) * time.Minute
}

// cycleInterval returns the collection cycle period
func (z *ZenJMX) cycleInterval() time.Duration {
	return time.Duration(z.Config.CycleSeconds) * time.Second
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
