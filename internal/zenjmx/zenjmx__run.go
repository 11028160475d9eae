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
	"github.com/solnx/zenjmx/internal/zenhub"
)

// run is the event loop of the orchestrator. All mutation of
// deviceConfigs, jmxConnUp and the threshold engine happens here;
// dispatched batches only report back through the batchDone channel.
func (z *ZenJMX) run() {

runloop:
	for {
		select {
		case <-z.Shutdown:
			goto drainloop

		case <-z.configTimer.C:
			z.refreshConfig()
			z.configTimer.Reset(z.configInterval())

		case <-z.cycleTimer.C:
			if z.running {
				// the previous cycle is still draining; skip this
				// tick, the timer is re-armed at drain completion
				z.AppLog.Errorln(`last collection is still running`)
				continue runloop
			}
			z.startCycle()

		case res := <-z.batchDone:
			z.completeBatch(res)

		case rec := <-z.pushUpdates():
			z.applyDeviceConfig(&rec)

		case deviceID := <-z.pushDeletes():
			z.deleteDevice(deviceID)
		}

		if z.oneShotDone {
			break runloop
		}
	}

drainloop:
	// wait for in-flight batches; their results are discarded
	for z.outstanding > 0 {
		res := <-z.batchDone
		z.outstanding--
		if res.err != nil {
			z.AppLog.Errorf("Discarding failed batch for %s: %s",
				res.device, res.err)
		}
	}
	z.cycleTimer.Stop()
	z.configTimer.Stop()
	// release the push listener goroutine before waiting on it
	if z.push != nil {
		z.push.Stop()
	}
	z.delay.Wait()
	close(z.Done)
}

// pushUpdates returns the config push channel, or nil (blocking
// forever) when no push listener is configured
func (z *ZenJMX) pushUpdates() chan zenhub.DeviceConfigRecord {
	if z.push == nil {
		return nil
	}
	return z.push.Updates
}

// pushDeletes returns the device deletion channel, or nil when no
// push listener is configured
func (z *ZenJMX) pushDeletes() chan string {
	if z.push == nil {
		return nil
	}
	return z.push.Deletes
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
