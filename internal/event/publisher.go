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
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mjolnir42/delay"
	"github.com/rcrowley/go-metrics"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	resty "gopkg.in/resty.v1"
)

// Publisher forwards events to the event processing API via HTTP POST
type Publisher struct {
	Input    chan Event
	Shutdown chan struct{}
	AppLog   *logrus.Logger
	Metrics  *metrics.Registry
	// unexported
	client      *resty.Client
	destination string
	timeout     time.Duration
	delay       *delay.Delay
}

// NewPublisher returns a Publisher that posts events to uri
func NewPublisher(uri string, timeoutMsec int, queueLen int) *Publisher {
	return &Publisher{
		Input:       make(chan Event, queueLen),
		Shutdown:    make(chan struct{}),
		client:      resty.New(),
		destination: uri,
		timeout:     time.Duration(timeoutMsec) * time.Millisecond,
		delay:       delay.New(),
	}
}

// Send implements Sink. It never blocks the caller; if the queue is
// full the event is dropped and counted. Events are given a tracking
// id on their way into the queue.
func (p *Publisher) Send(ev Event) {
	if ev.EvID == `` {
		ev.EvID = uuid.NewV4().String()
	}
	select {
	case p.Input <- ev.Stamp():
	default:
		if p.Metrics != nil {
			metrics.GetOrRegisterMeter(`.events.dropped`,
				*p.Metrics).Mark(1)
		}
		if p.AppLog != nil {
			p.AppLog.Warnf("Publisher, queue full,"+
				" dropped event %s for %s",
				ev.EventClass, ev.Device)
		}
	}
}

// Start runs the publisher loop until Shutdown is closed, then drains
// the input queue
func (p *Publisher) Start() {
runloop:
	for {
		select {
		case <-p.Shutdown:
			break runloop
		case ev := <-p.Input:
			p.post(ev)
		}
	}

drainloop:
	for {
		select {
		case ev := <-p.Input:
			p.post(ev)
		default:
			break drainloop
		}
	}
	p.delay.Wait()
}

// post sends one event to the event API. A failed request is retried
// once after a short pause, then the event is dropped with an error
// logline.
func (p *Publisher) post(ev Event) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		if lastErr = p.postOnce(ev); lastErr == nil {
			if p.Metrics != nil {
				metrics.GetOrRegisterMeter(`.events.sent`,
					*p.Metrics).Mark(1)
			}
			return
		}
	}
	if p.Metrics != nil {
		metrics.GetOrRegisterMeter(`.events.failed`,
			*p.Metrics).Mark(1)
	}
	if p.AppLog != nil {
		p.AppLog.Errorf("Publisher, ERROR sending event %s for %s: %s",
			ev.EventClass, ev.Device, lastErr)
	}
}

func (p *Publisher) postOnce(ev Event) error {
	b := new(bytes.Buffer)
	evSlice := []Event{ev}
	if err := json.NewEncoder(b).Encode(evSlice); err != nil {
		return err
	}
	r := p.client.SetTimeout(p.timeout).R()
	resp, err := r.SetBody(b.Bytes()).
		Post(p.destination)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 209 {
		return fmt.Errorf("event API returncode %d: %s",
			resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
