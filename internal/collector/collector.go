/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package collector // import "github.com/solnx/zenjmx/internal/collector"

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	xmlrpc "github.com/mattn/go-xmlrpc"
	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/dsconf"
)

// ErrUnavailable is returned when a collect call is attempted while
// the helper process is not running
var ErrUnavailable = errors.New(`collector: helper process not running`)

// Result is one entry of a collect response. Either a value result
// carrying DPID and Value, or an error result carrying Summary; the
// presence of Summary distinguishes the two.
type Result struct {
	Device       string
	DatasourceID string
	DPID         string
	Value        float64
	Summary      string
	EventClass   string
	EventKey     string
	Component    string
	Severity     int64
}

// IsError reports whether the result describes a collection failure
func (r *Result) IsError() bool {
	return r.Summary != ``
}

// Client calls the helper process over its loopback XML-RPC channel
type Client struct {
	AppLog *logrus.Logger
	// unexported
	rpc     *xmlrpc.Client
	running func() bool
}

// NewClient returns a Client for the helper listening on port. The
// running gate is consulted before every call so that calls fail fast
// while the helper is down or restarting.
func NewClient(port int, timeout time.Duration, running func() bool) *Client {
	c := xmlrpc.NewClient(fmt.Sprintf("http://localhost:%d/", port))
	c.HttpClient = &http.Client{Timeout: timeout}
	return &Client{
		rpc:     c,
		running: running,
	}
}

// Collect sends one batch of datasource descriptors to the helper and
// returns the per datasource results. A transport failure fails the
// whole batch; no partial results are returned.
func (c *Client) Collect(batch []*dsconf.DataSourceConfig) ([]Result, error) {
	if !c.running() {
		return nil, ErrUnavailable
	}

	configMaps := make(xmlrpc.Array, 0, len(batch))
	for i := range batch {
		configMaps = append(configMaps, Descriptor(batch[i]))
	}

	resp, err := c.rpc.Call(`zenjmx.collect`, configMaps)
	if err != nil {
		return nil, fmt.Errorf("collector: collect call: %w", err)
	}
	if c.AppLog != nil {
		c.AppLog.Debugf("Collector, collect returned %T", resp)
	}
	return parseResults(resp)
}

// parseResults decodes the collect response array
func parseResults(resp interface{}) ([]Result, error) {
	arr, ok := resp.(xmlrpc.Array)
	if !ok {
		return nil, fmt.Errorf(
			"collector: unexpected response type, want=xmlrpc.Array, got=%T",
			resp)
	}

	results := make([]Result, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(xmlrpc.Struct)
		if !ok {
			continue
		}

		var r Result
		for k, v := range s {
			switch k {
			case `device`:
				r.Device, _ = v.(string)
			case `datasourceId`:
				r.DatasourceID, _ = v.(string)
			case `dpId`:
				r.DPID, _ = v.(string)
			case `value`:
				r.Value = toFloat(v)
			case `summary`:
				r.Summary, _ = v.(string)
			case `eventClass`:
				r.EventClass, _ = v.(string)
			case `eventKey`:
				r.EventKey, _ = v.(string)
			case `component`:
				r.Component, _ = v.(string)
			case `severity`:
				r.Severity = int64(toFloat(v))
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
