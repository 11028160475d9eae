/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package zenhub // import "github.com/solnx/zenjmx/internal/zenhub"

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	xmlrpc "github.com/mattn/go-xmlrpc"
	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/dsconf"
)

// DeviceConfigRecord is the configuration bundle the hub delivers for
// one monitored device
type DeviceConfigRecord struct {
	Device     dsconf.DeviceRecord              `json:"device"`
	Components []dsconf.ComponentRecord         `json:"components"`
	Templates  map[string]dsconf.TemplateRecord `json:"templates"`
}

// Client fetches collection configuration from the hub's XML-RPC
// service
type Client struct {
	AppLog *logrus.Logger
	// unexported
	rpc *xmlrpc.Client
}

// NewClient returns a Client for the hub at uri
func NewClient(uri string, timeout time.Duration) *Client {
	c := xmlrpc.NewClient(uri)
	c.HttpClient = &http.Client{Timeout: timeout}
	return &Client{rpc: c}
}

// GetDefaultRRDCreateCommand returns the storage create parameter
// descriptor used for datapoints that carry none of their own
func (c *Client) GetDefaultRRDCreateCommand() (string, error) {
	resp, err := c.rpc.Call(`getDefaultRRDCreateCommand`)
	if err != nil {
		return ``, fmt.Errorf("zenhub: getDefaultRRDCreateCommand: %w", err)
	}
	cmd, ok := resp.(string)
	if !ok {
		return ``, fmt.Errorf(
			"zenhub: unexpected response type, want=string, got=%T", resp)
	}
	return cmd, nil
}

// PropertyItems returns the collector property defaults
func (c *Client) PropertyItems() (map[string]string, error) {
	resp, err := c.rpc.Call(`propertyItems`)
	if err != nil {
		return nil, fmt.Errorf("zenhub: propertyItems: %w", err)
	}
	s, ok := resp.(xmlrpc.Struct)
	if !ok {
		return nil, fmt.Errorf(
			"zenhub: unexpected response type, want=xmlrpc.Struct, got=%T",
			resp)
	}
	items := make(map[string]string, len(s))
	for k, v := range s {
		items[k] = fmt.Sprint(v)
	}
	return items, nil
}

// GetThresholdClasses returns the registered threshold class names
func (c *Client) GetThresholdClasses() ([]string, error) {
	resp, err := c.rpc.Call(`getThresholdClasses`)
	if err != nil {
		return nil, fmt.Errorf("zenhub: getThresholdClasses: %w", err)
	}
	arr, ok := resp.(xmlrpc.Array)
	if !ok {
		return nil, fmt.Errorf(
			"zenhub: unexpected response type, want=xmlrpc.Array, got=%T",
			resp)
	}
	classes := make([]string, 0, len(arr))
	for _, item := range arr {
		if name, ok := item.(string); ok {
			classes = append(classes, name)
		}
	}
	return classes, nil
}

// GetCollectorThresholds returns the threshold rules bound to the
// daemon's own health metrics
func (c *Client) GetCollectorThresholds() ([]dsconf.ThresholdRecord, error) {
	resp, err := c.rpc.Call(`getCollectorThresholds`)
	if err != nil {
		return nil, fmt.Errorf("zenhub: getCollectorThresholds: %w", err)
	}
	records := []dsconf.ThresholdRecord{}
	if err = decode(resp, &records); err != nil {
		return nil, fmt.Errorf("zenhub: getCollectorThresholds: %w", err)
	}
	return records, nil
}

// GetDeviceConfigs returns the configuration records for the given
// devices, or the whole monitor when deviceIDs is empty
func (c *Client) GetDeviceConfigs(deviceIDs []string) ([]DeviceConfigRecord, error) {
	ids := xmlrpc.Array{}
	for _, id := range deviceIDs {
		ids = append(ids, id)
	}
	resp, err := c.rpc.Call(`getDeviceConfigs`, ids)
	if err != nil {
		return nil, fmt.Errorf("zenhub: getDeviceConfigs: %w", err)
	}
	records := []DeviceConfigRecord{}
	if err = decode(resp, &records); err != nil {
		return nil, fmt.Errorf("zenhub: getDeviceConfigs: %w", err)
	}
	return records, nil
}

// decode loads a generic XML-RPC response into a typed record via the
// JSON detour
func decode(resp, target interface{}) error {
	buf, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, target)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
