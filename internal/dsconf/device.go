/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package dsconf // import "github.com/solnx/zenjmx/internal/dsconf"

import (
	"github.com/solnx/zenjmx/internal/threshold"
)

// DeviceConfig is the complete collection configuration for one
// monitored device. Datasources are bucketed by ServerKey so that all
// work against one mbean server is dispatched as one batch.
type DeviceConfig struct {
	ID          string
	ManageIP    string
	Path        string
	Thresholds  []threshold.MinMax
	DataSources map[string][]*DataSourceConfig
}

// NewDeviceConfig returns an empty configuration for a device
func NewDeviceConfig(id, manageIP, path string) *DeviceConfig {
	return &DeviceConfig{
		ID:          id,
		ManageIP:    manageIP,
		Path:        path,
		Thresholds:  []threshold.MinMax{},
		DataSources: make(map[string][]*DataSourceConfig),
	}
}

// Add appends a datasource to its connection bucket
func (c *DeviceConfig) Add(ds *DataSourceConfig) {
	key := ds.ServerKey()
	c.DataSources[key] = append(c.DataSources[key], ds)
}

// FindDataSource returns the datasource with the given id or nil
func (c *DeviceConfig) FindDataSource(datasourceID string) *DataSourceConfig {
	for key := range c.DataSources {
		for _, ds := range c.DataSources[key] {
			if ds.DatasourceID == datasourceID {
				return ds
			}
		}
	}
	return nil
}

// Empty reports whether the device has no collection work configured
func (c *DeviceConfig) Empty() bool {
	return len(c.DataSources) == 0
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
