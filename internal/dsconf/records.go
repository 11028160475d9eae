/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package dsconf // import "github.com/solnx/zenjmx/internal/dsconf"

// Raw configuration records as supplied by the configuration service.
// They still contain unresolved substitution markers and datasources
// of all source types; BuildDeviceConfig turns them into a
// DeviceConfig.

// DeviceRecord describes one monitored device
type DeviceRecord struct {
	ID          string            `json:"id"`
	ManageIP    string            `json:"manageIp"`
	Path        string            `json:"path"`
	TemplateIDs []string          `json:"templates"`
	Properties  map[string]string `json:"properties"`
}

// ComponentRecord describes one monitored component of a device,
// carrying its own template bindings and storage path
type ComponentRecord struct {
	ID          string            `json:"id"`
	Path        string            `json:"path"`
	TemplateIDs []string          `json:"templates"`
	Properties  map[string]string `json:"properties"`
}

// TemplateRecord groups datasource and threshold definitions that are
// bound to devices or components
type TemplateRecord struct {
	ID          string             `json:"id"`
	DataSources []DataSourceRecord `json:"datasources"`
	Thresholds  []ThresholdRecord  `json:"thresholds"`
}

// DataSourceRecord is the unresolved definition of one datasource
type DataSourceRecord struct {
	ID         string `json:"id"`
	SourceType string `json:"sourcetype"`
	Enabled    bool   `json:"enabled"`
	EventClass string `json:"eventClass"`
	EventKey   string `json:"eventKey"`
	Component  string `json:"component"`
	Severity   int64  `json:"severity"`
	Timeout    int64  `json:"timeout"`

	JMXPort       string `json:"jmxPort"`
	JMXProtocol   string `json:"jmxProtocol"`
	JMXRawService string `json:"jmxRawService"`
	RMIContext    string `json:"rmiContext"`
	ObjectName    string `json:"objectName"`
	Authenticate  bool   `json:"authenticate"`
	Username      string `json:"username"`
	Password      string `json:"password"`

	AttributeName string `json:"attributeName"`
	AttributePath string `json:"attributePath"`

	OperationName       string `json:"operationName"`
	OperationParamTypes string `json:"operationParamTypes"`
	OperationParamVals  string `json:"operationParamValues"`

	DataPoints []DataPointRecord `json:"datapoints"`
}

// DataPointRecord is the storage definition of one datapoint
type DataPointRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	RRDType   string   `json:"rrdtype"`
	CreateCmd string   `json:"createCmd"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
}

// ThresholdRecord is the unresolved definition of a min/max threshold
// bound to datapoints by name
type ThresholdRecord struct {
	ID         string   `json:"id"`
	EventClass string   `json:"eventClass"`
	EventKey   string   `json:"eventKey"`
	Severity   int64    `json:"severity"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	DataPoints []string `json:"datapoints"`
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
