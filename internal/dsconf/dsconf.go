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
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SourceTypeJMX is the datasource type handled by this daemon. Data
// sources of any other type are ignored during config construction.
const SourceTypeJMX = `JMX`

// ProtocolRMI is the JMX protocol whose connection identity includes
// the RMI context path
const ProtocolRMI = `RMI`

// RRDConfig is the storage configuration for a single datapoint. It is
// immutable once built.
type RRDConfig struct {
	DPName      string
	DataPointID string
	RRDType     string
	CreateCmd   string
	Min         *float64
	Max         *float64
}

// Binding is the source specific half of a datasource configuration,
// either an mbean attribute read or an mbean operation invocation
type Binding interface {
	Kind() string
}

// AttributeBinding reads an mbean attribute
type AttributeBinding struct {
	AttributeName string
	AttributePath string
}

// Kind implements Binding
func (AttributeBinding) Kind() string { return `attribute` }

// OperationBinding invokes an mbean operation
type OperationBinding struct {
	OperationName string
	ParamTypes    string
	ParamValues   string
}

// Kind implements Binding
func (OperationBinding) Kind() string { return `operation` }

// DataSourceConfig is one configured datasource instance on a device
// or device component. All fields are fixed after construction; a
// configuration change replaces the whole object.
type DataSourceConfig struct {
	Device       string
	ManageIP     string
	DatasourceID string
	Component    string
	StoragePath  string
	EventClass   string
	EventKey     string
	Severity     int64
	Timeout      int64

	JMXPort       string
	JMXProtocol   string
	JMXRawService string
	RMIContext    string
	ObjectName    string
	Authenticate  bool
	Username      string
	Password      string

	Binding   Binding
	RRDConfig map[string]RRDConfig
}

// ConnectionPropsKey is the identity of the remote mbean server
// connection described by this datasource. Two datasources with equal
// keys reach the same server with the same credentials and may share a
// connection.
//
// When a raw service URL is configured it is the identity. The
// credential segment is a one-way hash so the key can be logged, and
// it is omitted entirely while authentication is disabled so that
// stale credentials never split the key.
func (d *DataSourceConfig) ConnectionPropsKey() string {
	if d.JMXRawService != `` {
		return d.JMXRawService
	}

	components := []string{d.JMXProtocol}
	if d.JMXProtocol == ProtocolRMI {
		components = append(components, d.RMIContext)
	}
	components = append(components, d.JMXPort)
	if d.Authenticate {
		creds := sha256.Sum256([]byte(d.Username + d.Password))
		components = append(components, hex.EncodeToString(creds[:]))
	}
	return strings.Join(components, `:`)
}

// ServerKey identifies the mbean server of this datasource within the
// whole fleet. It is the dispatch grouping key and the connection
// health tracking key.
func (d *DataSourceConfig) ServerKey() string {
	return d.Device + d.ManageIP + d.ConnectionPropsKey()
}

// SortedRRDConfigs returns the datapoint configurations ordered by
// datapoint id. The collect request and response arrays line up
// positionally, so the order must be deterministic.
func (d *DataSourceConfig) SortedRRDConfigs() []RRDConfig {
	configs := make([]RRDConfig, 0, len(d.RRDConfig))
	for name := range d.RRDConfig {
		configs = append(configs, d.RRDConfig[name])
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].DataPointID < configs[j].DataPointID
	})
	return configs
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
