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
	xmlrpc "github.com/mattn/go-xmlrpc"
	"github.com/solnx/zenjmx/internal/dsconf"
)

// Descriptor flattens a datasource configuration into the primitive
// map sent to the helper process. The field set is enumerated
// explicitly; the nested datapoint configuration is compacted into the
// parallel dps/dptypes arrays, ordered by datapoint id so response
// arrays line up with the request.
func Descriptor(ds *dsconf.DataSourceConfig) xmlrpc.Struct {
	vals := xmlrpc.Struct{
		`device`:        ds.Device,
		`manageIp`:      ds.ManageIP,
		`datasourceId`:  ds.DatasourceID,
		`component`:     ds.Component,
		`eventClass`:    ds.EventClass,
		`eventKey`:      ds.EventKey,
		`severity`:      int(ds.Severity),
		`timeout`:       int(ds.Timeout),
		`jmxPort`:       ds.JMXPort,
		`jmxProtocol`:   ds.JMXProtocol,
		`jmxRawService`: ds.JMXRawService,
		`rmiContext`:    ds.RMIContext,
		`objectName`:    ds.ObjectName,
		`authenticate`:  ds.Authenticate,
		`username`:      ds.Username,
		`password`:      ds.Password,
	}

	switch binding := ds.Binding.(type) {
	case dsconf.AttributeBinding:
		vals[`attributeName`] = binding.AttributeName
		vals[`attributePath`] = binding.AttributePath
	case dsconf.OperationBinding:
		vals[`operationName`] = binding.OperationName
		vals[`operationParamTypes`] = binding.ParamTypes
		vals[`operationParamValues`] = binding.ParamValues
	}

	dps := xmlrpc.Array{}
	dptypes := xmlrpc.Array{}
	for _, rrdConf := range ds.SortedRRDConfigs() {
		dps = append(dps, rrdConf.DataPointID)
		dptypes = append(dptypes, rrdConf.RRDType)
	}
	vals[`dps`] = dps
	vals[`dptypes`] = dptypes

	return vals
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
