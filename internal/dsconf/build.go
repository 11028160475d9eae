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
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/threshold"
)

// ErrResolve is returned when a templated configuration field contains
// a substitution marker that cannot be resolved against the device or
// component context
type ErrResolve struct {
	Device string
	Source string
	Field  string
	Value  string
}

// Error implements error
func (e *ErrResolve) Error() string {
	return fmt.Sprintf("device %s datasource %s:"+
		" cannot resolve field %s value %q",
		e.Device, e.Source, e.Field, e.Value)
}

var reSubst = regexp.MustCompile(`\$\{([a-z]+)/([A-Za-z0-9_]+)\}`)

// Builder constructs DeviceConfig objects from raw configuration
// records
type Builder struct {
	AppLog *logrus.Logger
}

// BuildDeviceConfig walks the templates assigned to the device and its
// components, collects the enabled JMX datasources, resolves templated
// fields and emits a fully resolved DeviceConfig. It returns nil when
// no datasource resolves; absence of a config means no work, not an
// error. A datasource whose fields fail to resolve is skipped and
// logged, the rest of the device is unaffected.
func (b *Builder) BuildDeviceConfig(dev DeviceRecord,
	components []ComponentRecord,
	templates map[string]TemplateRecord) *DeviceConfig {

	cfg := NewDeviceConfig(dev.ID, dev.ManageIP, dev.Path)

	devCtx := substContext(dev.ID, dev.ManageIP, dev.Properties, nil)
	b.applyTemplates(cfg, dev, dev.TemplateIDs, templates,
		devCtx, ``, dev.Path)

	for i := range components {
		comp := components[i]
		ctx := substContext(dev.ID, dev.ManageIP, dev.Properties,
			comp.Properties)
		path := comp.Path
		if path == `` {
			path = dev.Path
		}
		b.applyTemplates(cfg, dev, comp.TemplateIDs, templates,
			ctx, comp.ID, path)
	}

	if cfg.Empty() {
		return nil
	}
	return cfg
}

// applyTemplates adds the datasources and thresholds of the given
// templates to cfg, using ctx for field resolution. component is empty
// for device level templates.
func (b *Builder) applyTemplates(cfg *DeviceConfig, dev DeviceRecord,
	templateIDs []string, templates map[string]TemplateRecord,
	ctx map[string]string, component, path string) {

	for _, tplID := range templateIDs {
		tpl, ok := templates[tplID]
		if !ok {
			b.AppLog.Warnf("ConfigBuild, device %s references"+
				" unknown template %s", dev.ID, tplID)
			continue
		}

		hasJMX := false
		for i := range tpl.DataSources {
			rec := tpl.DataSources[i]
			if !rec.Enabled || rec.SourceType != SourceTypeJMX {
				continue
			}
			ds, err := b.resolveDataSource(dev, rec, ctx,
				component, path)
			if err != nil {
				b.AppLog.Errorf("ConfigBuild, %s", err.Error())
				continue
			}
			cfg.Add(ds)
			hasJMX = true
		}

		// thresholds of a template only apply when the template
		// contributed collection work in this context
		if !hasJMX {
			continue
		}
		for i := range tpl.Thresholds {
			cfg.Thresholds = append(cfg.Thresholds,
				thresholdInstance(tpl.Thresholds[i], path))
		}
	}
}

// resolveDataSource turns one raw record into a DataSourceConfig bound
// to the device. path is the storage prefix of the owning device or
// component; writes and threshold checks both key off it.
func (b *Builder) resolveDataSource(dev DeviceRecord,
	rec DataSourceRecord, ctx map[string]string,
	component, path string) (*DataSourceConfig, error) {

	fields := map[string]*string{
		`jmxPort`:       &rec.JMXPort,
		`jmxProtocol`:   &rec.JMXProtocol,
		`jmxRawService`: &rec.JMXRawService,
		`rmiContext`:    &rec.RMIContext,
		`objectName`:    &rec.ObjectName,
		`username`:      &rec.Username,
		`password`:      &rec.Password,
		`attributeName`: &rec.AttributeName,
		`attributePath`: &rec.AttributePath,
		`operationName`: &rec.OperationName,
		`eventKey`:      &rec.EventKey,
		`component`:     &rec.Component,
	}
	for name, val := range fields {
		resolved, err := resolveField(*val, ctx)
		if err != nil {
			return nil, &ErrResolve{
				Device: dev.ID,
				Source: rec.ID,
				Field:  name,
				Value:  *val,
			}
		}
		*val = resolved
	}

	ds := &DataSourceConfig{
		Device:        dev.ID,
		ManageIP:      dev.ManageIP,
		DatasourceID:  rec.ID,
		Component:     rec.Component,
		StoragePath:   path,
		EventClass:    rec.EventClass,
		EventKey:      rec.EventKey,
		Severity:      rec.Severity,
		Timeout:       rec.Timeout,
		JMXPort:       rec.JMXPort,
		JMXProtocol:   rec.JMXProtocol,
		JMXRawService: rec.JMXRawService,
		RMIContext:    rec.RMIContext,
		ObjectName:    rec.ObjectName,
		Authenticate:  rec.Authenticate,
		Username:      rec.Username,
		Password:      rec.Password,
		RRDConfig:     make(map[string]RRDConfig),
	}
	if component != `` {
		ds.Component = component
	}

	switch {
	case rec.OperationName != ``:
		ds.Binding = OperationBinding{
			OperationName: rec.OperationName,
			ParamTypes:    rec.OperationParamTypes,
			ParamValues:   rec.OperationParamVals,
		}
	default:
		ds.Binding = AttributeBinding{
			AttributeName: rec.AttributeName,
			AttributePath: rec.AttributePath,
		}
	}

	for i := range rec.DataPoints {
		dp := rec.DataPoints[i]
		ds.RRDConfig[dp.ID] = RRDConfig{
			DPName:      dp.Name,
			DataPointID: dp.ID,
			RRDType:     dp.RRDType,
			CreateCmd:   dp.CreateCmd,
			Min:         dp.Min,
			Max:         dp.Max,
		}
	}
	return ds, nil
}

// thresholdInstance binds a threshold record to the storage paths of
// its datapoints
func thresholdInstance(rec ThresholdRecord, path string) threshold.MinMax {
	paths := make([]string, 0, len(rec.DataPoints))
	for _, dp := range rec.DataPoints {
		paths = append(paths, path+`/`+dp)
	}
	return threshold.MinMax{
		ID:         rec.ID,
		EventClass: rec.EventClass,
		EventKey:   rec.EventKey,
		Severity:   rec.Severity,
		Min:        rec.Min,
		Max:        rec.Max,
		Paths:      paths,
	}
}

// substContext assembles the resolution context for templated fields.
// Device attributes are reachable as dev/<name>, the local context as
// here/<name>. For device level templates both prefixes resolve to
// the device.
func substContext(devID, manageIP string,
	devProps, compProps map[string]string) map[string]string {

	ctx := map[string]string{
		`dev/id`:        devID,
		`dev/manageIp`:  manageIP,
		`here/id`:       devID,
		`here/manageIp`: manageIP,
	}
	for k, v := range devProps {
		ctx[`dev/`+k] = v
		ctx[`here/`+k] = v
	}
	for k, v := range compProps {
		ctx[`here/`+k] = v
	}
	return ctx
}

// resolveField substitutes all ${prefix/name} markers in value. Values
// without a $ pass through untouched.
func resolveField(value string, ctx map[string]string) (string, error) {
	if !strings.Contains(value, `$`) {
		return value, nil
	}
	var missing bool
	resolved := reSubst.ReplaceAllStringFunc(value, func(m string) string {
		parts := reSubst.FindStringSubmatch(m)
		if v, ok := ctx[parts[1]+`/`+parts[2]]; ok {
			return v
		}
		missing = true
		return m
	})
	if missing || strings.Contains(resolved, `${`) {
		return ``, fmt.Errorf("unresolved substitution in %q", value)
	}
	return resolved, nil
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
