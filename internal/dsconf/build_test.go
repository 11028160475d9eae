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
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder() *Builder {
	logger := logrus.New()
	logger.Out = io.Discard
	return &Builder{AppLog: logger}
}

func testDevice() DeviceRecord {
	return DeviceRecord{
		ID:          `dev01`,
		ManageIP:    `10.0.0.1`,
		Path:        `Devices/dev01`,
		TemplateIDs: []string{`Java`},
		Properties:  map[string]string{`zJmxManagementPort`: `12345`},
	}
}

func testTemplates() map[string]TemplateRecord {
	min := float64(0)
	return map[string]TemplateRecord{
		`Java`: {
			ID: `Java`,
			DataSources: []DataSourceRecord{
				{
					ID:            `heap`,
					SourceType:    SourceTypeJMX,
					Enabled:       true,
					EventClass:    `/Status/JMX`,
					Severity:      4,
					JMXPort:       `${here/zJmxManagementPort}`,
					JMXProtocol:   `RMI`,
					RMIContext:    `jmxrmi`,
					ObjectName:    `java.lang:type=Memory`,
					AttributeName: `HeapMemoryUsage`,
					AttributePath: `used`,
					DataPoints: []DataPointRecord{
						{ID: `heap_used`, Name: `used`,
							RRDType: `GAUGE`, Min: &min},
					},
				},
				{
					ID:         `disabled`,
					SourceType: SourceTypeJMX,
					Enabled:    false,
					JMXPort:    `12345`,
				},
				{
					ID:         `ping`,
					SourceType: `PING`,
					Enabled:    true,
				},
				{
					ID:            `gcTime`,
					SourceType:    SourceTypeJMX,
					Enabled:       true,
					JMXPort:       `${here/zJmxManagementPort}`,
					JMXProtocol:   `RMI`,
					RMIContext:    `jmxrmi`,
					ObjectName:    `java.lang:type=GarbageCollector`,
					OperationName: `getCollectionTime`,
					DataPoints: []DataPointRecord{
						{ID: `gc_time`, Name: `time`,
							RRDType: `DERIVE`},
					},
				},
			},
			Thresholds: []ThresholdRecord{
				{
					ID:         `heap high`,
					EventClass: `/Perf/Memory`,
					Severity:   3,
					DataPoints: []string{`used`},
				},
			},
		},
	}
}

func TestBuildDeviceConfig(t *testing.T) {
	cfg := testBuilder().BuildDeviceConfig(testDevice(), nil,
		testTemplates())
	require.NotNil(t, cfg)
	assert.Equal(t, `dev01`, cfg.ID)

	// enabled JMX datasources made it, disabled and foreign types
	// did not
	heap := cfg.FindDataSource(`heap`)
	require.NotNil(t, heap)
	assert.Nil(t, cfg.FindDataSource(`disabled`))
	assert.Nil(t, cfg.FindDataSource(`ping`))

	// the templated port resolved against the device properties,
	// device level datasources store under the device path
	assert.Equal(t, `12345`, heap.JMXPort)
	assert.Equal(t, `Devices/dev01`, heap.StoragePath)
	require.IsType(t, AttributeBinding{}, heap.Binding)
	assert.Equal(t, `HeapMemoryUsage`,
		heap.Binding.(AttributeBinding).AttributeName)

	// an operation name switches the binding type
	gc := cfg.FindDataSource(`gcTime`)
	require.NotNil(t, gc)
	require.IsType(t, OperationBinding{}, gc.Binding)
	assert.Equal(t, `getCollectionTime`,
		gc.Binding.(OperationBinding).OperationName)

	// both datasources share the connection and land in one batch
	assert.Len(t, cfg.DataSources, 1)
	assert.Len(t, cfg.DataSources[heap.ServerKey()], 2)

	// the template threshold is bound to the device storage path
	require.Len(t, cfg.Thresholds, 1)
	assert.Equal(t, []string{`Devices/dev01/used`},
		cfg.Thresholds[0].Paths)
}

func TestBuildDeviceConfigComponent(t *testing.T) {
	dev := testDevice()
	dev.TemplateIDs = nil

	components := []ComponentRecord{{
		ID:          `tomcat`,
		Path:        `Devices/dev01/apps/tomcat`,
		TemplateIDs: []string{`Java`},
		Properties:  map[string]string{`zJmxManagementPort`: `9999`},
	}}

	cfg := testBuilder().BuildDeviceConfig(dev, components,
		testTemplates())
	require.NotNil(t, cfg)

	heap := cfg.FindDataSource(`heap`)
	require.NotNil(t, heap)

	// component properties shadow device properties under here/,
	// and the component id overrides the datasource component
	assert.Equal(t, `9999`, heap.JMXPort)
	assert.Equal(t, `tomcat`, heap.Component)

	// datasource writes and thresholds bind to the same component
	// storage path
	assert.Equal(t, `Devices/dev01/apps/tomcat`, heap.StoragePath)
	require.Len(t, cfg.Thresholds, 1)
	assert.Equal(t, []string{`Devices/dev01/apps/tomcat/used`},
		cfg.Thresholds[0].Paths)
}

func TestBuildDeviceConfigUnresolved(t *testing.T) {
	dev := testDevice()
	dev.Properties = nil

	// both datasources carry an unresolvable port marker, leaving no
	// collection work for the device
	assert.Nil(t, testBuilder().BuildDeviceConfig(dev, nil,
		testTemplates()))
}

func TestBuildDeviceConfigEmpty(t *testing.T) {
	dev := testDevice()
	dev.TemplateIDs = []string{`NoSuchTemplate`}

	// a device without resolvable JMX work yields no config at all
	assert.Nil(t, testBuilder().BuildDeviceConfig(dev, nil,
		testTemplates()))
}

func TestBuildDeviceConfigIdempotent(t *testing.T) {
	b := testBuilder()
	first := b.BuildDeviceConfig(testDevice(), nil, testTemplates())
	second := b.BuildDeviceConfig(testDevice(), nil, testTemplates())
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first, second)
}

func TestResolveField(t *testing.T) {
	ctx := map[string]string{
		`dev/id`:   `dev01`,
		`here/ctx`: `jmxrmi`,
	}

	out, err := resolveField(`${dev/id}_${here/ctx}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, `dev01_jmxrmi`, out)

	out, err = resolveField(`plain`, ctx)
	require.NoError(t, err)
	assert.Equal(t, `plain`, out)

	_, err = resolveField(`${dev/missing}`, ctx)
	assert.Error(t, err)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
