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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xmlrpc "github.com/mattn/go-xmlrpc"
	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/dsconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

func TestGetDefaultRRDCreateCommand(t *testing.T) {
	var method string
	ts := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body),
				`getDefaultRRDCreateCommand`) {
				method = `getDefaultRRDCreateCommand`
			}
			w.Header().Set(`Content-Type`, `text/xml`)
			io.WriteString(w, `<?xml version="1.0"?>`+
				`<methodResponse><params><param><value>`+
				`<string>RRA:AVERAGE:0.5:1:600</string>`+
				`</value></param></params></methodResponse>`)
		}))
	defer ts.Close()

	c := NewClient(ts.URL, time.Second)
	cmd, err := c.GetDefaultRRDCreateCommand()
	require.NoError(t, err)
	assert.Equal(t, `RRA:AVERAGE:0.5:1:600`, cmd)
	assert.Equal(t, `getDefaultRRDCreateCommand`, method)
}

func TestDecodeDeviceConfigs(t *testing.T) {
	// the hub response arrives as generic XML-RPC containers
	resp := xmlrpc.Array{
		xmlrpc.Struct{
			`device`: xmlrpc.Struct{
				`id`:        `dev01`,
				`manageIp`:  `10.0.0.1`,
				`path`:      `Devices/dev01`,
				`templates`: xmlrpc.Array{`Java`},
			},
			`templates`: xmlrpc.Struct{
				`Java`: xmlrpc.Struct{
					`id`: `Java`,
					`datasources`: xmlrpc.Array{
						xmlrpc.Struct{
							`id`:         `heap`,
							`sourcetype`: `JMX`,
							`enabled`:    true,
							`jmxPort`:    `12345`,
							`severity`:   4,
						},
					},
				},
			},
		},
	}

	records := []DeviceConfigRecord{}
	require.NoError(t, decode(resp, &records))
	require.Len(t, records, 1)

	assert.Equal(t, `dev01`, records[0].Device.ID)
	assert.Equal(t, []string{`Java`}, records[0].Device.TemplateIDs)

	tpl, ok := records[0].Templates[`Java`]
	require.True(t, ok)
	require.Len(t, tpl.DataSources, 1)
	assert.Equal(t, `heap`, tpl.DataSources[0].ID)
	assert.True(t, tpl.DataSources[0].Enabled)
	assert.Equal(t, int64(4), tpl.DataSources[0].Severity)
}

func TestDecodeThresholds(t *testing.T) {
	resp := xmlrpc.Array{
		xmlrpc.Struct{
			`id`:         `cycle slow`,
			`eventClass`: `/Perf/Snmp`,
			`severity`:   3,
			`max`:        600.0,
			`datapoints`: xmlrpc.Array{`cycleTime`},
		},
	}

	records := []dsconf.ThresholdRecord{}
	require.NoError(t, decode(resp, &records))
	require.Len(t, records, 1)
	assert.Equal(t, `cycle slow`, records[0].ID)
	require.NotNil(t, records[0].Max)
	assert.Equal(t, 600.0, *records[0].Max)
	assert.Nil(t, records[0].Min)
	assert.Equal(t, []string{`cycleTime`}, records[0].DataPoints)
}

func TestPushListenerUpdate(t *testing.T) {
	p := NewPushListener(`127.0.0.1:0`, testLogger())

	req := httptest.NewRequest(http.MethodPost, `/updateDeviceConfig`,
		strings.NewReader(`{"device":{"id":"dev01",`+
			`"manageIp":"10.0.0.1"}}`))
	w := httptest.NewRecorder()
	p.handleUpdate(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	select {
	case rec := <-p.Updates:
		assert.Equal(t, `dev01`, rec.Device.ID)
		assert.Equal(t, `10.0.0.1`, rec.Device.ManageIP)
	default:
		t.Fatal(`expected an update on the channel`)
	}
}

func TestPushListenerDelete(t *testing.T) {
	p := NewPushListener(`127.0.0.1:0`, testLogger())

	req := httptest.NewRequest(http.MethodPost, `/deleteDevice`,
		strings.NewReader(`{"deviceId":"dev01"}`))
	w := httptest.NewRecorder()
	p.handleDelete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	select {
	case id := <-p.Deletes:
		assert.Equal(t, `dev01`, id)
	default:
		t.Fatal(`expected a delete on the channel`)
	}
}

func TestPushListenerRejects(t *testing.T) {
	p := NewPushListener(`127.0.0.1:0`, testLogger())

	// wrong method
	req := httptest.NewRequest(http.MethodGet, `/updateDeviceConfig`, nil)
	w := httptest.NewRecorder()
	p.handleUpdate(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	// broken payload
	req = httptest.NewRequest(http.MethodPost, `/updateDeviceConfig`,
		strings.NewReader(`{broken`))
	w = httptest.NewRecorder()
	p.handleUpdate(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
