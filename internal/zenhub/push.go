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
	"net/http"

	"github.com/sirupsen/logrus"
)

// PushListener accepts configuration push notifications from the hub
// on a loopback HTTP listener and forwards them into the
// orchestrator's input channels. An update replaces the device
// configuration wholesale, a delete removes it.
type PushListener struct {
	AppLog  *logrus.Logger
	Updates chan DeviceConfigRecord
	Deletes chan string
	// unexported
	srv *http.Server
}

// NewPushListener returns a PushListener bound to addr
func NewPushListener(addr string, appLog *logrus.Logger) *PushListener {
	p := &PushListener{
		AppLog:  appLog,
		Updates: make(chan DeviceConfigRecord, 16),
		Deletes: make(chan string, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(`/updateDeviceConfig`, p.handleUpdate)
	mux.HandleFunc(`/deleteDevice`, p.handleDelete)
	p.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return p
}

// Start serves until Stop is called
func (p *PushListener) Start() {
	if err := p.srv.ListenAndServe(); err != nil &&
		err != http.ErrServerClosed {
		p.AppLog.Errorf("PushListener, %s", err)
	}
}

// Stop shuts the listener down
func (p *PushListener) Stop() {
	p.srv.Close()
}

func (p *PushListener) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `method not allowed`, http.StatusMethodNotAllowed)
		return
	}
	rec := DeviceConfigRecord{}
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		p.AppLog.Errorf("PushListener, invalid update: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.AppLog.Debugf("PushListener, async update for device %s",
		rec.Device.ID)
	p.Updates <- rec
	w.WriteHeader(http.StatusNoContent)
}

func (p *PushListener) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `method not allowed`, http.StatusMethodNotAllowed)
		return
	}
	req := struct {
		DeviceID string `json:"deviceId"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		p.AppLog.Errorf("PushListener, invalid delete: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.AppLog.Debugf("PushListener, async delete for device %s",
		req.DeviceID)
	p.Deletes <- req.DeviceID
	w.WriteHeader(http.StatusNoContent)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
