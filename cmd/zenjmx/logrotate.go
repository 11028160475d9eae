/*-
 * Copyright © 2017 Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package main // import "github.com/solnx/zenjmx/cmd/zenjmx"

import (
	"os"

	"github.com/client9/reopen"
	"github.com/sirupsen/logrus"
)

// logrotate reopens the logfile whenever a signal arrives on sigChan,
// so an external logrotate can move the file away and send USR2
func logrotate(sigChan chan os.Signal, logFH *reopen.FileWriter,
	logger *logrus.Logger) {
	for range sigChan {
		if err := logFH.Reopen(); err != nil {
			logger.Errorf("Error reopening logfile: %s", err)
			continue
		}
		logger.Infoln(`Reopened logfile after signal`)
	}
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
