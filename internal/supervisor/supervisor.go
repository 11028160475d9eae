/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package supervisor // import "github.com/solnx/zenjmx/internal/supervisor"

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/event"
)

// Lifecycle states of the helper process
const (
	StateStopped  = `stopped`
	StateStarting = `starting`
	StateRunning  = `running`
	StateCrashed  = `crashed`
	StateStopping = `stopping`
)

// fsm event names
const (
	evStart   = `start`
	evStarted = `started`
	evCrash   = `crash`
	evRestart = `restart`
	evStop    = `stop`
	evStopped = `stopped`
)

// Config holds the spawn parameters for the helper process
type Config struct {
	// Binary is the path of the helper executable
	Binary string
	// Cycle selects the runjmxenabled run mode; one-shot runs use run
	Cycle bool
	// ConfigFile is passed through as --configfile when set
	ConfigFile string
	// Port is passed through as -zenjmxjavaport when set
	Port int
	// LogSeverity is passed through as -v when set
	LogSeverity int
	// ConcurrentJMXCalls enables parallel queries inside the helper
	ConcurrentJMXCalls bool
	// Grace is the warmup delay between process start and RUNNING;
	// the helper needs time to open its RPC listener
	Grace time.Duration
	// RestartDelay is the fixed pause before a crash restart
	RestartDelay time.Duration
	// Monitor is the collector instance name used on process events
	Monitor string
	// Name is the daemon name used as event component
	Name string
}

// Supervisor owns the lifecycle of the external helper process:
// spawn, warmup, crash detection, restart with fixed delay, explicit
// stop
type Supervisor struct {
	AppLog *logrus.Logger
	Events event.Sink
	// unexported
	conf       Config
	machine    *fsm.FSM
	mu         sync.Mutex
	cmd        *exec.Cmd
	stopCalled bool
	retry      backoff.BackOff
}

// New returns a Supervisor in state stopped
func New(conf Config, appLog *logrus.Logger, sink event.Sink) *Supervisor {
	if conf.Grace == 0 {
		conf.Grace = 3 * time.Second
	}
	if conf.RestartDelay == 0 {
		conf.RestartDelay = time.Second
	}
	s := &Supervisor{
		AppLog: appLog,
		Events: sink,
		conf:   conf,
		retry:  backoff.NewConstantBackOff(conf.RestartDelay),
	}
	s.machine = fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: evStart, Src: []string{StateStopped}, Dst: StateStarting},
			{Name: evStarted, Src: []string{StateStarting}, Dst: StateRunning},
			{Name: evCrash, Src: []string{StateStarting, StateRunning}, Dst: StateCrashed},
			{Name: evRestart, Src: []string{StateCrashed}, Dst: StateStarting},
			{Name: evStop, Src: []string{StateStarting, StateRunning, StateCrashed}, Dst: StateStopping},
			{Name: evStopped, Src: []string{StateStopping}, Dst: StateStopped},
		},
		fsm.Callbacks{
			`enter_state`: func(_ context.Context, e *fsm.Event) {
				appLog.Debugf("Supervisor, %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return s
}

// State returns the current lifecycle state
func (s *Supervisor) State() string {
	return s.machine.Current()
}

// Running reports whether the helper is up and past its warmup delay.
// RPC calls are gated on this.
func (s *Supervisor) Running() bool {
	return s.machine.Is(StateRunning)
}

// Start brings up the helper process. A failing spawn is routed into
// the crash and restart handling like any later crash; an error is
// only returned when the supervisor is not in a startable state.
func (s *Supervisor) Start() error {
	if err := s.machine.Event(context.Background(), evStart); err != nil {
		return fmt.Errorf("supervisor: start: %w", err)
	}
	s.mu.Lock()
	s.stopCalled = false
	s.mu.Unlock()
	return s.spawn()
}

// args assembles the helper argument list: run mode token first, then
// the pass-through options
func (s *Supervisor) args() []string {
	mode := `run`
	if s.conf.Cycle {
		mode = `runjmxenabled`
	}
	args := []string{mode}
	if s.conf.ConfigFile != `` {
		args = append(args, `--configfile`, s.conf.ConfigFile)
	}
	if s.conf.Port != 0 {
		args = append(args, `-zenjmxjavaport`, strconv.Itoa(s.conf.Port))
	}
	if s.conf.LogSeverity != 0 {
		args = append(args, `-v`, strconv.Itoa(s.conf.LogSeverity))
	}
	if s.conf.ConcurrentJMXCalls {
		args = append(args, `-concurrentJMXCalls`)
	}
	return args
}

// spawn starts the helper and arms the warmup timer and the exit
// waiter
func (s *Supervisor) spawn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCalled {
		return nil
	}

	cmd := exec.Command(s.conf.Binary, s.args()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	s.AppLog.Infof("Supervisor, starting helper process %s %v",
		s.conf.Binary, s.args())
	if err := cmd.Start(); err != nil {
		s.onSpawnError(err)
		return nil
	}
	s.cmd = cmd

	time.AfterFunc(s.conf.Grace, func() { s.warmedUp(cmd) })
	go s.waiter(cmd)
	return nil
}

// warmedUp declares the helper running once the warmup delay passed
// without the process exiting
func (s *Supervisor) warmedUp(cmd *exec.Cmd) {
	s.mu.Lock()
	if s.cmd != cmd || s.stopCalled {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.machine.Event(context.Background(), evStarted); err != nil {
		return
	}
	s.AppLog.Infoln(`Supervisor, helper process is up`)
	s.Events.Send(event.Event{
		EventClass: event.ClassStatusJMX,
		Component:  s.conf.Name,
		Device:     s.conf.Monitor,
		Severity:   event.Clear,
		Summary:    `zenjmxjava started`,
	})
}

// waiter reaps the helper and drives the crash handling. Runs as its
// own goroutine per spawned process.
func (s *Supervisor) waiter(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	stopped := s.stopCalled
	s.mu.Unlock()

	if stopped {
		s.machine.Event(context.Background(), evStopped)
		return
	}

	reason := `exit status 0`
	if err != nil {
		reason = err.Error()
	}
	s.crashed(reason)
}

// onSpawnError handles a helper that could not be started at all; it
// is treated like a crash so the restart loop keeps trying
func (s *Supervisor) onSpawnError(err error) {
	s.AppLog.Errorf("Supervisor, spawn failed: %s", err)
	go s.crashed(err.Error())
}

// crashed emits the crash warning and schedules the restart
func (s *Supervisor) crashed(reason string) {
	if err := s.machine.Event(context.Background(), evCrash); err != nil {
		return
	}
	s.AppLog.Warnf("Supervisor, helper process ended unexpectedly: %s",
		reason)
	s.Events.Send(event.Event{
		EventClass: event.ClassStatusJMX,
		Component:  s.conf.Name,
		Device:     s.conf.Monitor,
		Severity:   event.Warning,
		Summary:    `zenjmxjava ended unexpectedly: ` + reason,
	})

	wait := s.retry.NextBackOff()
	s.AppLog.Infof("Supervisor, restarting helper process in %s", wait)
	time.AfterFunc(wait, func() {
		if err := s.machine.Event(context.Background(), evRestart); err != nil {
			return
		}
		s.spawn()
	})
}

// Stop terminates the helper process. It is idempotent; calling it
// twice or with no process running is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopCalled {
		s.mu.Unlock()
		return
	}
	s.stopCalled = true
	cmd := s.cmd
	s.mu.Unlock()

	if err := s.machine.Event(context.Background(), evStop); err != nil {
		// never started or already stopped
		return
	}
	s.AppLog.Infoln(`Supervisor, stopping helper process`)
	if cmd != nil {
		if err := cmd.Process.Kill(); err != nil {
			s.AppLog.Debugf("Supervisor, kill: %s", err)
		}
	}
	// the handle is released here; the waiter merely reaps the exit
	s.machine.Event(context.Background(), evStopped)
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
