/*-
 * Copyright © 2016,2017 Jörg Pernfuß <code.jpe@gmail.com>
 * Copyright © 2016, 1&1 Internet SE
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package main // import "github.com/solnx/zenjmx/cmd/zenjmx"

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/client9/reopen"
	graphite "github.com/cyberdelia/go-metrics-graphite"
	"github.com/mjolnir42/delay"
	"github.com/mjolnir42/limit"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/solnx/zenjmx/internal/collector"
	"github.com/solnx/zenjmx/internal/config"
	"github.com/solnx/zenjmx/internal/event"
	"github.com/solnx/zenjmx/internal/supervisor"
	"github.com/solnx/zenjmx/internal/zenjmx"
)

var githash, shorthash, builddate, buildtime string

func init() {
	// redirect go default logger to /dev/null
	log.SetOutput(ioutil.Discard)
}

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

func main() {
	var (
		err         error
		configFlag  string
		logFH       *reopen.FileWriter
		versionFlag bool
		deviceFlag  string
		cycleFlag   bool
		cycletime   int
		javaport    int
		parallel    int
		concurrent  bool
	)
	flag.StringVar(&configFlag, `config`, `zenjmx.conf`,
		`Configuration file location`)
	flag.BoolVar(&versionFlag, `version`, false,
		`Print version information`)
	flag.StringVar(&deviceFlag, `device`, ``,
		`Collect from this single device only`)
	flag.BoolVar(&cycleFlag, `cycle`, true,
		`Run collection cycles; false runs one cycle and exits`)
	flag.IntVar(&cycletime, `cycletime`, 0,
		`Cycle time, in seconds, to run collection`)
	flag.IntVar(&javaport, `zenjmxjavaport`, 0,
		`Port for the zenjmxjava helper process`)
	flag.IntVar(&parallel, `parallel`, 0,
		`Number of mbean servers to collect from at one time`)
	flag.BoolVar(&concurrent, `concurrentJMXCalls`, false,
		`Enable concurrent calls to a JMX server`)
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
	// only provide version information if --version was specified
	if versionFlag {
		fmt.Fprintln(os.Stderr, `ZenJMX Collection Daemon`)
		fmt.Fprintf(os.Stderr, "Version  : %s-%s\n", builddate,
			shorthash)
		fmt.Fprintf(os.Stderr, "Git Hash : %s\n", githash)
		fmt.Fprintf(os.Stderr, "Timestamp: %s\n", buildtime)
		os.Exit(0)
	}

	// read runtime configuration
	conf := config.DaemonConfig{}
	if err = conf.FromFile(configFlag); err != nil {
		logrus.Fatalf("Could not open configuration: %s", err)
	}
	// command line options override the configuration file
	conf.Device = deviceFlag
	conf.Cycle = cycleFlag
	if cycletime != 0 {
		conf.CycleSeconds = cycletime
	}
	if javaport != 0 {
		conf.JavaPort = javaport
	}
	if parallel != 0 {
		conf.Parallel = parallel
	}
	if concurrent {
		conf.ConcurrentJMXCalls = true
	}

	panicLog, err := os.OpenFile(
		filepath.Join(conf.LogPath, `panic.log`),
		os.O_CREATE|os.O_RDWR|os.O_APPEND, 0660)
	if err != nil {
		logrus.Fatal(err)
	}
	redirectStderr(panicLog)
	logger := logrus.New()
	// setup logfile
	if logFH, err = reopen.NewFileWriter(
		filepath.Join(conf.LogPath, conf.LogFile),
	); err != nil {
		logrus.Fatalf("Unable to open logfile: %s", err)
	}
	logger.SetOutput(logFH)
	logger.Infoln(`Starting ZENJMX...`)

	// switch to requested loglevel
	// trace, debug, info, warning, error, fatal, panic
	switch strings.ToLower(conf.LogLevel) {
	case `trace`:
		logger.SetLevel(logrus.TraceLevel)
	case `debug`:
		logger.SetLevel(logrus.DebugLevel)
	case `info`:
		logger.SetLevel(logrus.InfoLevel)
	case `warning`:
		logger.SetLevel(logrus.WarnLevel)
	case `error`:
		logger.SetLevel(logrus.ErrorLevel)
	case `fatal`:
		logger.SetLevel(logrus.FatalLevel)
	case `panic`:
		logger.SetLevel(logrus.PanicLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	// signal handler will reopen logfile on USR2 if requested
	if conf.LogRotate {
		sigChanLogRotate := make(chan os.Signal, 1)
		signal.Notify(sigChanLogRotate, syscall.SIGUSR2)
		go logrotate(sigChanLogRotate, logFH, logger)
	}

	// setup signal receiver for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// this channel is used by the handlers on error
	handlerDeath := make(chan error)

	// setup goroutine waiting policy
	waitdelay := delay.New()

	// setup metrics
	var metricPrefix string
	switch conf.InstanceName {
	case ``:
		metricPrefix = `zenjmx`
	default:
		metricPrefix = fmt.Sprintf("zenjmx.%s", conf.InstanceName)
	}
	pfxRegistry := metrics.NewPrefixedRegistry(metricPrefix)
	metrics.NewRegisteredMeter(`.datapoints.stored`, pfxRegistry)
	metrics.NewRegisteredMeter(`.batches.completed`, pfxRegistry)
	metrics.NewRegisteredMeter(`.batches.failed`, pfxRegistry)
	metrics.NewRegisteredMeter(`.events.sent`, pfxRegistry)
	metrics.NewRegisteredMeter(`.events.failed`, pfxRegistry)
	metrics.NewRegisteredMeter(`.events.dropped`, pfxRegistry)
	metrics.NewRegisteredGauge(`.cycle.seconds`, pfxRegistry)
	metrics.NewRegisteredGauge(`.cycle.datapoints`, pfxRegistry)

	if conf.ProduceMetrics {
		logger.Info(`Launched metrics producer socket`)
		addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%s",
			conf.GraphiteHost, conf.GraphitePort))
		if err != nil {
			logger.Fatalln(err)
		}
		go graphite.Graphite(pfxRegistry,
			time.Duration(conf.GraphiteFlushInterval*
				time.Second.Nanoseconds()),
			conf.GraphitePrefix, addr)
	}

	// setup event outlet
	var sink event.Sink
	var publisher *event.Publisher
	switch {
	case conf.TestMode:
		// do not send out events in testmode
		sink = &event.Discard{}
	default:
		publisher = event.NewPublisher(conf.EventURI,
			conf.EventTimeoutMs, conf.EventQueueLen)
		publisher.AppLog = logger
		publisher.Metrics = &pfxRegistry
		sink = publisher
		waitdelay.Use()
		go func() {
			defer waitdelay.Done()
			publisher.Start()
		}()
	}

	// launch the helper process under supervision
	javaBinary := conf.JavaBinary
	if javaBinary == `` {
		self, _ := os.Executable()
		javaBinary = filepath.Join(filepath.Dir(self), `zenjmxjava`)
	}
	sup := supervisor.New(supervisor.Config{
		Binary:             javaBinary,
		Cycle:              conf.Cycle,
		ConfigFile:         conf.JavaConfigFile,
		Port:               conf.JavaPort,
		LogSeverity:        conf.JavaLogSeverity,
		ConcurrentJMXCalls: conf.ConcurrentJMXCalls,
		Monitor:            conf.Monitor,
		Name:               `zenjmx`,
	}, logger, sink)
	if err = sup.Start(); err != nil {
		logger.Fatalln(err)
	}

	// acquire shared concurrency limit
	lim := limit.New(uint32(conf.Parallel))

	// start the collection orchestrator
	z := zenjmx.ZenJMX{
		Shutdown: make(chan struct{}),
		Death:    handlerDeath,
		Done:     make(chan struct{}),
		Config:   &conf,
		Metrics:  &pfxRegistry,
		Limit:    lim,
		AppLog:   logger,
	}
	coll := collector.NewClient(conf.JavaPort,
		time.Duration(conf.JavaTimeoutMs)*time.Millisecond,
		sup.Running)
	coll.AppLog = logger
	z.SetCollector(coll)
	z.SetEventSink(sink)
	waitdelay.Use()
	go func() {
		defer waitdelay.Done()
		z.Start()
	}()
	logger.Infoln(`Launched ZenJMX orchestrator`)

	// the main loop
	fault := false
runloop:
	for {
		select {
		case <-c:
			logger.Infoln(`Received shutdown signal`)
			break runloop
		case err := <-handlerDeath:
			logger.Errorf("Handler died: %s", err.Error())
			fault = true
			go func() {
				time.Sleep(30 * time.Second)
				logger.Errorln("Could not shutdown zenjmx correctly!")
				os.Exit(1)
			}()
			break runloop
		case <-z.Done:
			// one-shot collection finished
			logger.Infoln(`Collection complete`)
			break runloop
		}
	}

	// stop the helper before tearing down the orchestrator so no new
	// batches are accepted during drain
	sup.Stop()
	close(z.Shutdown)

	// wait for the orchestrator to drain its in-flight batches
	select {
	case <-z.Done:
	case <-time.After(30 * time.Second):
		logger.Errorln(`Orchestrator did not drain in time`)
		fault = true
	}

	if publisher != nil {
		close(publisher.Shutdown)
	}

	// read all additional handler errors if required
drainloop:
	for {
		select {
		case err := <-handlerDeath:
			logger.Errorf("Handler died: %s", err.Error())
		case <-time.After(time.Millisecond * 10):
			break drainloop
		}
	}

	// give goroutines that were blocked on handlerDeath channel
	// a chance to exit
	waitdelay.Wait()
	logger.Infoln(`ZENJMX shutdown complete`)
	if fault {
		os.Exit(1)
	}
}

// redirectStderr to the file passed in
// this will allow us to log panics
func redirectStderr(f *os.File) {
	err := syscall.Dup2(int(f.Fd()), int(os.Stderr.Fd()))
	if err != nil {
		log.Fatalf("Failed to redirect stderr to file: %v", err)
	}
}

// vim: ts=4 sw=4 sts=4 noet fenc=utf-8 ffs=unix
