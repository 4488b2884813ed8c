// Command worker is the per-vertex process the Coordinator spawns:
// bind a socket, hand off READY, wait for SETUP, then run whichever
// protocol the Coordinator named. Grounded on
// original_source/Simulations/*/client.py.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/protocols"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

func main() {
	if len(os.Args) != 5 {
		fmt.Fprintln(os.Stderr, "usage: worker <coordinator-host> <coordinator-port> <local-port> <protocol>")
		os.Exit(2)
	}
	host := os.Args[1]
	coordinatorPort, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fatal("invalid coordinator port %q: %v", os.Args[2], err)
	}
	localPort, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fatal("invalid local port %q: %v", os.Args[3], err)
	}
	protocolName := os.Args[4]

	var log types.Logger = definition.NewStdoutLogger(logrus.Fields{"component": "worker", "port": localPort})

	worker, err := core.NewWorker(host, host, coordinatorPort, localPort, log)
	if err != nil {
		fatal("binding worker socket: %v", err)
	}
	if err := worker.Handshake(); err != nil {
		fatal("sending readiness handshake: %v", err)
	}

	setup, err := worker.AwaitSetup(60 * time.Second)
	if err != nil {
		fatal("awaiting setup: %v", err)
	}

	if !setup.Shell {
		logFile, err := openNodeLog(setup.ExperimentPath, setup.Node)
		if err != nil {
			log.Warnf("falling back to stdout logging: %v", err)
		} else if dl, ok := log.(*definition.DefaultLogger); ok {
			dl.SetOutput(logFile)
		}
	}

	protocol, err := protocols.Build(protocolName, worker.Node)
	if err != nil {
		fatal("%v", err)
	}

	engine.Run(worker.Node, protocol, os.Exit)
}

func openNodeLog(expPath string, node int) (*os.File, error) {
	if expPath == "" {
		return nil, fmt.Errorf("no experiment path provided by coordinator")
	}
	return os.Create(filepath.Join(expPath, fmt.Sprintf("%d.out", node)))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
