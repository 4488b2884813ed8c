// Package testutil wires up real in-process networks of core.Node
// instances over loopback UDP for protocol integration tests, grounded
// on the teacher's test.CreateCluster/UnityCluster helpers (every
// protocol test here runs real peers talking over real sockets rather
// than mocks, exactly like go-mcast's fuzzy test suite does for its
// own peers).
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/coordinator"
	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/queue"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Network is a set of fully configured, listening Nodes plus a sink
// that absorbs whatever they send back to "the coordinator" (START_
// PROTOCOL/END_PROTOCOL/COUNT_M/ERROR), so tests don't need a real
// coordinator.Coordinator process to exercise a protocol.
type Network struct {
	Nodes map[int]*core.Node

	sinkTransport *core.UDPTransport
	sinkQueue     *queue.Queue
	invoker       *core.Invoker
}

// New builds one Node per vertex in graph, on loopback with ephemeral
// ports, and configures each from a SetupMessage with the same edges
// and local DNS coordinator.Coordinator.SetupClients would send. Edges
// keep graph.Edges order rather than being sorted by neighbor id, and
// every node is in shell mode with no experiment path.
func New(graph coordinator.Graph, log types.Logger) (*Network, error) {
	invoker := core.NewInvoker()
	sinkTransport, err := core.NewUDPTransport(0, log)
	if err != nil {
		return nil, fmt.Errorf("binding coordinator sink: %w", err)
	}
	sinkQueue := queue.New()
	sinkTransport.Listen(invoker, sinkQueue)

	nodes := map[int]*core.Node{}
	ports := map[int]int{}
	for _, id := range graph.Nodes {
		transport, err := core.NewUDPTransport(0, log)
		if err != nil {
			return nil, fmt.Errorf("binding node %d: %w", id, err)
		}
		node := core.NewNode(id, "127.0.0.1", "127.0.0.1", sinkTransport.LocalPort(), transport, log)
		node.Transport.Listen(node.Invoker, node.Queue)
		nodes[id] = node
		ports[id] = transport.LocalPort()
	}

	for _, id := range graph.Nodes {
		var edges []types.Edge
		localDNS := map[int]int{}
		for _, e := range graph.Edges {
			var neighbor int
			switch id {
			case e[0]:
				neighbor = e[1]
			case e[1]:
				neighbor = e[0]
			default:
				continue
			}
			edges = append(edges, types.Edge{From: id, To: neighbor})
			localDNS[neighbor] = ports[neighbor]
		}
		setup := types.NewSetupMessage(id, edges, localDNS, true, "", 0)
		nodes[id].Configure(setup)
	}

	return &Network{Nodes: nodes, sinkTransport: sinkTransport, sinkQueue: sinkQueue, invoker: invoker}, nil
}

// DefaultLogger builds the stdout logger used by tests.
func DefaultLogger() types.Logger {
	l := definition.NewStdoutLogger(nil)
	return l
}

// Close stops every node and the sink, and waits for all listener
// goroutines to exit.
func (n *Network) Close() {
	for _, node := range n.Nodes {
		_ = node.Cleanup()
	}
	n.sinkQueue.Stop()
	_ = n.sinkTransport.Close()
	n.invoker.Wait()
}

// WaitOrTimeout runs f in a goroutine and reports whether it finished
// before d elapses, mirroring test.WaitThisOrTimeout.
func WaitOrTimeout(f func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		f()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// RunGroup runs fns concurrently and waits for all of them, or returns
// false if d elapses first.
func RunGroup(fns []func(), d time.Duration) bool {
	var wg sync.WaitGroup
	for _, f := range fns {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	return WaitOrTimeout(wg.Wait, d)
}
