package core

import (
	"fmt"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Worker is the per-process harness around a Node: bind the socket,
// hand off READY, then wait for SETUP before handing the Node to a
// protocol engine. Grounded on original_source/Nodes/Node.py's
// `bind_to_port` and `wait_for_instructions`.
type Worker struct {
	Node *Node
}

// NewWorker binds a UDP socket on listenPort (0 picks an ephemeral
// port, used by tests) and starts its receive loop. The worker does
// not know its own graph vertex id until AwaitSetup configures the
// Node from the Coordinator's SetupMessage.
func NewWorker(host, coordinatorHost string, coordinatorPort, listenPort int, log types.Logger) (*Worker, error) {
	transport, err := NewUDPTransport(listenPort, log)
	if err != nil {
		return nil, err
	}
	node := NewNode(0, host, coordinatorHost, coordinatorPort, transport, log)
	node.Transport.Listen(node.Invoker, node.Queue)
	return &Worker{Node: node}, nil
}

// Handshake sends READY to the Coordinator, announcing this worker's
// listening port is live.
func (w *Worker) Handshake() error {
	return w.Node.SendReady()
}

// AwaitSetup blocks for the Coordinator's SetupMessage and configures
// the Node from it. The START_PROTOCOL ack is sent by the protocol
// engine once the protocol's Setup has run, not here, mirroring the
// Python reference's Protocol.__init__ ordering (setup() then SOP).
func (w *Worker) AwaitSetup(timeout time.Duration) (*types.SetupMessage, error) {
	for {
		raw, ok := w.Node.Queue.Receive(timeout)
		if !ok {
			return nil, fmt.Errorf("worker %d: timed out waiting for setup", w.Node.ID)
		}
		msg, err := types.Deserialize(raw)
		if err != nil {
			w.Node.Log.Debugf("discarding undecodable datagram while awaiting setup: %v", err)
			continue
		}
		setup, ok := msg.(*types.SetupMessage)
		if !ok {
			w.Node.Log.Debugf("discarding unexpected %s while awaiting setup", msg.Kind())
			continue
		}
		w.Node.Configure(setup)
		return setup, nil
	}
}
