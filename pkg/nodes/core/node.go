package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/queue"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Node is the per-vertex runtime: identity, neighbor DNS, the
// transport/queue pair, and every send primitive a Protocol uses.
// Grounded on original_source/Nodes/Node.py.
type Node struct {
	ID              int
	Host            string
	CoordinatorHost string
	CoordinatorPort int

	Transport Transport
	Queue     *queue.Queue
	Invoker   *Invoker
	Log       types.Logger

	FIFO bool

	mu          sync.Mutex
	sendSeq     map[int]uint64 // neighbor id -> next outbound seq, mirrors Node.py's send_sequence[target_id]
	RecvSeq     map[int]uint64 // exported: the protocol engine's FIFO check reads/writes this directly
	edges       []types.Edge
	localDNS    map[int]int // neighbor id -> port
	reverseDNS  map[int]int // port -> neighbor id
	Shell       bool
	ExpPath     string
	visualizer  *VisualizerSink
	totalCount  int
	sleepDelay  time.Duration
}

// NewNode builds a Node bound to transport t, ready to be configured
// by a SetupMessage.
func NewNode(id int, host, coordinatorHost string, coordinatorPort int, t Transport, log types.Logger) *Node {
	return &Node{
		ID:              id,
		Host:            host,
		CoordinatorHost: coordinatorHost,
		CoordinatorPort: coordinatorPort,
		Transport:       t,
		Queue:           queue.New(),
		Invoker:         NewInvoker(),
		Log:             log,
		FIFO:            true,
		RecvSeq:         map[int]uint64{},
		sendSeq:         map[int]uint64{},
		sleepDelay:      10 * time.Millisecond,
	}
}

// Configure applies a SetupMessage, mirroring Node.py's
// wait_for_instructions building the reverse DNS table. The worker
// process is launched knowing only the port it should listen on;
// Node.py assigns `self._id` here too, once the Coordinator has told
// it which graph vertex it is.
func (n *Node) Configure(msg *types.SetupMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ID = msg.Node
	n.edges = msg.Edges
	n.localDNS = msg.LocalDNS
	n.Shell = msg.Shell
	n.ExpPath = msg.ExperimentPath
	n.reverseDNS = make(map[int]int, len(msg.LocalDNS))
	for neighbor, port := range msg.LocalDNS {
		n.reverseDNS[port] = neighbor
	}
	if msg.VisualizerPort != 0 {
		n.visualizer = NewVisualizerSink(n.Transport, n.CoordinatorHost, msg.VisualizerPort)
	}
}

// Neighbors returns the neighbor ids in a stable order matching the
// order edges were received in (map iteration order is not stable in
// Go, so we keep an explicit slice derived from edges).
func (n *Node) Neighbors() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, 0, len(n.edges))
	seen := map[int]bool{}
	for _, e := range n.edges {
		neighbor := e.To
		if neighbor == n.ID {
			neighbor = e.From
		}
		if !seen[neighbor] {
			seen[neighbor] = true
			out = append(out, neighbor)
		}
	}
	return out
}

func (n *Node) portFor(neighbor int) (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.localDNS[neighbor]
	return p, ok
}

// send is the core send primitive, grounded on Node.py's `_send`: it
// stamps a FIFO sequence number on worker-to-worker traffic (never on
// coordinator-bound traffic), mirrors the send to the visualizer when
// attached, and applies the artificial inter-send delay the Python
// reference uses to keep the visualizer's rendering loop readable.
// neighbor is only meaningful (and only consulted) when !toCoordinator:
// the outbound sequence is kept per target, mirroring Node.py's
// send_sequence[target_id], since the receiver's FIFO check expects
// each sender to count 0,1,2,... independently for every peer it talks
// to, not one shared counter across all of a node's neighbors.
func (n *Node) send(msg types.Message, host string, port, neighbor int, toCoordinator, count bool) error {
	if n.FIFO && !toCoordinator {
		n.mu.Lock()
		seq := n.sendSeq[neighbor]
		n.sendSeq[neighbor] = seq + 1
		n.mu.Unlock()
		msg.SetSeq(seq)
	}

	data, err := types.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", msg.Kind(), err)
	}

	if err := n.Transport.Send(host, port, data); err != nil {
		return fmt.Errorf("sending %s to %s:%d: %w", msg.Kind(), host, port, err)
	}

	if !toCoordinator && count {
		n.mu.Lock()
		n.totalCount++
		n.mu.Unlock()
	}

	if n.visualizer != nil && !toCoordinator {
		receiver, _ := n.reverseDNS[port]
		n.visualizer.Mirror(msg, receiver)
		time.Sleep(n.sleepDelay)
	}

	return nil
}

// SendTo delivers msg to a single neighbor by id, counted toward this
// worker's outgoing traffic total.
func (n *Node) SendTo(msg types.Message, neighbor int) error {
	return n.sendToNeighbor(msg, neighbor, true)
}

// SendToUncounted delivers msg to a single neighbor without
// contributing to the traffic total (the single-recipient form of
// SendToAll with count false).
func (n *Node) SendToUncounted(msg types.Message, neighbor int) error {
	return n.sendToNeighbor(msg, neighbor, false)
}

func (n *Node) sendToNeighbor(msg types.Message, neighbor int, count bool) error {
	port, ok := n.portFor(neighbor)
	if !ok {
		return fmt.Errorf("no local dns entry for neighbor %d", neighbor)
	}
	return n.send(msg, n.Host, port, neighbor, false, count)
}

// SendBack delivers msg to the Coordinator, uncounted and unstamped.
func (n *Node) SendBack(msg types.Message) error {
	return n.send(msg, n.CoordinatorHost, n.CoordinatorPort, 0, true, false)
}

// SendToAll delivers msg to every neighbor. When count is false the
// sends do not contribute to the worker's outgoing traffic total
// reported to the Coordinator at teardown (mirrors Node.py's
// `send_to_all(message, count=False)` used for the final END
// broadcast in the mutex protocols).
func (n *Node) SendToAll(msg types.Message, count bool) error {
	for _, neighbor := range n.Neighbors() {
		if err := n.sendToNeighbor(msg, neighbor, count); err != nil {
			return err
		}
	}
	return nil
}

// SendToAllExcept delivers msg to every neighbor other than except.
func (n *Node) SendToAllExcept(except int, msg types.Message) error {
	for _, neighbor := range n.Neighbors() {
		if neighbor == except {
			continue
		}
		if err := n.SendTo(msg, neighbor); err != nil {
			return err
		}
	}
	return nil
}

// SendToMissing delivers msg to every neighbor not present in senders.
// senders must contain exactly one fewer id than there are neighbors
// (every neighbor but the one this message arrived from), mirroring
// Node.py's `send_to_missing` assertion.
func (n *Node) SendToMissing(msg types.Message, senders []int) error {
	neighbors := n.Neighbors()
	seen := map[int]bool{}
	for _, s := range senders {
		if seen[s] {
			panic(fmt.Sprintf("send_to_missing: duplicate sender %d", s))
		}
		seen[s] = true
	}
	if len(seen) != len(neighbors)-1 {
		panic(fmt.Sprintf("send_to_missing: expected %d distinct senders, got %d", len(neighbors)-1, len(seen)))
	}
	for _, neighbor := range neighbors {
		if !seen[neighbor] {
			if err := n.SendTo(msg, neighbor); err != nil {
				return err
			}
		}
	}
	return nil
}

// SendFirst delivers msg to the first neighbor in DNS iteration order.
// Named SendFirst rather than Node.py's historical `send_random`: per
// spec's open-ambiguity note the reference never actually randomizes,
// always picking the first neighbor, so the Go name says what it does.
func (n *Node) SendFirst(msg types.Message) error {
	neighbors := n.Neighbors()
	if len(neighbors) == 0 {
		return fmt.Errorf("node %d has no neighbors", n.ID)
	}
	return n.SendTo(msg, neighbors[0])
}

// SendStartOfProtocol acks the Coordinator's setup handshake.
func (n *Node) SendStartOfProtocol() error {
	return n.SendBack(types.NewGenericMessage(types.StartProtocol, n.ID))
}

// SendEndOfProtocol tells the Coordinator this worker's protocol run
// has finished.
func (n *Node) SendEndOfProtocol() error {
	return n.SendBack(types.NewTerminationMessage(types.EndOfProtocol, n.ID, ""))
}

// SendTotalMessages reports this worker's outgoing traffic count to
// the Coordinator, mirroring Node.py's `send_total_messages`.
func (n *Node) SendTotalMessages() error {
	return n.SendBack(types.NewCountMessage(types.CountM, n.ID, n.TotalMessages()))
}

// TotalMessages reports this worker's counted outgoing traffic so far.
func (n *Node) TotalMessages() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.totalCount
}

// SendReady acks the Coordinator's initial process-spawn handshake.
// Sent before the Node knows its graph vertex id, so like Node.py's
// send_RDY it reports the listening port instead, which is all the
// Coordinator needs to count readiness.
func (n *Node) SendReady() error {
	return n.SendBack(types.NewReadyMessage(n.Transport.LocalPort()))
}

// SendToSelf posts a message to this node's own queue by sending it
// through the real transport back to its own listening port, used by
// Bully's timeout goroutine to hand control back to the dispatch loop
// as a plain queued message rather than a side channel. Unstamped and
// uncounted, the same way a coordinator-bound send is.
func (n *Node) SendToSelf(msg types.Message) error {
	return n.send(msg, n.Host, n.Transport.LocalPort(), 0, true, false)
}

// Cleanup stops the listener, waits for every goroutine this Node
// spawned to return, and, if a visualizer is attached, sends the
// end-of-visualization marker, mirroring Node.py's `cleanup`.
func (n *Node) Cleanup() error {
	n.Queue.Stop()
	if n.visualizer != nil {
		n.visualizer.Close(n.ID)
	}
	err := n.Transport.Close()
	n.Invoker.Wait()
	return err
}
