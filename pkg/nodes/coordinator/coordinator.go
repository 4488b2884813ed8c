// Package coordinator implements the orchestration process: it spawns
// one worker process per graph vertex, hands out each vertex's local
// DNS table and edge list, and drives the experiment through wakeup,
// termination and message-count collection. Grounded on
// original_source/Nodes/initializers.py's Initializer.
package coordinator

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/queue"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Coordinator is the single process that stands up and tears down an
// experiment run.
type Coordinator struct {
	cfg   Config
	graph Graph
	log   types.Logger

	transport *core.UDPTransport
	queue     *queue.Queue
	invoker   *core.Invoker

	dns     map[int]int // node id -> port
	expPath string
	procs   []*exec.Cmd
}

// New builds a Coordinator bound to cfg.Port and ready to stand up the
// given graph.
func New(cfg Config, graph Graph, log types.Logger) (*Coordinator, error) {
	transport, err := core.NewUDPTransport(cfg.Port, log)
	if err != nil {
		return nil, fmt.Errorf("binding coordinator socket: %w", err)
	}
	c := &Coordinator{
		cfg:       cfg,
		graph:     graph,
		log:       log,
		transport: transport,
		invoker:   core.NewInvoker(),
		dns:       map[int]int{},
	}
	c.queue = queue.New()
	c.transport.Listen(c.invoker, c.queue)

	for i, node := range graph.Nodes {
		c.dns[node] = definition.BasePort + i
	}
	return c, nil
}

// Port reports the port the Coordinator's own socket is bound to,
// useful when Config.Port is 0 and the OS picked an ephemeral one.
func (c *Coordinator) Port() int {
	return c.transport.LocalPort()
}

// DNSTable renders the node->port assignment as an aligned table,
// mirroring Initializer.__str__'s PrettyTable output. A column-aligned
// text table has no ecosystem library analogue worth a third-party
// dependency for two columns of integers, so this is the one
// deliberately stdlib-only corner of the Coordinator.
func (c *Coordinator) DNSTable() string {
	var b bytes.Buffer
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tPORT")
	for _, node := range c.graph.Nodes {
		fmt.Fprintf(w, "%d\t%d\n", node, c.dns[node])
	}
	w.Flush()
	return b.String()
}

// InitializeClients spawns one worker process per graph node and
// blocks until every one of them has sent a READY handshake.
func (c *Coordinator) InitializeClients() error {
	exp, err := initExperimentDir(c.cfg.LogDir)
	if err != nil {
		return fmt.Errorf("preparing experiment log directory: %w", err)
	}
	c.expPath = exp

	for i, node := range c.graph.Nodes {
		port := definition.BasePort + i
		args := []string{c.hostname(), strconv.Itoa(c.cfg.Port), strconv.Itoa(port), c.cfg.Protocol}
		cmd := exec.Command(c.cfg.WorkerBinary, args...)
		// Worker stdio is always inherited, matching initialize_clients's
		// bare sp.Popen(full_command) call. When Shell is false the worker
		// itself redirects its own structured logging to <id>.out once
		// it learns the experiment path from SETUP; the coordinator must
		// not also open that path; two independent file handles racing on
		// the same inode would interleave and truncate each other.
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("spawning worker for node %d: %w", node, err)
		}
		c.procs = append(c.procs, cmd)
	}

	ready := 0
	for ready < c.graph.numberOfNodes() {
		raw, ok := c.queue.Receive(30 * time.Second)
		if !ok {
			return fmt.Errorf("timed out waiting for worker readiness: %d/%d ready", ready, c.graph.numberOfNodes())
		}
		msg, err := types.Deserialize(raw)
		if err != nil {
			return fmt.Errorf("decoding readiness message: %w", err)
		}
		if _, ok := msg.(*types.ReadyMessage); !ok {
			return fmt.Errorf("expected RDY, got %s during initialization", msg.Kind())
		}
		port, _ := msg.GetSender()
		c.log.Infof("worker on port %d is ready", port)
		ready++
	}
	c.log.Infof("all %d workers ready", ready)
	return nil
}

// SetupClients sends every node its SetupMessage (id, edges, local
// DNS, shell flag, experiment path, visualizer port) and waits for a
// START_PROTOCOL ack from each, mirroring setup_clients.
func (c *Coordinator) SetupClients() error {
	for _, node := range c.graph.Nodes {
		edges := c.graph.edgesOf(node)
		typedEdges := make([]types.Edge, 0, len(edges))
		for _, e := range edges {
			typedEdges = append(typedEdges, types.Edge{From: e[0], To: e[1]})
		}
		localDNS := map[int]int{}
		for _, e := range edges {
			localDNS[e[1]] = c.dns[e[1]]
		}
		msg := types.NewSetupMessage(node, typedEdges, localDNS, c.cfg.Shell, c.expPath, c.cfg.VisualizerPort)
		if err := c.sendTo(msg, c.dns[node]); err != nil {
			return fmt.Errorf("sending setup to node %d: %w", node, err)
		}
	}

	acks := 0
	for acks < len(c.dns) {
		raw, ok := c.queue.Receive(30 * time.Second)
		if !ok {
			return fmt.Errorf("timed out waiting for setup acks: %d/%d received", acks, len(c.dns))
		}
		msg, err := types.Deserialize(raw)
		if err != nil {
			return fmt.Errorf("decoding setup ack: %w", err)
		}
		if msg.GetCommand() != types.StartProtocol {
			return fmt.Errorf("expected START_PROTOCOL ack, got command %s", msg.GetCommand())
		}
		sender, _ := msg.GetSender()
		c.log.Infof("node %d started the protocol", sender)
		acks++
	}
	return nil
}

// Wakeup sends a plain WAKEUP to a single node, used by algorithms
// whose initiator is chosen ahead of time (e.g. Shout's root, ring
// count's starting vertex).
func (c *Coordinator) Wakeup(node int) error {
	port, ok := c.dns[node]
	if !ok {
		return fmt.Errorf("unknown node %d", node)
	}
	return c.sendTo(types.NewWakeUpMessage(), port)
}

// WakeupAll broadcasts an absolute wall-clock START_AT to every node,
// delta seconds from now, mirroring wakeup_all: synchronizing workers
// on wall-clock time rather than message order changes some
// algorithms' message counts.
func (c *Coordinator) WakeupAll(delta time.Duration) error {
	start := time.Now().Add(delta)
	msg := types.NewStartAtMessage(start.Year(), int(start.Month()), start.Day(), start.Hour(), start.Minute(), start.Second())
	for _, port := range c.dns {
		if err := c.sendTo(msg, port); err != nil {
			return err
		}
	}
	return nil
}

// WaitForTermination drains END_PROTOCOL/ERROR traffic from every
// node, re-queuing anything else (protocol chatter the Coordinator
// isn't meant to consume, mirroring wait_for_termination's fallback
// insert_message). On ERROR it force-terminates the whole run.
func (c *Coordinator) WaitForTermination() error {
	done := 0
	for done < c.graph.numberOfNodes() {
		raw, ok := c.queue.Receive(0)
		if !ok {
			return fmt.Errorf("coordinator queue stopped while waiting for termination")
		}
		msg, err := types.Deserialize(raw)
		if err != nil {
			c.log.Debugf("ignoring undecodable message while waiting for termination: %v", err)
			continue
		}
		term, ok := msg.(*types.TerminationMessage)
		if !ok {
			c.queue.Insert(raw)
			continue
		}
		switch term.GetCommand() {
		case types.EndOfProtocol:
			done++
		case types.Error:
			sender, _ := term.GetSender()
			c.log.Errorf("node %d crashed: %s", sender, term.Payload)
			if err := c.SendTermination(); err != nil {
				return err
			}
			return fmt.Errorf("node %d crashed: %s", sender, term.Payload)
		default:
			c.queue.Insert(raw)
		}
	}
	c.log.Infof("received end-of-protocol from all %d nodes", done)
	return nil
}

// WaitForNumberOfMessages sums every node's reported outgoing traffic
// count, mirroring wait_for_number_of_messages.
func (c *Coordinator) WaitForNumberOfMessages() (int, error) {
	received := 0
	total := 0
	for received < c.graph.numberOfNodes() {
		raw, ok := c.queue.Receive(30 * time.Second)
		if !ok {
			return 0, fmt.Errorf("timed out waiting for message counts: %d/%d received", received, c.graph.numberOfNodes())
		}
		msg, err := types.Deserialize(raw)
		if err != nil {
			return 0, fmt.Errorf("decoding count message: %w", err)
		}
		count, ok := msg.(*types.CountMessage)
		if !ok {
			c.queue.Insert(raw)
			continue
		}
		total += count.Counter
		received++
	}
	c.log.Infof("total messages sent across the network: %d", total)
	return total, nil
}

// SendTermination forces every node to shut down immediately,
// mirroring send_termination's ERROR broadcast used after a peer
// crash.
func (c *Coordinator) SendTermination() error {
	msg := types.NewTerminationMessageNoSender(types.Error, "node crash")
	for _, port := range c.dns {
		if err := c.sendTo(msg, port); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the listener, waits for it to exit, and releases the
// socket.
func (c *Coordinator) Close() error {
	c.queue.Stop()
	c.invoker.Wait()
	return c.transport.Close()
}

func (c *Coordinator) sendTo(msg types.Message, port int) error {
	data, err := types.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", msg.Kind(), err)
	}
	return c.transport.Send(c.hostname(), port, data)
}

// hostname is the host workers are told to dial back on. Defaults to
// localhost, matching the loopback-only transport this simulation
// runs over.
func (c *Coordinator) hostname() string {
	if c.cfg.Hostname == "" {
		return "localhost"
	}
	return c.cfg.Hostname
}
