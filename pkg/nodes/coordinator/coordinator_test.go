package coordinator_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsimnet/nodes/pkg/nodes/coordinator"
	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/queue"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

func testLogger() types.Logger {
	return definition.NewStdoutLogger(nil)
}

// fakeNode stands in for a spawned worker process: a bare UDP socket a
// test can drive directly, without needing a compiled worker binary.
type fakeNode struct {
	transport *core.UDPTransport
	queue     *queue.Queue
	invoker   *core.Invoker
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	transport, err := core.NewUDPTransport(0, testLogger())
	require.NoError(t, err)
	q := queue.New()
	invoker := core.NewInvoker()
	transport.Listen(invoker, q)
	n := &fakeNode{transport: transport, queue: q, invoker: invoker}
	t.Cleanup(func() {
		q.Stop()
		_ = transport.Close()
		invoker.Wait()
	})
	return n
}

func (n *fakeNode) sendTo(t *testing.T, port int, msg types.Message) {
	t.Helper()
	raw, err := types.Serialize(msg)
	require.NoError(t, err)
	require.NoError(t, n.transport.Send("127.0.0.1", port, raw))
}

func TestGraph_Constructors(t *testing.T) {
	line := coordinator.NewLineGraph(4)
	require.Equal(t, []int{0, 1, 2, 3}, line.Nodes)
	require.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}}, line.Edges)

	ring := coordinator.NewRingGraph(4)
	require.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, ring.Edges)

	complete := coordinator.NewCompleteGraph(3)
	require.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 2}}, complete.Edges)
}

func TestDNSTable_ListsEveryNodeWithAnAssignedPort(t *testing.T) {
	graph := coordinator.NewLineGraph(3)
	c, err := coordinator.New(coordinator.Config{Port: 0}, graph, testLogger())
	require.NoError(t, err)
	defer c.Close()

	table := c.DNSTable()
	require.Contains(t, table, "NODE")
	require.Contains(t, table, "PORT")
	for i := range graph.Nodes {
		require.Contains(t, table, strconv.Itoa(definition.BasePort+i))
	}
}

func TestCoordinator_WakeupRejectsAnUnknownNodeID(t *testing.T) {
	graph := coordinator.NewLineGraph(1)
	c, err := coordinator.New(coordinator.Config{Port: 0}, graph, testLogger())
	require.NoError(t, err)
	defer c.Close()

	require.Error(t, c.Wakeup(99))
}

func TestCoordinator_WakeupDeliversAWakeUpMessage(t *testing.T) {
	graph := coordinator.NewLineGraph(1)
	c, err := coordinator.New(coordinator.Config{Port: 0}, graph, testLogger())
	require.NoError(t, err)
	defer c.Close()

	// New() assigns node 0 of any graph to definition.BasePort; bind a
	// fake worker there directly rather than through a spawned process,
	// standing in for what SetupClients would have told the real
	// worker to listen on.
	transport, err := core.NewUDPTransport(definition.BasePort, testLogger())
	require.NoError(t, err)
	q := queue.New()
	invoker := core.NewInvoker()
	transport.Listen(invoker, q)
	defer func() {
		q.Stop()
		_ = transport.Close()
		invoker.Wait()
	}()

	require.NoError(t, c.Wakeup(0))

	raw, ok := q.Receive(2 * time.Second)
	require.True(t, ok)
	msg, err := types.Deserialize(raw)
	require.NoError(t, err)
	_, ok = msg.(*types.WakeUpMessage)
	require.True(t, ok)
}

func TestCoordinator_WaitForNumberOfMessagesSumsEveryReport(t *testing.T) {
	graph := coordinator.NewLineGraph(2)
	c, err := coordinator.New(coordinator.Config{Port: 0}, graph, testLogger())
	require.NoError(t, err)
	defer c.Close()

	nodeA := newFakeNode(t)
	nodeB := newFakeNode(t)

	coordPort := coordinatorPort(t, c)

	nodeA.sendTo(t, coordPort, types.NewCountMessage(types.CountM, 0, 3))
	nodeB.sendTo(t, coordPort, types.NewCountMessage(types.CountM, 1, 4))

	total, err := c.WaitForNumberOfMessages()
	require.NoError(t, err)
	require.Equal(t, 7, total)
}

func TestCoordinator_WaitForTerminationStopsOnAllEndProtocol(t *testing.T) {
	graph := coordinator.NewLineGraph(2)
	c, err := coordinator.New(coordinator.Config{Port: 0}, graph, testLogger())
	require.NoError(t, err)
	defer c.Close()

	nodeA := newFakeNode(t)
	nodeB := newFakeNode(t)
	coordPort := coordinatorPort(t, c)

	nodeA.sendTo(t, coordPort, types.NewTerminationMessage(types.EndOfProtocol, 0, ""))
	nodeB.sendTo(t, coordPort, types.NewTerminationMessage(types.EndOfProtocol, 1, ""))

	done := make(chan error, 1)
	go func() { done <- c.WaitForTermination() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForTermination did not return once every node reported EOP")
	}
}

func TestCoordinator_WaitForTerminationReQueuesUnrelatedTraffic(t *testing.T) {
	graph := coordinator.NewLineGraph(1)
	c, err := coordinator.New(coordinator.Config{Port: 0}, graph, testLogger())
	require.NoError(t, err)
	defer c.Close()

	node := newFakeNode(t)
	coordPort := coordinatorPort(t, c)

	// a stray COUNT_M arriving before the EOP must not be consumed as
	// the termination signal.
	node.sendTo(t, coordPort, types.NewCountMessage(types.CountM, 0, 5))
	node.sendTo(t, coordPort, types.NewTerminationMessage(types.EndOfProtocol, 0, ""))

	done := make(chan error, 1)
	go func() { done <- c.WaitForTermination() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForTermination did not return")
	}

	total, err := c.WaitForNumberOfMessages()
	require.NoError(t, err)
	require.Equal(t, 5, total, "the re-queued COUNT_M must still be observable afterward")
}

// coordinatorPort recovers the port the Coordinator itself is bound
// to, since these tests drive it as a peer rather than through a
// spawned worker.
func coordinatorPort(t *testing.T, c *coordinator.Coordinator) int {
	t.Helper()
	return c.Port()
}
