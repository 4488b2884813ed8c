package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dsimnet/nodes/pkg/nodes/coordinator"
	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/testutil"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

func TestLogicalClock_TickAdvancesMonotonically(t *testing.T) {
	c := core.NewLogicalClock()
	require.Equal(t, uint64(0), c.Tock())
	require.Equal(t, uint64(1), c.Tick())
	require.Equal(t, uint64(2), c.Tick())
	require.Equal(t, uint64(2), c.Tock())
}

func TestLogicalClock_LeapTakesTheMaxThenAdvances(t *testing.T) {
	c := core.NewLogicalClock()
	c.Tick() // value = 1

	// received < current: still advances past current.
	require.Equal(t, uint64(2), c.Leap(0))

	// received > current: jumps ahead of it.
	require.Equal(t, uint64(11), c.Leap(10))
}

func TestInvoker_WaitBlocksUntilEverySpawnedGoroutineReturns(t *testing.T) {
	inv := core.NewInvoker()
	var mu sync.Mutex
	ran := 0

	for i := 0; i < 5; i++ {
		inv.Spawn(func() {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}

	inv.Wait()
	require.Equal(t, 5, ran)
}

func buildRingNode(t *testing.T, net *testutil.Network, id int) *core.RingNode {
	t.Helper()
	ring, err := core.NewRingNode(net.Nodes[id])
	require.NoError(t, err)
	return ring
}

func TestRingNode_OtherAlwaysRelaysAwayFromTheSender(t *testing.T) {
	graph := coordinator.NewRingGraph(5)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	for id := 0; id < 5; id++ {
		ring := buildRingNode(t, net, id)
		require.Equal(t, ring.Prev(), ring.Other(ring.Next()))
		require.Equal(t, ring.Next(), ring.Other(ring.Prev()))
	}
}

func TestRingNode_WalkingOtherVisitsEveryVertexAndReturnsHome(t *testing.T) {
	graph := coordinator.NewRingGraph(5)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	start := buildRingNode(t, net, 0)
	visited := map[int]bool{0: true}

	current := 0
	arrivedFrom := start.Prev() // pick an arbitrary first hop, as a real protocol's initiator would
	for i := 0; i < 5; i++ {
		ring := buildRingNode(t, net, current)
		next := ring.Other(arrivedFrom)
		arrivedFrom = current
		current = next
		visited[current] = true
	}

	require.Len(t, visited, 5, "a full lap must touch every vertex exactly once")
	require.Equal(t, 0, current, "five hops around a ring of five must return to the start")
}

func TestRingNode_RejectsNonRingDegree(t *testing.T) {
	graph := coordinator.NewCompleteGraph(4)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	_, err = core.NewRingNode(net.Nodes[0])
	require.Error(t, err, "a K4 vertex has 3 neighbors and cannot be a ring node")
}

func TestNode_SendToAllReachesEveryNeighborAndCounts(t *testing.T) {
	graph := coordinator.NewLineGraph(3)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	middle := net.Nodes[1]
	require.NoError(t, middle.SendToAll(types.NewGenericMessage(types.Inform, 1), true))
	require.Equal(t, 2, middle.TotalMessages())
	for _, id := range []int{0, 2} {
		_, ok := net.Nodes[id].Queue.Receive(2 * time.Second)
		require.Truef(t, ok, "node %d should have received the broadcast", id)
	}
}
