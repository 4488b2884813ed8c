package protocols_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dsimnet/nodes/pkg/nodes/coordinator"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/protocols"
	"github.com/dsimnet/nodes/pkg/nodes/testutil"
)

// Waking every vertex of a complete graph at once must elect the
// highest id as the unique leader, once every timeout has settled.
func TestBully_CompleteGraphElectsHighestID(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewCompleteGraph(5)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	protos := map[int]*protocols.Bully{}
	var fns []func()
	for id, node := range net.Nodes {
		id, node := id, node
		proto := protocols.NewBully(node).WithTimeout(300 * time.Millisecond)
		protos[id] = proto
		fns = append(fns, func() {
			engine.Run(node, proto, func(int) {})
		})
		wakeUp(t, node)
	}

	require.True(t, testutil.RunGroup(fns, 10*time.Second), "bully did not terminate on every node in time")

	leaders := 0
	for id, proto := range protos {
		if proto.Leader {
			leaders++
			require.Equal(t, 4, id, "the elected leader should be the highest id")
		}
	}
	require.Equal(t, 1, leaders, "exactly one node must be elected leader")
}
