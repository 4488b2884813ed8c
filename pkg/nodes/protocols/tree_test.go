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

// DFT, started from one vertex of a ring, must visit every vertex and
// have every non-initiator eventually backtrack to whichever neighbor
// it was first reached from, terminating cleanly network-wide.
func TestDFT_RingSpanningTreeTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewRingGraph(5)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	var fns []func()
	for id, node := range net.Nodes {
		id, node := id, node
		proto := protocols.NewDFT(node)
		fns = append(fns, func() {
			engine.Run(node, proto, func(int) {})
		})
		if id == 0 {
			wakeUp(t, node)
		}
	}

	require.True(t, testutil.RunGroup(fns, 10*time.Second), "dft did not terminate on every node in time")
}

// Shout, started from the same vertex, must flood the Q/YES/NO
// handshake to every vertex and terminate network-wide.
func TestShout_RingSpanningTreeTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewRingGraph(5)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	var fns []func()
	for id, node := range net.Nodes {
		id, node := id, node
		proto := protocols.NewShout(node)
		fns = append(fns, func() {
			engine.Run(node, proto, func(int) {})
		})
		if id == 0 {
			wakeUp(t, node)
		}
	}

	require.True(t, testutil.RunGroup(fns, 10*time.Second), "shout did not terminate on every node in time")
}
