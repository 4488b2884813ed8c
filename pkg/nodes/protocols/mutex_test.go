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

// Every worker in a complete graph running Lamport's mutual exclusion
// must reach its two scheduled critical-section entries and report a
// nonzero message count, without deadlocking on the REQUEST/REPLY/
// RELEASE exchange.
func TestLamport_CompleteGraphEveryNodeTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewCompleteGraph(3)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	var fns []func()
	for _, node := range net.Nodes {
		node := node
		proto := protocols.NewLamport(node)
		proto.Silent = true
		fns = append(fns, func() {
			engine.Run(node, proto, func(int) {})
		})
	}

	require.True(t, testutil.RunGroup(fns, 45*time.Second), "lamport mutual exclusion did not terminate on every node in time")

	for id, node := range net.Nodes {
		require.Greaterf(t, node.TotalMessages(), 0, "node %d should have sent at least one message", id)
	}
}

// Same termination guarantee for the Ricart-Agrawala optimization,
// which drops RELEASE in favor of deferred replies.
func TestRicartAgrawala_CompleteGraphEveryNodeTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewCompleteGraph(3)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	var fns []func()
	for _, node := range net.Nodes {
		node := node
		proto := protocols.NewRicartAgrawala(node)
		proto.Silent = true
		fns = append(fns, func() {
			engine.Run(node, proto, func(int) {})
		})
	}

	require.True(t, testutil.RunGroup(fns, 45*time.Second), "ricart-agrawala did not terminate on every node in time")

	for id, node := range net.Nodes {
		require.Greaterf(t, node.TotalMessages(), 0, "node %d should have sent at least one message", id)
	}
}
