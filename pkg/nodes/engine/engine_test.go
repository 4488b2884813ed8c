package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dsimnet/nodes/pkg/nodes/coordinator"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/testutil"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// recording is a minimal engine.Protocol that records every message it
// is handed and terminates as soon as it has seen want of them.
type recording struct {
	want      int
	seen      []types.Message
	cleanup   int
	failSetup bool
}

func (r *recording) Setup() error {
	if r.failSetup {
		return errors.New("setup exploded")
	}
	return nil
}

func (r *recording) Handle(msg types.Message) (bool, error) {
	r.seen = append(r.seen, msg)
	return len(r.seen) >= r.want, nil
}

func (r *recording) Cleanup() error {
	r.cleanup++
	return nil
}

func wakeUp(t *testing.T, net *testutil.Network, id int) {
	t.Helper()
	raw, err := types.Serialize(types.NewWakeUpMessage())
	require.NoError(t, err)
	node := net.Nodes[id]
	require.NoError(t, node.Transport.Send(node.Host, node.Transport.LocalPort(), raw))
}

func TestRun_DispatchesUntilHandleReturnsDone(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewLineGraph(2)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	proto := &recording{want: 1}
	done := make(chan struct{})
	go func() {
		engine.Run(net.Nodes[0], proto, func(int) {})
		close(done)
	}()

	wakeUp(t, net, 0)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not terminate after Handle reported done")
	}

	require.Len(t, proto.seen, 1)
	require.Equal(t, 1, proto.cleanup, "Cleanup must run exactly once on natural termination")
}

func TestRun_SetupFailureReportsErrorAndExits(t *testing.T) {
	defer goleak.VerifyNone(t)

	graph := coordinator.NewLineGraph(1)
	net, err := testutil.New(graph, testutil.DefaultLogger())
	require.NoError(t, err)
	defer net.Close()

	proto := &recording{want: 1, failSetup: true}
	exitCode := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		engine.Run(net.Nodes[0], proto, func(code int) { exitCode <- code })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after a Setup panic")
	}

	require.Equal(t, 1, <-exitCode, "a Setup failure must exit nonzero")
	require.Equal(t, 1, proto.cleanup, "the error boundary must still run Cleanup")
}
