// Package engine implements the protocol dispatch loop shared by all
// ten protocols: dequeue, decode, FIFO-order check, translate
// START_AT into a suspend-then-WAKEUP, dispatch to the protocol's
// Handle, and an error boundary that turns any panic into an ERROR
// message to the Coordinator. Grounded on
// original_source/Nodes/Protocols/Protocol.py.
package engine

import (
	"fmt"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Protocol is the contract every of the ten algorithms implements,
// mirroring the Python reference's abstract Protocol base class.
type Protocol interface {
	// Setup initializes protocol-local state. Called once before the
	// first message is dispatched.
	Setup() error
	// Handle processes one message, returning true when the protocol
	// has reached its terminal state.
	Handle(msg types.Message) (bool, error)
	// Cleanup runs once after the protocol terminates (including error
	// termination), and is responsible for any final reporting to the
	// Coordinator beyond the standard END_PROTOCOL message.
	Cleanup() error
}

// ReceiveTimeout bounds how long the dispatch loop blocks on an empty
// queue before it loops and waits again; it is not a protocol-level
// timeout.
const ReceiveTimeout = 5 * time.Second

// Run drives node through protocol from Setup to termination. exit is
// called with a nonzero status after an unrecoverable error has been
// reported to the Coordinator and cleanup has run; tests inject a
// no-op/panic-free exit so the test binary itself is not killed.
func Run(node *core.Node, protocol Protocol, exit func(int)) {
	defer func() {
		if r := recover(); r != nil {
			reportFailure(node, protocol, r)
			exit(1)
		}
	}()

	if err := protocol.Setup(); err != nil {
		panic(err)
	}
	if err := node.SendStartOfProtocol(); err != nil {
		panic(err)
	}

	for {
		raw, ok := node.Queue.Receive(ReceiveTimeout)
		if !ok {
			continue
		}

		msg, err := types.Deserialize(raw)
		if err != nil {
			node.Log.Debugf("discarding undecodable datagram: %v", err)
			continue
		}

		if msg.GetCommand() == types.Error {
			node.Log.Info("exiting: received an error/termination command from the coordinator")
			if err := protocol.Cleanup(); err != nil {
				node.Log.Warnf("cleanup after coordinator termination: %v", err)
			}
			_ = node.Cleanup()
			exit(0)
			return
		}

		msg = translateStart(node, msg)

		if deferred := checkFIFO(node, msg, raw); deferred {
			continue
		}

		done, err := protocol.Handle(msg)
		if err != nil {
			panic(err)
		}
		if done {
			break
		}
	}

	if err := protocol.Cleanup(); err != nil {
		node.Log.Warnf("protocol cleanup: %v", err)
	}
	if err := node.Cleanup(); err != nil {
		node.Log.Warnf("node cleanup: %v", err)
	}
}

// translateStart suspends until a START_AT instant elapses and
// returns an equivalent WakeUpMessage, so every protocol's Handle only
// ever sees WAKEUP for "begin the computation" regardless of which
// wakeup mode the Coordinator used. Any other message passes through
// unchanged.
func translateStart(node *core.Node, msg types.Message) types.Message {
	start, ok := msg.(*types.StartAtMessage)
	if !ok {
		return msg
	}
	target := time.Date(start.Year, time.Month(start.Month), start.Day, start.Hour, start.Minute, start.Second, 0, time.Local)
	if d := time.Until(target); d > 0 {
		time.Sleep(d)
	}
	return types.NewWakeUpMessage()
}

// checkFIFO enforces per-sender in-order delivery when the Node is in
// FIFO mode. A message that arrived early (seq > expected) is pushed
// back onto the queue's tail to wait for its predecessors, mirroring
// Protocol.py's `node.insert_message(data)` deferral. A message that
// arrived late (seq < expected) can only mean a duplicate or a channel
// violation the protocol assumes away, so it is dropped and logged
// rather than requeued: requeueing it would just fail this same check
// forever and spin the dispatch loop.
func checkFIFO(node *core.Node, msg types.Message, raw []byte) (skip bool) {
	if !node.FIFO {
		return false
	}
	sender, ok := msg.GetSender()
	if !ok {
		return false
	}
	seq, ok := msg.GetSeq()
	if !ok {
		return false
	}
	expected := node.RecvSeq[sender]
	switch {
	case seq > expected:
		node.Log.Debugf("out of order message from %d: expected seq %d, got %d; requeueing", sender, expected, seq)
		node.Queue.Insert(raw)
		return true
	case seq < expected:
		node.Log.Warnf("dropping late/duplicate message from %d: expected seq %d, got %d", sender, expected, seq)
		return true
	}
	node.RecvSeq[sender] = expected + 1
	return false
}

func reportFailure(node *core.Node, protocol Protocol, r interface{}) {
	node.Log.Errorf("fatal error in node %d: %v", node.ID, r)
	failure := types.NewTerminationMessage(types.Error, node.ID, fmt.Sprint(r))
	if err := node.SendBack(failure); err != nil {
		node.Log.Errorf("failed reporting fatal error to coordinator: %v", err)
	}
	if err := protocol.Cleanup(); err != nil {
		node.Log.Warnf("cleanup during error boundary: %v", err)
	}
	_ = node.Cleanup()
}
