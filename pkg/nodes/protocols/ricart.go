package protocols

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// RicartAgrawala is the Ricart-Agrawala optimization of Lamport's
// mutual exclusion: no RELEASE messages, a REQUEST is answered
// immediately unless the receiver has higher priority for the same
// critical section round, in which case the reply is deferred until
// the receiver itself leaves the critical section. Grounded on spec
// §4.6.10.
type RicartAgrawala struct {
	engine.Base
	node    *core.Node
	clock   core.LogicalClock
	entries int
	Silent  bool

	mu               sync.Mutex
	state            types.State
	currentRequestLC uint64
	receivedReplies  map[int]bool
	deferred         []int
	csCount          int
	ends             map[int]bool
}

func NewRicartAgrawala(node *core.Node) *RicartAgrawala {
	return &RicartAgrawala{
		Base:    engine.Base{Node: node},
		node:    node,
		clock:   core.NewLogicalClock(),
		entries: definition.MutexCriticalSectionEntries,
	}
}

func (r *RicartAgrawala) Setup() error {
	r.state = types.Idle
	r.receivedReplies = map[int]bool{}
	r.deferred = nil
	r.csCount = 0
	r.ends = map[int]bool{}

	rng := rand.New(rand.NewSource(int64((r.node.ID + 1) * 32)))
	t1 := time.Duration(1+rng.Intn(3)) * time.Second
	t2 := time.Duration(5+rng.Intn(4)) * time.Second
	r.node.Invoker.Spawn(func() { r.requestCS(t1) })
	r.node.Invoker.Spawn(func() { r.requestCS(t2) })
	return nil
}

// requestCS busy-waits, retrying every delay, until it observes IDLE
// before firing its request, mirroring RicardMutualExclusion.py's
// `request_CS` retry loop.
func (r *RicartAgrawala) requestCS(delay time.Duration) {
	for {
		time.Sleep(delay)
		r.mu.Lock()
		if r.state != types.Idle {
			r.mu.Unlock()
			continue
		}
		r.state = types.Requesting
		r.currentRequestLC = r.clock.Tick()
		r.receivedReplies = map[int]bool{}
		ts := r.currentRequestLC
		r.mu.Unlock()
		if err := r.node.SendToAll(types.NewMutualExclusionMessage(types.Request, ts, r.node.ID), true); err != nil {
			r.node.Log.Warnf("ricart-agrawala: failed broadcasting request: %v", err)
		}
		return
	}
}

// Cleanup sends the usual end-of-protocol marker plus this worker's
// total outgoing message count, matching
// RicardMutualExclusion.py's cleanup override.
func (r *RicartAgrawala) Cleanup() error {
	if err := r.Base.Cleanup(); err != nil {
		return err
	}
	return r.node.SendTotalMessages()
}

func (r *RicartAgrawala) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.TerminationMessage:
		if m.GetCommand() != types.End {
			return false, fmt.Errorf("ricart-agrawala: unexpected termination command %s", m.GetCommand())
		}
		sender, _ := m.GetSender()
		r.mu.Lock()
		r.ends[sender] = true
		done := len(r.ends) == len(r.node.Neighbors())
		r.mu.Unlock()
		return done, nil
	case *types.MutualExclusionMessage:
		return r.handleMutex(m)
	default:
		return false, fmt.Errorf("ricart-agrawala: unexpected message kind %s", msg.Kind())
	}
}

func (r *RicartAgrawala) handleMutex(m *types.MutualExclusionMessage) (bool, error) {
	sender, _ := m.GetSender()
	switch m.GetCommand() {
	case types.Request:
		r.mu.Lock()
		ts := r.clock.Leap(m.Timestamp)
		switch r.state {
		case types.InCS:
			r.deferred = append(r.deferred, sender)
			r.mu.Unlock()
			return false, nil
		case types.Requesting:
			selfWins := lexLess(r.currentRequestLC, r.node.ID, m.Timestamp, sender)
			if selfWins {
				r.deferred = append(r.deferred, sender)
				r.mu.Unlock()
				return false, nil
			}
			r.mu.Unlock()
			reply := types.NewMutualExclusionMessage(types.Reply, ts, r.node.ID)
			return false, r.node.SendTo(reply, sender)
		default: // Idle
			r.mu.Unlock()
			reply := types.NewMutualExclusionMessage(types.Reply, ts, r.node.ID)
			return false, r.node.SendTo(reply, sender)
		}
	case types.Reply:
		r.mu.Lock()
		r.clock.Leap(m.Timestamp)
		r.receivedReplies[sender] = true
		ready := len(r.receivedReplies) == len(r.node.Neighbors())
		r.mu.Unlock()
		if ready {
			return false, r.accessCS()
		}
		return false, nil
	default:
		return false, fmt.Errorf("ricart-agrawala: unexpected command %s", m.GetCommand())
	}
}

// lexLess reports whether (lcA, idA) < (lcB, idB) lexicographically.
func lexLess(lcA uint64, idA int, lcB uint64, idB int) bool {
	if lcA != lcB {
		return lcA < lcB
	}
	return idA < idB
}

func (r *RicartAgrawala) accessCS() error {
	r.mu.Lock()
	r.state = types.InCS
	r.mu.Unlock()

	if !r.Silent {
		r.node.Log.Infof("node %d accessed the critical section", r.node.ID)
	}
	occupancy := time.Duration(1+rand.Intn(2)) * time.Second
	time.Sleep(occupancy)
	if !r.Silent {
		r.node.Log.Infof("node %d released the critical section", r.node.ID)
	}

	r.mu.Lock()
	r.state = types.Idle
	deferred := r.deferred
	r.deferred = nil
	r.csCount++
	count := r.csCount
	r.mu.Unlock()

	for _, neighbor := range deferred {
		reply := types.NewMutualExclusionMessage(types.Reply, r.clock.Tick(), r.node.ID)
		if err := r.node.SendTo(reply, neighbor); err != nil {
			return err
		}
	}

	if count == r.entries {
		return r.node.SendToAll(types.NewTerminationMessage(types.End, r.node.ID, ""), false)
	}
	return nil
}
