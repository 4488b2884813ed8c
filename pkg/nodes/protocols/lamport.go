package protocols

import (
	"container/heap"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// csRequest is a (timestamp, requester) pair ordered by timestamp with
// ties broken toward the smaller requester id, matching the Python
// reference's heapq tuple ordering.
type csRequest struct {
	timestamp uint64
	requester int
}

type csHeap []csRequest

func (h csHeap) Len() int { return len(h) }
func (h csHeap) Less(i, j int) bool {
	if h[i].timestamp != h[j].timestamp {
		return h[i].timestamp < h[j].timestamp
	}
	return h[i].requester < h[j].requester
}
func (h csHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *csHeap) Push(x interface{}) { *h = append(*h, x.(csRequest)) }
func (h *csHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Lamport is Lamport's mutual exclusion algorithm over a complete
// graph: every worker requests the critical section a configured
// number of times, ordering entries by Lamport timestamp with a
// REQUEST/REPLY/RELEASE exchange. Grounded on spec §4.6.9.
type Lamport struct {
	engine.Base
	node    *core.Node
	clock   core.LogicalClock
	entries int
	Silent  bool

	mu       sync.Mutex
	requests csHeap
	history  map[int][]uint64
	usingCS  bool
	csCount  int
	ends     map[int]bool
}

func NewLamport(node *core.Node) *Lamport {
	return &Lamport{
		Base:    engine.Base{Node: node},
		node:    node,
		clock:   core.NewLogicalClock(),
		entries: definition.MutexCriticalSectionEntries,
	}
}

func (l *Lamport) Setup() error {
	l.requests = nil
	heap.Init(&l.requests)
	l.history = map[int][]uint64{}
	for _, n := range l.node.Neighbors() {
		l.history[n] = nil
	}
	l.usingCS = false
	l.csCount = 0
	l.ends = map[int]bool{}

	rng := rand.New(rand.NewSource(int64((l.node.ID + 1) * 32)))
	t1 := time.Duration(1+rng.Intn(3)) * time.Second
	t2 := time.Duration(5+rng.Intn(4)) * time.Second
	l.node.Invoker.Spawn(func() { l.requestCS(t1) })
	l.node.Invoker.Spawn(func() { l.requestCS(t2) })
	return nil
}

func (l *Lamport) requestCS(delay time.Duration) {
	time.Sleep(delay)
	l.mu.Lock()
	ts := l.clock.Tick()
	heap.Push(&l.requests, csRequest{timestamp: ts, requester: l.node.ID})
	l.mu.Unlock()
	if err := l.node.SendToAll(types.NewMutualExclusionMessage(types.Request, ts, l.node.ID), true); err != nil {
		l.node.Log.Warnf("lamport: failed broadcasting request: %v", err)
	}
}

// Cleanup sends the usual end-of-protocol marker plus this worker's
// total outgoing message count, matching
// LamportMutualExclusion.py's cleanup override.
func (l *Lamport) Cleanup() error {
	if err := l.Base.Cleanup(); err != nil {
		return err
	}
	return l.node.SendTotalMessages()
}

func (l *Lamport) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.TerminationMessage:
		if m.GetCommand() != types.End {
			return false, fmt.Errorf("lamport: unexpected termination command %s", m.GetCommand())
		}
		sender, _ := m.GetSender()
		l.mu.Lock()
		l.ends[sender] = true
		done := len(l.ends) == len(l.node.Neighbors())
		l.mu.Unlock()
		return done, nil
	case *types.MutualExclusionMessage:
		return l.handleMutex(m)
	default:
		return false, fmt.Errorf("lamport: unexpected message kind %s", msg.Kind())
	}
}

func (l *Lamport) handleMutex(m *types.MutualExclusionMessage) (bool, error) {
	sender, _ := m.GetSender()
	switch m.GetCommand() {
	case types.Request:
		l.mu.Lock()
		ts := l.clock.Leap(m.Timestamp)
		heap.Push(&l.requests, csRequest{timestamp: m.Timestamp, requester: sender})
		inCS := l.usingCS
		l.mu.Unlock()
		if !inCS {
			reply := types.NewMutualExclusionMessage(types.Reply, ts, l.node.ID)
			if err := l.node.SendTo(reply, sender); err != nil {
				return false, err
			}
		}
		return false, nil
	case types.Release:
		l.mu.Lock()
		l.clock.Leap(m.Timestamp)
		l.history[sender] = append(l.history[sender], m.Timestamp)
		if l.requests.Len() > 0 {
			heap.Pop(&l.requests)
		}
		l.mu.Unlock()
		return false, l.accessCheck()
	case types.Reply:
		l.mu.Lock()
		l.clock.Leap(m.Timestamp)
		l.history[sender] = append(l.history[sender], m.Timestamp)
		l.mu.Unlock()
		return false, l.accessCheck()
	default:
		return false, fmt.Errorf("lamport: unexpected command %s", m.GetCommand())
	}
}

// accessCheck re-heapifies the pending request queue and enters the
// critical section once this worker's own request is at the top and
// every peer has logged a strictly later timestamp, mirroring
// LamportMutualExclusion.py's `access_check`.
func (l *Lamport) accessCheck() error {
	l.mu.Lock()
	heap.Init(&l.requests)
	if l.requests.Len() == 0 {
		l.mu.Unlock()
		return nil
	}
	top := l.requests[0]
	if top.requester != l.node.ID {
		l.mu.Unlock()
		return nil
	}
	for _, timestamps := range l.history {
		found := false
		for _, ts := range timestamps {
			if ts > top.timestamp {
				found = true
				break
			}
		}
		if !found {
			l.mu.Unlock()
			return nil
		}
	}
	l.mu.Unlock()
	return l.accessCS(top.timestamp)
}

func (l *Lamport) accessCS(myTimestamp uint64) error {
	l.mu.Lock()
	l.usingCS = true
	l.mu.Unlock()
	if !l.Silent {
		l.node.Log.Infof("node %d accessed the critical section", l.node.ID)
	} else {
		l.node.Log.Debugf("node %d accessed the critical section", l.node.ID)
	}

	occupancy := time.Duration(1+rand.Intn(2)) * time.Second
	ts := l.clock.Tick()
	time.Sleep(occupancy)

	if !l.Silent {
		l.node.Log.Infof("node %d released the critical section", l.node.ID)
	}

	l.mu.Lock()
	l.usingCS = false
	l.csCount++
	if l.requests.Len() > 0 {
		heap.Pop(&l.requests)
	}
	count := l.csCount
	l.mu.Unlock()

	if err := l.node.SendToAll(types.NewMutualExclusionMessage(types.Release, ts, l.node.ID), true); err != nil {
		return err
	}

	if count == l.entries {
		return l.node.SendToAll(types.NewTerminationMessage(types.End, l.node.ID, ""), false)
	}
	return nil
}
