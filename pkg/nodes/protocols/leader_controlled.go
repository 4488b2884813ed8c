package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// LeaderElectionControlledDistance bounds each candidacy's travel
// distance, doubling the bound and retrying on both sides until one
// candidate's wave completes the full ring unopposed. Grounded on
// spec §4.6.5.
type LeaderElectionControlledDistance struct {
	engine.Base
	ring *core.RingNode

	limit     int
	backCount int
	pending   map[int]int // origin -> neighbor the in-flight FORTH for that origin arrived from

	Leader bool
}

func NewLeaderElectionControlledDistance(ring *core.RingNode) *LeaderElectionControlledDistance {
	return &LeaderElectionControlledDistance{Base: engine.Base{Node: ring.Node}, ring: ring}
}

func (l *LeaderElectionControlledDistance) Setup() error {
	l.limit = 1
	l.backCount = 0
	l.pending = map[int]int{}
	l.Leader = false
	return nil
}

func (l *LeaderElectionControlledDistance) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.WakeUpMessage:
		return false, l.ring.SendToAll(types.NewDistanceMessage(types.Forth, l.ring.ID, l.ring.ID, l.limit), true)
	case *types.DistanceMessage:
		switch m.GetCommand() {
		case types.Forth:
			return l.handleForth(m)
		case types.Back:
			return l.handleBack(m)
		default:
			return false, fmt.Errorf("leader election controlled distance: unexpected command %s", m.GetCommand())
		}
	case *types.ElectionMessage:
		if m.GetCommand() != types.Notify {
			return false, fmt.Errorf("leader election controlled distance: unexpected command %s", m.GetCommand())
		}
		sender, _ := m.GetSender()
		l.Leader = false
		return true, l.ring.SendTo(types.NewElectionMessage(types.Notify, l.ring.ID, m.Origin), l.ring.Other(sender))
	default:
		return false, fmt.Errorf("leader election controlled distance: unexpected message kind %s", msg.Kind())
	}
}

func (l *LeaderElectionControlledDistance) handleForth(m *types.DistanceMessage) (bool, error) {
	if m.Origin == l.ring.ID {
		l.Leader = true
		l.ring.Log.Infof("node %d elected leader (controlled distance)", l.ring.ID)
		return true, l.ring.SendTo(types.NewElectionMessage(types.Notify, l.ring.ID, l.ring.ID), l.ring.Next())
	}
	sender, _ := m.GetSender()
	remaining := m.Limit - 1
	if remaining <= 0 {
		return false, l.ring.SendTo(types.NewDistanceMessage(types.Back, l.ring.ID, m.Origin, 0), sender)
	}
	l.pending[m.Origin] = sender
	return false, l.ring.SendTo(types.NewDistanceMessage(types.Forth, l.ring.ID, m.Origin, remaining), l.ring.Other(sender))
}

func (l *LeaderElectionControlledDistance) handleBack(m *types.DistanceMessage) (bool, error) {
	if m.Origin == l.ring.ID {
		l.backCount++
		if l.backCount == 2 {
			l.backCount = 0
			l.limit *= 2
			return false, l.ring.SendToAll(types.NewDistanceMessage(types.Forth, l.ring.ID, l.ring.ID, l.limit), true)
		}
		return false, nil
	}
	prevSender, ok := l.pending[m.Origin]
	if !ok {
		return false, fmt.Errorf("leader election controlled distance: unexpected back for origin %d", m.Origin)
	}
	delete(l.pending, m.Origin)
	return false, l.ring.SendTo(types.NewDistanceMessage(types.Back, l.ring.ID, m.Origin, 0), prevSender)
}
