package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// LeaderElectionAtw is the "All-The-Way" ring leader election: every
// vertex forwards every ELECTION it sees, its own candidacy included
// when that comes back around, and counts the forwards. A vertex
// learns the ring size from its own candidacy's hop counter; once it
// has forwarded that many ELECTIONs, it knows the minimum id seen is
// the leader. Grounded on spec §4.6.3.
type LeaderElectionAtw struct {
	engine.Base
	ring *core.RingNode

	min            int
	known          bool
	ringSize       int
	forwardedCount int
	decided        bool

	Leader bool
}

func NewLeaderElectionAtw(ring *core.RingNode) *LeaderElectionAtw {
	return &LeaderElectionAtw{Base: engine.Base{Node: ring.Node}, ring: ring}
}

func (l *LeaderElectionAtw) Setup() error {
	l.min = l.ring.ID
	l.known = false
	l.ringSize = 0
	l.forwardedCount = 0
	l.decided = false
	l.Leader = false
	return nil
}

func (l *LeaderElectionAtw) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.WakeUpMessage:
		return false, l.ring.SendTo(types.NewRingMessage(types.Election, l.ring.ID, 1, l.ring.ID), l.ring.Next())
	case *types.RingMessage:
		if m.GetCommand() != types.Election {
			return false, fmt.Errorf("leader election atw: unexpected command %s", m.GetCommand())
		}
		if m.Origin < l.min {
			l.min = m.Origin
		}
		if m.Origin == l.ring.ID {
			l.ringSize = m.Counter
			l.known = true
		}
		sender, _ := m.GetSender()
		if err := l.ring.SendTo(types.NewRingMessage(types.Election, l.ring.ID, m.Counter+1, m.Origin), l.ring.Other(sender)); err != nil {
			return false, err
		}
		l.forwardedCount++
		if l.known && !l.decided && l.forwardedCount == l.ringSize {
			l.decided = true
			if l.min == l.ring.ID {
				l.Leader = true
				l.ring.Log.Infof("node %d elected leader (all-the-way)", l.ring.ID)
				if err := l.ring.SendTo(types.NewGenericMessage(types.Term, l.ring.ID), l.ring.Next()); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		return false, nil
	case *types.GenericMessage:
		if m.GetCommand() != types.Term {
			return false, fmt.Errorf("leader election atw: unexpected command %s", m.GetCommand())
		}
		sender, _ := m.GetSender()
		return true, l.ring.SendTo(types.NewGenericMessage(types.Term, l.ring.ID), l.ring.Other(sender))
	default:
		return false, fmt.Errorf("leader election atw: unexpected message kind %s", msg.Kind())
	}
}
