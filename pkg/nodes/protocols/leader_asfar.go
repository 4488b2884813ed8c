package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// LeaderElectionAsFar is the "As-Far-As-It-Can" ring leader election:
// a candidacy only keeps traveling while it carries the smallest id
// seen so far, so dominated candidacies are suppressed one hop past
// wherever they met a smaller id. Grounded on spec §4.6.4.
type LeaderElectionAsFar struct {
	engine.Base
	ring *core.RingNode

	min    int
	Leader bool
}

func NewLeaderElectionAsFar(ring *core.RingNode) *LeaderElectionAsFar {
	return &LeaderElectionAsFar{Base: engine.Base{Node: ring.Node}, ring: ring}
}

func (l *LeaderElectionAsFar) Setup() error {
	l.min = l.ring.ID
	l.Leader = false
	return nil
}

func (l *LeaderElectionAsFar) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.WakeUpMessage:
		return false, l.ring.SendTo(types.NewElectionMessage(types.Election, l.ring.ID, l.ring.ID), l.ring.Next())
	case *types.ElectionMessage:
		switch m.GetCommand() {
		case types.Election:
			sender, _ := m.GetSender()
			if m.Origin < l.min {
				l.min = m.Origin
				return false, l.ring.SendTo(types.NewElectionMessage(types.Election, l.ring.ID, l.min), l.ring.Other(sender))
			}
			if m.Origin == l.min && m.Origin == l.ring.ID {
				l.Leader = true
				l.ring.Log.Infof("node %d elected leader (as-far-as-it-can)", l.ring.ID)
				return true, l.ring.SendTo(types.NewElectionMessage(types.Notify, l.ring.ID, l.ring.ID), l.ring.Next())
			}
			// dominated candidacy: suppressed one hop past the smaller id.
			return false, nil
		case types.Notify:
			sender, _ := m.GetSender()
			l.Leader = false
			return true, l.ring.SendTo(types.NewElectionMessage(types.Notify, l.ring.ID, m.Origin), l.ring.Other(sender))
		default:
			return false, fmt.Errorf("leader election as-far: unexpected command %s", m.GetCommand())
		}
	default:
		return false, fmt.Errorf("leader election as-far: unexpected message kind %s", msg.Kind())
	}
}
