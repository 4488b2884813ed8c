package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Shout builds a spanning tree of an arbitrary connected graph by
// flooding a Q/YES/NO handshake outward from a single root. Grounded
// on spec §4.6.7.
type Shout struct {
	engine.Base
	node *core.Node

	state         types.State
	counter       int
	parent        int
	hasParent     bool
	treeNeighbors []int
}

func NewShout(node *core.Node) *Shout {
	return &Shout{Base: engine.Base{Node: node}, node: node}
}

func (s *Shout) Setup() error {
	s.state = types.Idle
	s.counter = 0
	s.hasParent = false
	s.treeNeighbors = nil
	return nil
}

func (s *Shout) Handle(msg types.Message) (bool, error) {
	if _, isWake := msg.(*types.WakeUpMessage); isWake {
		msg = types.NewGenericMessage(types.WakeUp, s.node.ID)
	}
	m, ok := msg.(*types.GenericMessage)
	if !ok {
		return false, fmt.Errorf("shout: unexpected message kind %s", msg.Kind())
	}
	sender, _ := m.GetSender()

	switch s.state {
	case types.Idle:
		switch m.GetCommand() {
		case types.WakeUp, types.Q:
			return s.handleIdle(m, sender)
		default:
			return false, fmt.Errorf("shout: unexpected command %s while idle", m.GetCommand())
		}
	case types.Active:
		switch m.GetCommand() {
		case types.Q:
			return false, s.node.SendTo(types.NewGenericMessage(types.No, s.node.ID), sender)
		case types.Yes:
			s.treeNeighbors = append(s.treeNeighbors, sender)
			s.counter++
			return s.checkDone()
		case types.No:
			s.counter++
			return s.checkDone()
		default:
			return false, fmt.Errorf("shout: unexpected command %s while active", m.GetCommand())
		}
	default:
		return false, fmt.Errorf("shout: handled message while in terminal state")
	}
}

func (s *Shout) handleIdle(m *types.GenericMessage, sender int) (bool, error) {
	if m.GetCommand() == types.Q {
		s.hasParent = true
		s.parent = sender
		s.treeNeighbors = append(s.treeNeighbors, sender)
		s.counter = 1
		if err := s.node.SendTo(types.NewGenericMessage(types.Yes, s.node.ID), sender); err != nil {
			return false, err
		}
		if done, err := s.checkDone(); done || err != nil {
			return done, err
		}
		if err := s.node.SendToAllExcept(sender, types.NewGenericMessage(types.Q, s.node.ID)); err != nil {
			return false, err
		}
		s.state = types.Active
		return false, nil
	}
	// root: WAKEUP
	s.counter = 0
	s.state = types.Active
	return false, s.node.SendToAll(types.NewGenericMessage(types.Q, s.node.ID), true)
}

func (s *Shout) checkDone() (bool, error) {
	if s.counter == len(s.node.Neighbors()) {
		s.state = types.Done
		s.node.Log.Infof("shout complete, tree neighbors: %v", s.treeNeighbors)
		return true, nil
	}
	return false, nil
}
