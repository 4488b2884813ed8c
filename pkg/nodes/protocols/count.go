package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// RingCount counts the vertices of a ring by forwarding a single
// FORWARD token once around the ring; when it returns to its origin,
// the origin knows the ring size and closes the ring with an END
// broadcast that propagates outward until every vertex has seen it
// once. Grounded on spec §4.6.2.
type RingCount struct {
	engine.Base
	ring   *core.RingNode
	Result int // valid once the initiator has decided
}

func NewRingCount(ring *core.RingNode) *RingCount {
	return &RingCount{Base: engine.Base{Node: ring.Node}, ring: ring}
}

func (c *RingCount) Setup() error {
	c.Result = 0
	return nil
}

func (c *RingCount) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.WakeUpMessage:
		return false, c.ring.SendTo(types.NewRingMessage(types.Forward, c.ring.ID, 1, c.ring.ID), c.ring.Next())
	case *types.RingMessage:
		sender, _ := m.GetSender()
		switch m.GetCommand() {
		case types.Forward:
			if m.Origin == c.ring.ID {
				c.Result = m.Counter
				c.ring.Log.Infof("ring size is %d", c.Result)
				return true, c.ring.SendToAll(types.NewRingMessage(types.End, c.ring.ID, m.Counter, c.ring.ID), true)
			}
			return false, c.ring.SendTo(types.NewRingMessage(types.Forward, c.ring.ID, m.Counter+1, m.Origin), c.ring.Other(sender))
		case types.End:
			return true, c.ring.SendTo(types.NewRingMessage(types.End, c.ring.ID, m.Counter, m.Origin), c.ring.Other(sender))
		default:
			return false, fmt.Errorf("ring count: unexpected command %s", m.GetCommand())
		}
	default:
		return false, fmt.Errorf("ring count: unexpected message kind %s", msg.Kind())
	}
}
