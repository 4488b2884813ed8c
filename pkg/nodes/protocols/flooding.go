// Package protocols implements the ten distributed algorithms the
// simulation harness runs: flooding, ring counting, three leader
// election variants, DFT and Shout spanning-tree construction, Bully,
// and the two mutual-exclusion protocols. Each type satisfies
// engine.Protocol.
package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Flooding broadcasts one INFORM wave over an arbitrary connected
// graph: on WAKEUP, a vertex informs every neighbor; on first receipt
// of INFORM, a vertex informs every neighbor but the sender. Every
// vertex terminates after its single action.
type Flooding struct {
	engine.Base
	node  *core.Node
	state types.State
}

func NewFlooding(node *core.Node) *Flooding {
	return &Flooding{Base: engine.Base{Node: node}, node: node}
}

func (f *Flooding) Setup() error {
	f.state = types.Asleep
	return nil
}

func (f *Flooding) Handle(msg types.Message) (bool, error) {
	if f.state != types.Asleep {
		return true, nil
	}
	switch m := msg.(type) {
	case *types.WakeUpMessage:
		f.state = types.Done
		return true, f.node.SendToAll(types.NewGenericMessage(types.Inform, f.node.ID), true)
	case *types.GenericMessage:
		if m.GetCommand() != types.Inform {
			return false, fmt.Errorf("flooding: unexpected command %s", m.GetCommand())
		}
		f.state = types.Done
		sender, _ := m.GetSender()
		return true, f.node.SendToAllExcept(sender, types.NewGenericMessage(types.Inform, f.node.ID))
	default:
		return false, fmt.Errorf("flooding: unexpected message kind %s", msg.Kind())
	}
}
