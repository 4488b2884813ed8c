package protocols

import (
	"fmt"
	"sort"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// DFT builds a spanning tree of an arbitrary connected graph via
// depth-first traversal: each vertex visits its unvisited neighbors
// one at a time, backtracking via RETURN once it runs out, and
// reporting BACK_EDGE when a FORWARD arrives from a neighbor it had
// not yet visited itself (closing a cycle). Grounded on spec §4.6.6.
type DFT struct {
	engine.Base
	node *core.Node

	state         types.State
	initiator     bool
	hasEntry      bool
	entry         int
	unvisited     []int
	treeNeighbors []int
}

func NewDFT(node *core.Node) *DFT {
	return &DFT{Base: engine.Base{Node: node}, node: node}
}

func (d *DFT) Setup() error {
	d.state = types.Idle
	d.initiator = false
	d.hasEntry = false
	neighbors := append([]int(nil), d.node.Neighbors()...)
	sort.Ints(neighbors)
	d.unvisited = neighbors
	d.treeNeighbors = nil
	return nil
}

func (d *DFT) Handle(msg types.Message) (bool, error) {
	switch m := msg.(type) {
	case *types.WakeUpMessage:
		d.initiator = true
		return d.visit()
	case *types.GenericMessage:
		sender, _ := m.GetSender()
		switch m.GetCommand() {
		case types.Forward:
			if d.state == types.Idle {
				d.hasEntry = true
				d.entry = sender
				d.removeUnvisited(sender)
				return d.visit()
			}
			if d.isUnvisited(sender) {
				d.removeUnvisited(sender)
				return false, d.node.SendTo(types.NewGenericMessage(types.BackEdge, d.node.ID), sender)
			}
			return false, nil
		case types.Return:
			d.treeNeighbors = append(d.treeNeighbors, sender)
			return d.visit()
		case types.BackEdge:
			return d.visit()
		default:
			return false, fmt.Errorf("dft: unexpected command %s", m.GetCommand())
		}
	default:
		return false, fmt.Errorf("dft: unexpected message kind %s", msg.Kind())
	}
}

// visit pops the next unvisited neighbor and forwards to it; if none
// remain it backtracks to entry (non-initiator) or terminates
// (initiator).
func (d *DFT) visit() (bool, error) {
	if len(d.unvisited) > 0 {
		next := d.unvisited[0]
		d.unvisited = d.unvisited[1:]
		d.state = types.Visited
		return false, d.node.SendTo(types.NewGenericMessage(types.Forward, d.node.ID), next)
	}
	if !d.initiator {
		err := d.node.SendTo(types.NewGenericMessage(types.Return, d.node.ID), d.entry)
		return true, err
	}
	d.node.Log.Infof("dft complete, tree neighbors: %v", d.treeNeighbors)
	return true, nil
}

func (d *DFT) isUnvisited(neighbor int) bool {
	for _, n := range d.unvisited {
		if n == neighbor {
			return true
		}
	}
	return false
}

func (d *DFT) removeUnvisited(neighbor int) {
	for i, n := range d.unvisited {
		if n == neighbor {
			d.unvisited = append(d.unvisited[:i], d.unvisited[i+1:]...)
			return
		}
	}
}
