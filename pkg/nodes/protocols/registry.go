package protocols

import (
	"fmt"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
)

// Known protocol names, passed through as the fourth worker argv
// entry and used by the Coordinator to pick how it wakes the network.
const (
	NameFlooding        = "flooding"
	NameRingCount       = "ring-count"
	NameLeaderAtw       = "leader-atw"
	NameLeaderAsFar     = "leader-asfar"
	NameLeaderControlled = "leader-controlled"
	NameDFT             = "dft"
	NameShout           = "shout"
	NameBully           = "bully"
	NameLamport         = "lamport"
	NameRicartAgrawala  = "ricart-agrawala"
)

// Build constructs the named protocol bound to node, wrapping it in a
// RingNode first for the topology-aware algorithms.
func Build(name string, node *core.Node) (engine.Protocol, error) {
	switch name {
	case NameFlooding:
		return NewFlooding(node), nil
	case NameRingCount:
		ring, err := core.NewRingNode(node)
		if err != nil {
			return nil, err
		}
		return NewRingCount(ring), nil
	case NameLeaderAtw:
		ring, err := core.NewRingNode(node)
		if err != nil {
			return nil, err
		}
		return NewLeaderElectionAtw(ring), nil
	case NameLeaderAsFar:
		ring, err := core.NewRingNode(node)
		if err != nil {
			return nil, err
		}
		return NewLeaderElectionAsFar(ring), nil
	case NameLeaderControlled:
		ring, err := core.NewRingNode(node)
		if err != nil {
			return nil, err
		}
		return NewLeaderElectionControlledDistance(ring), nil
	case NameDFT:
		return NewDFT(node), nil
	case NameShout:
		return NewShout(node), nil
	case NameBully:
		return NewBully(node), nil
	case NameLamport:
		return NewLamport(node), nil
	case NameRicartAgrawala:
		return NewRicartAgrawala(node), nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", name)
	}
}
