package engine

import "github.com/dsimnet/nodes/pkg/nodes/core"

// Base gives every protocol the default Cleanup behavior (send
// END_PROTOCOL to the Coordinator), mirroring Protocol.py's base
// `cleanup`. Protocols that report additional teardown stats embed
// Base and override Cleanup, calling Base.Cleanup first; Lamport and
// RicartAgrawala do this to send their traffic count.
type Base struct {
	Node *core.Node
}

func (b *Base) Cleanup() error {
	return b.Node.SendEndOfProtocol()
}
