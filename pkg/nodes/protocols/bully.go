package protocols

import (
	"fmt"
	"sync"
	"time"

	"github.com/dsimnet/nodes/pkg/nodes/core"
	"github.com/dsimnet/nodes/pkg/nodes/definition"
	"github.com/dsimnet/nodes/pkg/nodes/engine"
	"github.com/dsimnet/nodes/pkg/nodes/types"
)

// Bully elects the highest-id vertex as leader over a complete graph:
// a candidate challenges every higher id and waits out a timeout; if
// nobody higher replies in time it declares itself leader, otherwise
// it yields as soon as a higher id answers. Grounded on spec §4.6.8.
type Bully struct {
	engine.Base
	node    *core.Node
	timeout time.Duration

	state      types.State
	mu         sync.Mutex
	stopTimer  chan struct{}
	stopOnce   sync.Once
	timerStart bool

	Leader bool
}

func NewBully(node *core.Node) *Bully {
	return &Bully{Base: engine.Base{Node: node}, node: node, timeout: definition.BullyTimeout}
}

// WithTimeout overrides the default reference timeout (5s); exposed
// since Bully.py's `wait(self, t:int=5)` already takes this as a
// parameter rather than a hardcoded literal.
func (b *Bully) WithTimeout(d time.Duration) *Bully {
	b.timeout = d
	return b
}

func (b *Bully) Setup() error {
	b.state = types.Asleep
	b.stopTimer = make(chan struct{})
	b.stopOnce = sync.Once{}
	b.timerStart = false
	b.Leader = false
	return nil
}

func (b *Bully) Handle(msg types.Message) (bool, error) {
	if _, isWake := msg.(*types.WakeUpMessage); isWake {
		msg = types.NewGenericMessage(types.WakeUp, b.node.ID)
	}
	m, ok := msg.(*types.GenericMessage)
	if !ok {
		return false, fmt.Errorf("bully: unexpected message kind %s", msg.Kind())
	}
	sender, _ := m.GetSender()

	switch {
	case b.state == types.Asleep && m.GetCommand() == types.WakeUp:
		b.state = types.Active
		b.startTimer()
		return false, b.challengeHigherIDs()
	case b.state == types.Asleep && m.GetCommand() == types.Election:
		b.state = types.Active
		if err := b.node.SendTo(types.NewGenericMessage(types.Reply, b.node.ID), sender); err != nil {
			return false, err
		}
		b.startTimer()
		return false, b.challengeHigherIDs()
	case b.state == types.Active && m.GetCommand() == types.Election:
		return false, b.node.SendTo(types.NewGenericMessage(types.Reply, b.node.ID), sender)
	case b.state == types.Active && m.GetCommand() == types.Reply:
		b.mu.Lock()
		b.Leader = false
		b.mu.Unlock()
		b.stopOnce.Do(func() { close(b.stopTimer) })
		return false, nil
	case m.GetCommand() == types.Term:
		b.mu.Lock()
		leader := b.Leader
		b.mu.Unlock()
		if leader {
			b.node.Log.Infof("node %d elected leader (bully)", b.node.ID)
		} else {
			b.node.Log.Infof("node %d is follower (bully)", b.node.ID)
		}
		return true, nil
	default:
		return false, fmt.Errorf("bully: unexpected (state=%s, command=%s) pair", b.state, m.GetCommand())
	}
}

func (b *Bully) challengeHigherIDs() error {
	for _, neighbor := range b.node.Neighbors() {
		if neighbor > b.node.ID {
			if err := b.node.SendTo(types.NewGenericMessage(types.Election, b.node.ID), neighbor); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Bully) startTimer() {
	if b.timerStart {
		return
	}
	b.timerStart = true
	b.mu.Lock()
	b.Leader = true
	b.mu.Unlock()
	b.node.Invoker.Spawn(func() {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-b.stopTimer:
		}
		_ = b.node.SendToSelf(types.NewGenericMessage(types.Term, b.node.ID))
	})
}
