package types

import "encoding/json"

func init() {
	Register("WAKEUP", func() Message { return &WakeUpMessage{} })
	Register("START_AT", func() Message { return &StartAtMessage{} })
	Register("RDY", func() Message { return &ReadyMessage{} })
	Register("SETUP", func() Message { return &SetupMessage{} })
	Register("GENERIC", func() Message { return &GenericMessage{} })
	Register("COUNT_M", func() Message { return &CountMessage{} })
	Register("TERMINATION", func() Message { return &TerminationMessage{} })
	Register("MUTEX", func() Message { return &MutualExclusionMessage{} })
	Register("VISUALIZATION", func() Message { return &VisualizationMessage{} })
	Register("EOV", func() Message { return &EndOfVisualizationMessage{} })
	Register("RING", func() Message { return &RingMessage{} })
	Register("ELECTION", func() Message { return &ElectionMessage{} })
	Register("DISTANCE", func() Message { return &DistanceMessage{} })
}

// WakeUpMessage tells a worker to begin its protocol's initiator path
// immediately. Grounded on original_source/Nodes/messages.py's
// WakeUpMessage.
type WakeUpMessage struct {
	base
}

func NewWakeUpMessage() *WakeUpMessage {
	return &WakeUpMessage{base: newBaseNoSender(WakeUp)}
}

func (m *WakeUpMessage) Kind() string { return "WAKEUP" }

// StartAtMessage carries an absolute wall-clock instant the worker
// should suspend until before starting, mirroring WakeupAllMessage's
// year/month/day/hour/minute/second fields.
type StartAtMessage struct {
	base
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

func NewStartAtMessage(year, month, day, hour, minute, second int) *StartAtMessage {
	return &StartAtMessage{
		base:   newBaseNoSender(StartAt),
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   hour,
		Minute: minute,
		Second: second,
	}
}

func (m *StartAtMessage) Kind() string { return "START_AT" }

// ReadyMessage is the worker's handshake ack to the Coordinator after
// binding its listening socket.
type ReadyMessage struct {
	base
}

func NewReadyMessage(sender int) *ReadyMessage {
	return &ReadyMessage{base: newBase(Ready, sender)}
}

func (m *ReadyMessage) Kind() string { return "RDY" }

// Edge is a (neighbor id) pair as seen from the perspective of the
// node the edge list is addressed to.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SetupMessage carries everything a worker needs to join the
// simulation, mirroring original_source/Nodes/messages.py's
// SetupMessage (node/edges/local_dns/shell/exp_path/visualizer_port).
type SetupMessage struct {
	base
	Node           int         `json:"node"`
	Edges          []Edge      `json:"edges"`
	LocalDNS       map[int]int `json:"local_dns"`
	Shell          bool        `json:"shell"`
	ExperimentPath string      `json:"experiment_path"`
	VisualizerPort int         `json:"visualizer_port,omitempty"`
}

func NewSetupMessage(node int, edges []Edge, localDNS map[int]int, shell bool, expPath string, visualizerPort int) *SetupMessage {
	return &SetupMessage{
		base:           newBaseNoSender(Setup),
		Node:           node,
		Edges:          edges,
		LocalDNS:       localDNS,
		Shell:          shell,
		ExperimentPath: expPath,
		VisualizerPort: visualizerPort,
	}
}

func (m *SetupMessage) Kind() string { return "SETUP" }

// GenericMessage carries only a command and sender, the shape used by
// the majority of protocol traffic (I/Q/YES/NO/FWD/RETURN/BACK_EDGE/
// TERM/SOP, and Bully's Election/REPLY) as the Python reference's bare
// Message(command, sender) is used across Flooding/Shout/Dft/Bully and
// All-The-Way leader election's TERM.
type GenericMessage struct {
	base
}

func NewGenericMessage(command Command, sender int) *GenericMessage {
	return &GenericMessage{base: newBase(command, sender)}
}

func (m *GenericMessage) Kind() string { return "GENERIC" }

// CountMessage reports a per-worker traffic count at teardown (COUNT_M
// sent to the Coordinator).
type CountMessage struct {
	base
	Counter int `json:"counter"`
}

func NewCountMessage(command Command, sender, counter int) *CountMessage {
	return &CountMessage{base: newBase(command, sender), Counter: counter}
}

func (m *CountMessage) Kind() string { return "COUNT_M" }

// TerminationMessage is sent by a worker to the Coordinator on
// END_PROTOCOL or ERROR, and by the Coordinator to all workers to
// force a shutdown after a peer crash.
type TerminationMessage struct {
	base
	Payload string `json:"payload,omitempty"`
}

func NewTerminationMessage(command Command, sender int, payload string) *TerminationMessage {
	return &TerminationMessage{base: newBase(command, sender), Payload: payload}
}

// NewTerminationMessageNoSender builds a Coordinator-originated
// termination broadcast, which carries no sender field.
func NewTerminationMessageNoSender(command Command, payload string) *TerminationMessage {
	return &TerminationMessage{base: newBaseNoSender(command), Payload: payload}
}

func (m *TerminationMessage) Kind() string { return "TERMINATION" }

// MutualExclusionMessage adds a Lamport timestamp to a generic
// message, grounded on LamportMutualExclusion.py's
// MutualExclusionMessage.
type MutualExclusionMessage struct {
	base
	Timestamp uint64 `json:"timestamp"`
}

func NewMutualExclusionMessage(command Command, timestamp uint64, sender int) *MutualExclusionMessage {
	return &MutualExclusionMessage{base: newBase(command, sender), Timestamp: timestamp}
}

func (m *MutualExclusionMessage) Kind() string { return "MUTEX" }

// VisualizationMessage wraps any payload Message plus its intended
// receiver, mirroring original_source/Nodes/messages.py's
// VisualizationMessage used to mirror traffic to the visualizer.
type VisualizationMessage struct {
	base
	Receiver int             `json:"receiver"`
	Payload  json.RawMessage `json:"payload"`
}

func NewVisualizationMessage(payload Message, receiver int) (*VisualizationMessage, error) {
	raw, err := Serialize(payload)
	if err != nil {
		return nil, err
	}
	return &VisualizationMessage{
		base:     newBaseNoSender(Inform),
		Receiver: receiver,
		Payload:  raw,
	}, nil
}

func (m *VisualizationMessage) Kind() string { return "VISUALIZATION" }

// RingMessage carries a hop counter and the originating vertex id,
// used by Ring Count's FORWARD traffic (spec §4.6.2) and by All-The-Way
// leader election's ELECTION traffic (spec §4.6.3).
type RingMessage struct {
	base
	Counter int `json:"counter"`
	Origin  int `json:"origin"`
}

func NewRingMessage(command Command, sender, counter, origin int) *RingMessage {
	return &RingMessage{base: newBase(command, sender), Counter: counter, Origin: origin}
}

func (m *RingMessage) Kind() string { return "RING" }

// ElectionMessage carries only an origin candidate id, used by
// As-Far-As-It-Can leader election's ELECTION traffic (spec §4.6.4).
type ElectionMessage struct {
	base
	Origin int `json:"origin"`
}

func NewElectionMessage(command Command, sender, origin int) *ElectionMessage {
	return &ElectionMessage{base: newBase(command, sender), Origin: origin}
}

func (m *ElectionMessage) Kind() string { return "ELECTION" }

// DistanceMessage carries an origin candidate id and a hop-limit
// counter, used by Controlled Distance leader election's FORTH/BACK
// traffic (spec §4.6.5).
type DistanceMessage struct {
	base
	Origin int `json:"origin"`
	Limit  int `json:"limit"`
}

func NewDistanceMessage(command Command, sender, origin, limit int) *DistanceMessage {
	return &DistanceMessage{base: newBase(command, sender), Origin: origin, Limit: limit}
}

func (m *DistanceMessage) Kind() string { return "DISTANCE" }

// EndOfVisualizationMessage marks that a worker has finished sending
// traffic to the visualizer.
type EndOfVisualizationMessage struct {
	base
}

func NewEndOfVisualizationMessage(sender int) *EndOfVisualizationMessage {
	return &EndOfVisualizationMessage{base: newBase(EndOfProtocol, sender)}
}

func (m *EndOfVisualizationMessage) Kind() string { return "EOV" }
