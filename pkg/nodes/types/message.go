package types

import "encoding/json"

// Message is the contract every wire payload satisfies. It mirrors the
// Python reference's Message base class (command + sender) generalized
// into an interface so every concrete payload can carry its own fields
// while still being dispatched generically by the protocol engine.
type Message interface {
	// Kind is the self-describing tag used by the registry to pick the
	// concrete Go type back out of a decoded envelope.
	Kind() string
	GetCommand() Command
	// GetSender reports the sending vertex id. Coordinator-originated
	// messages have no sender, mirroring the Python reference's
	// frequent `sender=None`.
	GetSender() (int, bool)
	GetSeq() (uint64, bool)
	SetSeq(seq uint64)
}

// envelope is the self-describing wire format: a type tag plus the
// concrete payload, serialized as JSON the way the teacher's
// core/transport.go marshals every Message it ships over the wire.
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type factory func() Message

var registry = map[string]factory{}

// Register associates a Kind tag with a constructor so Deserialize can
// recover the concrete type. Concrete message files call this from an
// init(), mirroring the Python reference's @Message.register decorator.
func Register(kind string, make factory) {
	if _, exists := registry[kind]; exists {
		panic(ErrDuplicateMessageKind)
	}
	registry[kind] = make
}

// Serialize renders a Message to its wire form.
func Serialize(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: m.Kind(), Data: data})
}

// Deserialize recovers the concrete Message from its wire form. An
// unrecognized Kind tag is never silently dropped: it is surfaced as
// ErrUnknownMessageKind so the caller can decide how to react.
func Deserialize(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	make, ok := registry[env.Kind]
	if !ok {
		return nil, ErrUnknownMessageKind
	}
	m := make()
	if err := json.Unmarshal(env.Data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// base is embedded by every concrete message to supply the
// Sender/Seq bookkeeping the FIFO layer and send primitives need,
// without every message type re-declaring the same three fields.
type base struct {
	Command Command `json:"command"`
	Sender  *int    `json:"sender,omitempty"`
	Seq     *uint64 `json:"seq,omitempty"`
}

func (b *base) GetCommand() Command { return b.Command }

func (b *base) GetSender() (int, bool) {
	if b.Sender == nil {
		return 0, false
	}
	return *b.Sender, true
}

func (b *base) GetSeq() (uint64, bool) {
	if b.Seq == nil {
		return 0, false
	}
	return *b.Seq, true
}

func (b *base) SetSeq(seq uint64) { b.Seq = &seq }

func newBase(command Command, sender int) base {
	s := sender
	return base{Command: command, Sender: &s}
}

func newBaseNoSender(command Command) base {
	return base{Command: command}
}
