package types

import "errors"

// ErrUnknownMessageKind is returned by Deserialize when the envelope's
// Kind tag has no registered constructor.
var ErrUnknownMessageKind = errors.New("nodes: unknown message kind")

// ErrDuplicateMessageKind is raised by Register when a kind tag is
// registered twice, which indicates a programmer error rather than a
// runtime condition.
var ErrDuplicateMessageKind = errors.New("nodes: message kind already registered")
