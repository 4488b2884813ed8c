package core

import "github.com/dsimnet/nodes/pkg/nodes/types"

// VisualizerSink mirrors every inter-worker send to a visualizer port
// as a VisualizationMessage. Rendering the mirrored stream (the
// matplotlib-based live graph view in the Python reference) stays out
// of scope; only the worker-side duplicate-send contract is
// implemented, grounded on original_source/Nodes/Node.py's `_send`
// and `_send_eov`.
type VisualizerSink struct {
	transport Transport
	host      string
	port      int
}

// NewVisualizerSink builds a sink targeting host:port. A nil
// *VisualizerSink is a valid zero-cost no-op receiver for Mirror/Close.
func NewVisualizerSink(transport Transport, host string, port int) *VisualizerSink {
	return &VisualizerSink{transport: transport, host: host, port: port}
}

// Mirror duplicates msg, wrapped with its intended receiver, to the
// visualizer. Failures are swallowed: the visualizer is an optional
// observer and must never affect protocol correctness.
func (v *VisualizerSink) Mirror(msg types.Message, receiver int) {
	if v == nil {
		return
	}
	wrapped, err := types.NewVisualizationMessage(msg, receiver)
	if err != nil {
		return
	}
	data, err := types.Serialize(wrapped)
	if err != nil {
		return
	}
	_ = v.transport.Send(v.host, v.port, data)
}

// Close sends the end-of-visualization marker.
func (v *VisualizerSink) Close(sender int) {
	if v == nil {
		return
	}
	data, err := types.Serialize(types.NewEndOfVisualizationMessage(sender))
	if err != nil {
		return
	}
	_ = v.transport.Send(v.host, v.port, data)
}
