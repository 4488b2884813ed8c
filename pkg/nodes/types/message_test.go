package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsimnet/nodes/pkg/nodes/types"
)

func TestSerializeDeserialize_RoundTripsEveryField(t *testing.T) {
	original := types.NewRingMessage(types.Count, 3, 7, 3)

	raw, err := types.Serialize(original)
	require.NoError(t, err)

	decoded, err := types.Deserialize(raw)
	require.NoError(t, err)

	ring, ok := decoded.(*types.RingMessage)
	require.True(t, ok, "expected a *RingMessage back out")
	require.Equal(t, types.Count, ring.GetCommand())
	require.Equal(t, 7, ring.Counter)
	require.Equal(t, 3, ring.Origin)

	sender, ok := ring.GetSender()
	require.True(t, ok)
	require.Equal(t, 3, sender)
}

func TestDeserialize_UnknownKindIsAnExplicitError(t *testing.T) {
	_, err := types.Deserialize([]byte(`{"kind":"NOT_A_REAL_KIND","data":{}}`))
	require.ErrorIs(t, err, types.ErrUnknownMessageKind)
}

func TestDeserialize_MalformedEnvelopeErrors(t *testing.T) {
	_, err := types.Deserialize([]byte("not json at all"))
	require.Error(t, err)
}

func TestMessage_NoSenderVariantReportsFalse(t *testing.T) {
	msg := types.NewWakeUpMessage()
	_, ok := msg.GetSender()
	require.False(t, ok, "coordinator-originated messages must report no sender")

	_, ok = msg.GetSeq()
	require.False(t, ok, "seq is unset until SetSeq is called")

	msg.SetSeq(42)
	seq, ok := msg.GetSeq()
	require.True(t, ok)
	require.Equal(t, uint64(42), seq)
}

func TestGenericMessage_CarriesCommandAndSender(t *testing.T) {
	msg := types.NewGenericMessage(types.Election, 5)
	require.Equal(t, types.Election, msg.GetCommand())

	sender, ok := msg.GetSender()
	require.True(t, ok)
	require.Equal(t, 5, sender)
}

func TestVisualizationMessage_WrapsAnArbitraryPayload(t *testing.T) {
	payload := types.NewGenericMessage(types.Forward, 1)

	wrapped, err := types.NewVisualizationMessage(payload, 9)
	require.NoError(t, err)
	require.Equal(t, 9, wrapped.Receiver)

	raw, err := types.Serialize(wrapped)
	require.NoError(t, err)

	decoded, err := types.Deserialize(raw)
	require.NoError(t, err)

	got, ok := decoded.(*types.VisualizationMessage)
	require.True(t, ok)
	require.Equal(t, 9, got.Receiver)

	inner, err := types.Deserialize(got.Payload)
	require.NoError(t, err)
	genericInner, ok := inner.(*types.GenericMessage)
	require.True(t, ok)
	require.Equal(t, types.Forward, genericInner.GetCommand())
}

func TestSetupMessage_PreservesEdgesAndLocalDNS(t *testing.T) {
	edges := []types.Edge{{From: 0, To: 1}, {From: 0, To: 2}}
	dns := map[int]int{1: 9001, 2: 9002}

	original := types.NewSetupMessage(0, edges, dns, false, "/tmp/exp", 0)
	raw, err := types.Serialize(original)
	require.NoError(t, err)

	decoded, err := types.Deserialize(raw)
	require.NoError(t, err)

	setup, ok := decoded.(*types.SetupMessage)
	require.True(t, ok)
	require.Equal(t, 0, setup.Node)
	require.Equal(t, edges, setup.Edges)
	require.Equal(t, dns, setup.LocalDNS)
	require.False(t, setup.Shell)
	require.Equal(t, "/tmp/exp", setup.ExperimentPath)
}
