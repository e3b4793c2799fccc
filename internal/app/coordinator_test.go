package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/powerfm/livecast/internal/core"
)

func TestStartSessionStrictOnRelayFailure(t *testing.T) {
	te := newTestEnv(time.Minute)
	te.relay.joinErr = &core.RelayError{Detail: "sfu down"}

	_, _, err := te.coord.StartSession(context.Background(), "host-client", &fakeSink{}, "Show", "DJ", "audio", "host-peer")
	require.Error(t, err)
	require.Equal(t, "relay-error", core.ErrorCode(err))
	require.Empty(t, te.coord.Registry.ListSessions())
}

func TestStartSessionProvisionsHostTransport(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, info, err := te.coord.StartSession(context.Background(), "host-client", &fakeSink{}, "Show", "DJ", "audio", "host-peer")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotNil(t, info.Transport)
	require.NotNil(t, info.RTPCapabilities)

	summary, ok := te.coord.Registry.SessionInfo(id)
	require.True(t, ok)
	require.Equal(t, "DJ", summary.HostName)
}

func TestJoinSessionCountsAndNotifies(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, hostSink := te.startSession(t)

	res, err := te.coord.JoinSession(context.Background(), "l1", &fakeSink{}, id, "Ann", "peer-1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Summary.ListenerCount)
	require.Empty(t, res.Info.RelayErr)

	res, err = te.coord.JoinSession(context.Background(), "l2", &fakeSink{}, id, "Bob", "peer-2")
	require.NoError(t, err)
	require.Equal(t, 2, res.Summary.ListenerCount)

	require.Equal(t, 2, hostSink.count(core.EvListenerJoined))
	ev, ok := hostSink.last(core.EvListenerJoined)
	require.True(t, ok)
	require.Equal(t, 2, ev.(core.ListenerJoined).ListenerCount)

	summary, ok := te.coord.Registry.SessionInfo(id)
	require.True(t, ok)
	require.Equal(t, 2, summary.PeakListeners)
}

func TestJoinSessionLenientOnRelayFailure(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	te.relay.joinErr = &core.RelayError{Detail: "sfu down"}

	res, err := te.coord.JoinSession(context.Background(), "l1", &fakeSink{}, id, "Ann", "peer-1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Info.RelayErr)
	require.Equal(t, 1, res.Summary.ListenerCount)
}

func TestJoinUnknownSession(t *testing.T) {
	te := newTestEnv(time.Minute)
	_, err := te.coord.JoinSession(context.Background(), "l1", &fakeSink{}, "nope", "Ann", "peer-1")
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	_, bound := te.coord.Registry.SessionOf("l1")
	require.False(t, bound)
}

func TestEndSessionHostOnly(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	te.join(t, id, "l1", "Ann", "peer-1")

	err := te.coord.EndSession(context.Background(), id, "l1", false)
	require.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, te.coord.EndSession(context.Background(), id, "host-client", false))
	_, ok := te.coord.Registry.SessionInfo(id)
	require.False(t, ok)
	require.Equal(t, 1, te.relay.leaveCount("host-peer"))
}

func TestEndSessionMidSpotlight(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	guestSink := te.join(t, id, "l1", "Ann", "peer-1")

	te.verifier.seed("pi_ok", 500)
	_, err := te.coord.Spotlights.Request(context.Background(), id, "l1", defaultTier, "pi_ok")
	require.NoError(t, err)
	require.NoError(t, te.coord.Spotlights.Approve(context.Background(), id, "host-client", 0))

	require.NoError(t, te.coord.EndSession(context.Background(), id, "host-client", false))
	require.Equal(t, 1, guestSink.count(core.EvSessionEnded))
	require.Equal(t, 1, te.relay.leaveCount("peer-1"))

	err = te.coord.EndSession(context.Background(), id, "host-client", false)
	require.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestHostDisconnectEndsSession(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	listenerSink := te.join(t, id, "l1", "Ann", "peer-1")

	te.coord.HandleDisconnect(context.Background(), "host-client")

	_, ok := te.coord.Registry.SessionInfo(id)
	require.False(t, ok)
	require.Equal(t, 1, listenerSink.count(core.EvSessionEnded))
}

func TestListenerDisconnectCleansUp(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, hostSink := te.startSession(t)
	te.join(t, id, "l1", "Ann", "peer-1")

	te.verifier.seed("pi_ok", 500)
	_, err := te.coord.Spotlights.Request(context.Background(), id, "l1", defaultTier, "pi_ok")
	require.NoError(t, err)

	te.coord.HandleDisconnect(context.Background(), "l1")

	summary, ok := te.coord.Registry.SessionInfo(id)
	require.True(t, ok)
	require.Equal(t, 0, summary.ListenerCount)
	require.Equal(t, 1, te.relay.leaveCount("peer-1"))

	ev, ok := hostSink.last(core.EvGuestQueueUpdated)
	require.True(t, ok)
	require.Empty(t, ev.(core.GuestQueueUpdated).Queue)
	require.Equal(t, 1, hostSink.count(core.EvListenerLeft))

	_, bound := te.coord.Registry.SessionOf("l1")
	require.False(t, bound)
}

func TestSendChatExcludesSenderAndBounds(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, hostSink := te.startSession(t)
	senderSink := te.join(t, id, "l1", "Ann", "peer-1")
	otherSink := te.join(t, id, "l2", "Bob", "peer-2")

	te.coord.SendChat(id, "l1", "hello")
	te.coord.SendChat(id, "l1", "")

	require.Equal(t, 1, hostSink.count(core.EvChatMessage))
	require.Equal(t, 1, otherSink.count(core.EvChatMessage))
	require.Equal(t, 0, senderSink.count(core.EvChatMessage))

	ev, ok := otherSink.last(core.EvChatMessage)
	require.True(t, ok)
	msg := ev.(core.ChatMessage)
	require.Equal(t, "Ann", msg.Name)
	require.Equal(t, "hello", msg.Text)
	require.False(t, msg.Tipper)
}

func TestProduceAnnouncesToOthers(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	listenerSink := te.join(t, id, "l1", "Ann", "peer-1")

	producerID, err := te.coord.Produce(context.Background(), id, "host-client", "t1", "audio", map[string]any{}, nil)
	require.NoError(t, err)
	require.Equal(t, "producer-1", producerID)

	ev, ok := listenerSink.last(core.EvNewProducer)
	require.True(t, ok)
	require.Equal(t, "producer-1", ev.(core.NewProducer).ProducerID)
}

func TestMediaForbiddenForStrangers(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)

	err := te.coord.ConnectTransport(context.Background(), id, "stranger", "t1", nil)
	require.ErrorIs(t, err, core.ErrForbidden)
}
