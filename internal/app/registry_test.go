package app

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

func makeSession(t *testing.T) (*domain.BroadcastSession, *domain.Participant) {
	t.Helper()
	sess, err := domain.NewBroadcastSession("Test Show", "Host", domain.KindAudio, "rm-")
	require.NoError(t, err)
	meta, err := domain.NewParticipant("Host", domain.RoleHost, "host-peer")
	require.NoError(t, err)
	return sess, meta
}

func TestRegistryCreateAndLookup(t *testing.T) {
	r := NewSessionRegistry(10, 5)
	sess, meta := makeSession(t)
	r.Create(sess, "host-client", meta, &fakeSink{})

	got, ok := r.SessionInfo(sess.ID)
	require.True(t, ok)
	require.Equal(t, sess.ID, got.ID)
	require.Equal(t, "Test Show", got.Title)
	require.Equal(t, 0, got.ListenerCount)

	id, ok := r.SessionOf("host-client")
	require.True(t, ok)
	require.Equal(t, sess.ID, id)

	require.Len(t, r.ListSessions(), 1)
}

func TestRegistryUpdateMissingSession(t *testing.T) {
	r := NewSessionRegistry(10, 5)
	err := r.update("nope", func(e *sessionEntry) error { return nil })
	require.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRegistryEndedSessionIsGone(t *testing.T) {
	r := NewSessionRegistry(10, 5)
	sess, meta := makeSession(t)
	r.Create(sess, "host-client", meta, &fakeSink{})

	require.NoError(t, r.update(sess.ID, func(e *sessionEntry) error {
		e.ended = true
		return nil
	}))

	err := r.update(sess.ID, func(e *sessionEntry) error { return nil })
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	_, ok := r.SessionInfo(sess.ID)
	require.False(t, ok)
	require.Empty(t, r.ListSessions())
}

func TestRegistryRemoveUnbindsClients(t *testing.T) {
	r := NewSessionRegistry(10, 5)
	sess, meta := makeSession(t)
	r.Create(sess, "host-client", meta, &fakeSink{})
	r.bindClient("listener-1", sess.ID)

	r.remove(sess.ID, []domain.ClientID{"host-client", "listener-1"})

	_, ok := r.SessionOf("host-client")
	require.False(t, ok)
	_, ok = r.SessionOf("listener-1")
	require.False(t, ok)
	_, ok = r.SessionInfo(sess.ID)
	require.False(t, ok)
}

func TestChatHistoryBounded(t *testing.T) {
	r := NewSessionRegistry(3, 5)
	sess, meta := makeSession(t)
	r.Create(sess, "host-client", meta, &fakeSink{})

	require.NoError(t, r.update(sess.ID, func(e *sessionEntry) error {
		for i := 0; i < 10; i++ {
			e.appendChatLocked(domain.ChatMessage{Name: "A", Text: strconv.Itoa(i), At: time.Now()}, r.chatLimit)
		}
		recent := e.recentChatLocked(50)
		require.Len(t, recent, 3)
		require.Equal(t, "7", recent[0].Text)
		require.Equal(t, "9", recent[2].Text)
		return nil
	}))
}

func TestLeaderboardOrderingAndTruncation(t *testing.T) {
	r := NewSessionRegistry(10, 2)
	sess, meta := makeSession(t)
	r.Create(sess, "host-client", meta, &fakeSink{})

	base := time.Now()
	require.NoError(t, r.update(sess.ID, func(e *sessionEntry) error {
		e.board["early"] = &domain.LeaderboardEntry{Name: "early", TotalCents: 500, ReachedAt: base}
		e.board["late"] = &domain.LeaderboardEntry{Name: "late", TotalCents: 500, ReachedAt: base.Add(time.Second)}
		e.board["big"] = &domain.LeaderboardEntry{Name: "big", TotalCents: 2000, ReachedAt: base.Add(2 * time.Second)}
		e.sess.TipTotalCents = 3000

		view := e.boardViewLocked(r.boardSize)
		require.Len(t, view.Entries, 2)
		require.Equal(t, "big", view.Entries[0].Name)
		require.Equal(t, "early", view.Entries[1].Name)
		require.Equal(t, int64(3000), view.TotalCents)
		return nil
	}))
}
