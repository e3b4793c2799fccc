package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

func TestTipRejectsUnknownDenomination(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	te.join(t, id, "l1", "Ann", "peer-1")

	err := te.coord.Tips.Submit(context.Background(), id, "l1", "Ann", 123, "pi_any")
	require.Error(t, err)
	require.Equal(t, "payment-not-verified", core.ErrorCode(err))
}

func TestTipUnverifiedLeavesNoTrace(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, hostSink := te.startSession(t)
	te.join(t, id, "l1", "Ann", "peer-1")

	err := te.coord.Tips.Submit(context.Background(), id, "l1", "Ann", 500, "pi_bogus")
	require.Error(t, err)

	summary, ok := te.coord.Registry.SessionInfo(id)
	require.True(t, ok)
	require.Equal(t, int64(0), summary.TipTotalCents)
	require.Equal(t, 0, hostSink.count(core.EvTipReceived))
}

func TestTipAmountMismatch(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, _ := te.startSession(t)
	te.join(t, id, "l1", "Ann", "peer-1")

	te.verifier.seed("pi_a", 200)
	err := te.coord.Tips.Submit(context.Background(), id, "l1", "Ann", 500, "pi_a")
	require.Error(t, err)
	require.Equal(t, "payment-not-verified", core.ErrorCode(err))
}

func TestTipAggregatesPerName(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, hostSink := te.startSession(t)
	te.join(t, id, "l1", "Ann", "peer-1")

	te.verifier.seed("pi_1", 500)
	te.verifier.seed("pi_2", 500)
	require.NoError(t, te.coord.Tips.Submit(context.Background(), id, "l1", "Ann", 500, "pi_1"))
	require.NoError(t, te.coord.Tips.Submit(context.Background(), id, "l1", "Ann", 500, "pi_2"))

	ev, ok := hostSink.last(core.EvLeaderboardUpdate)
	require.True(t, ok)
	board := ev.(core.LeaderboardUpdate)
	require.Len(t, board.Entries, 1)
	require.Equal(t, "Ann", board.Entries[0].Name)
	require.Equal(t, int64(1000), board.Entries[0].TotalCents)
	require.Equal(t, int64(1000), board.TotalCents)

	summary, ok := te.coord.Registry.SessionInfo(id)
	require.True(t, ok)
	require.Equal(t, int64(1000), summary.TipTotalCents)
}

func TestTipEventOrderAndTipperFlag(t *testing.T) {
	te := newTestEnv(time.Minute)
	id, hostSink := te.startSession(t)
	otherSink := te.join(t, id, "l1", "Ann", "peer-1")
	te.join(t, id, "l2", "Bob", "peer-2")

	te.verifier.seed("pi_1", 1000)
	require.NoError(t, te.coord.Tips.Submit(context.Background(), id, "l2", "Bob", 1000, "pi_1"))

	kinds := otherSink.kinds()
	tipIdx, boardIdx := -1, -1
	for i, k := range kinds {
		switch k {
		case core.EvTipReceived:
			tipIdx = i
		case core.EvLeaderboardUpdate:
			boardIdx = i
		}
	}
	require.GreaterOrEqual(t, tipIdx, 0)
	require.Greater(t, boardIdx, tipIdx)

	require.Equal(t, 1, hostSink.count(core.EvTipReceived))

	// The tipper's later chat carries the flag.
	te.coord.SendChat(id, "l2", "thanks for the show")
	ev, ok := otherSink.last(core.EvChatMessage)
	require.True(t, ok)
	require.True(t, ev.(core.ChatMessage).Tipper)
}

func TestTipLeaderboardTruncatedToTopN(t *testing.T) {
	te := newTestEnv(time.Minute) // the test registry keeps a top-3 board
	id, hostSink := te.startSession(t)
	tippers := []struct {
		client domain.ClientID
		name   string
		amount int64
		ref    string
	}{
		{"l1", "Ann", 200, "pi_1"},
		{"l2", "Bob", 500, "pi_2"},
		{"l3", "Cid", 1000, "pi_3"},
		{"l4", "Dee", 2000, "pi_4"},
	}
	for _, tp := range tippers {
		te.join(t, id, tp.client, tp.name, string(tp.client)+"-peer")
		te.verifier.seed(tp.ref, tp.amount)
		require.NoError(t, te.coord.Tips.Submit(context.Background(), id, tp.client, tp.name, tp.amount, tp.ref))
	}

	ev, ok := hostSink.last(core.EvLeaderboardUpdate)
	require.True(t, ok)
	board := ev.(core.LeaderboardUpdate)
	require.Len(t, board.Entries, 3)
	require.Equal(t, "Dee", board.Entries[0].Name)
	require.Equal(t, "Cid", board.Entries[1].Name)
	require.Equal(t, "Bob", board.Entries[2].Name)
	require.Equal(t, int64(3700), board.TotalCents)
}
