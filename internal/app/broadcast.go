package app

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// Fanout runs with the entry lock held so that every participant observes
// events in registry-commit order. Sinks are buffered and non-blocking; a
// slow participant loses the frame, never stalls the session.

func (e *sessionEntry) emitLocked(ev core.Event, except domain.ClientID) {
	sent, dropped := 0, 0
	for client, p := range e.participants {
		if client == except {
			continue
		}
		if err := p.sink.TrySend(ev); err != nil {
			dropped++
			continue
		}
		sent++
	}
	if dropped > 0 {
		log.Warn().
			Str("module", "app.broadcast").
			Str("session", string(e.sess.ID)).
			Str("event", string(ev.Kind())).
			Int("sent", sent).
			Int("dropped", dropped).
			Msg("slow sinks dropped event")
	}
}

func (e *sessionEntry) emitAllLocked(ev core.Event) {
	e.emitLocked(ev, "")
}

func (e *sessionEntry) emitToLocked(client domain.ClientID, ev core.Event) {
	p, ok := e.participants[client]
	if !ok {
		return
	}
	if err := p.sink.TrySend(ev); err != nil {
		log.Warn().
			Str("module", "app.broadcast").
			Str("session", string(e.sess.ID)).
			Str("event", string(ev.Kind())).
			Msg("targeted event dropped")
	}
}

func (e *sessionEntry) emitHostLocked(ev core.Event) {
	e.emitToLocked(e.host, ev)
}

func (e *sessionEntry) queueViewLocked() core.GuestQueueUpdated {
	out := make([]core.QueueEntryView, 0, len(e.queue))
	for _, g := range e.queue {
		out = append(out, core.QueueEntryView{
			Name:       g.Name,
			Tier:       g.Tier.Name,
			Duration:   int(g.Tier.Duration.Seconds()),
			PriceCents: g.Tier.PriceCents,
		})
	}
	return core.GuestQueueUpdated{Queue: out}
}

func (e *sessionEntry) boardViewLocked(topN int) core.LeaderboardUpdate {
	entries := make([]*domain.LeaderboardEntry, 0, len(e.board))
	for _, b := range e.board {
		entries = append(entries, b)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalCents != entries[j].TotalCents {
			return entries[i].TotalCents > entries[j].TotalCents
		}
		// Equal totals: whoever got there first ranks higher.
		return entries[i].ReachedAt.Before(entries[j].ReachedAt)
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}
	out := make([]core.BoardEntryView, 0, len(entries))
	for _, b := range entries {
		out = append(out, core.BoardEntryView{Name: b.Name, TotalCents: b.TotalCents})
	}
	return core.LeaderboardUpdate{Entries: out, TotalCents: e.sess.TipTotalCents}
}
