package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// participantSlot pairs participant meta with its delivery endpoint.
type participantSlot struct {
	meta *domain.Participant
	sink core.EventSink
}

// sessionEntry is the authoritative state of one live session. Every
// mutation runs under mu; events are emitted before mu is released, so
// delivery order per session equals commit order.
type sessionEntry struct {
	mu sync.Mutex

	sess         *domain.BroadcastSession
	host         domain.ClientID
	participants map[domain.ClientID]*participantSlot

	queue     []*domain.GuestQueueEntry
	spotlight *domain.ActiveSpotlight
	spotGen   uint64
	spotTimer *time.Timer

	tips  []domain.TipRecord
	board map[string]*domain.LeaderboardEntry

	chat  []domain.ChatMessage
	ended bool
}

// SessionRegistry is the sole owner of active session state. It is always
// constructed and injected, never a package global, so tests can run
// isolated registries side by side.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
	byClient map[domain.ClientID]domain.SessionID

	chatLimit int
	boardSize int
}

func NewSessionRegistry(chatLimit, boardSize int) *SessionRegistry {
	if chatLimit <= 0 {
		chatLimit = 100
	}
	if boardSize <= 0 {
		boardSize = 10
	}
	return &SessionRegistry{
		sessions:  make(map[domain.SessionID]*sessionEntry),
		byClient:  make(map[domain.ClientID]domain.SessionID),
		chatLimit: chatLimit,
		boardSize: boardSize,
	}
}

// Create registers a new live session with its host already attached.
func (r *SessionRegistry) Create(sess *domain.BroadcastSession, host domain.ClientID, meta *domain.Participant, sink core.EventSink) {
	entry := &sessionEntry{
		sess:         sess,
		host:         host,
		participants: map[domain.ClientID]*participantSlot{host: {meta: meta, sink: sink}},
		board:        make(map[string]*domain.LeaderboardEntry),
	}
	r.mu.Lock()
	r.sessions[sess.ID] = entry
	r.byClient[host] = sess.ID
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("session", string(sess.ID)).Str("host", sess.HostName).Msg("session created")
}

// update runs fn with the session's lock held. Missing and ended sessions
// are indistinguishable to callers: both are ErrSessionNotFound.
//
// Lock order rule: the registry lock is never held while an entry lock is
// acquired, and fn must not call back into the registry.
func (r *SessionRegistry) update(id domain.SessionID, fn func(e *sessionEntry) error) error {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return core.ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.ended {
		return core.ErrSessionNotFound
	}
	return fn(entry)
}

// bindClient points a connection at a session before the entry mutation
// commits; callers roll it back with unbindClient if the session turned
// out to be gone.
func (r *SessionRegistry) bindClient(client domain.ClientID, id domain.SessionID) {
	r.mu.Lock()
	r.byClient[client] = id
	r.mu.Unlock()
}

func (r *SessionRegistry) unbindClient(client domain.ClientID) {
	r.mu.Lock()
	delete(r.byClient, client)
	r.mu.Unlock()
}

// SessionOf resolves the session a connection currently belongs to.
func (r *SessionRegistry) SessionOf(client domain.ClientID) (domain.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byClient[client]
	return id, ok
}

// remove drops an ended session and all of its client bindings. The entry
// must already be marked ended under its own lock.
func (r *SessionRegistry) remove(id domain.SessionID, clients []domain.ClientID) {
	r.mu.Lock()
	delete(r.sessions, id)
	for _, c := range clients {
		if r.byClient[c] == id {
			delete(r.byClient, c)
		}
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("session", string(id)).Msg("session removed")
}

// ---- read-only projections (no business logic) ----

func (r *SessionRegistry) ListSessions() []core.SessionSummary {
	r.mu.RLock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]core.SessionSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.ended {
			out = append(out, e.summaryLocked())
		}
		e.mu.Unlock()
	}
	return out
}

func (r *SessionRegistry) SessionInfo(id domain.SessionID) (core.SessionSummary, bool) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return core.SessionSummary{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return core.SessionSummary{}, false
	}
	return e.summaryLocked(), true
}

func (r *SessionRegistry) Status() core.StatusSummary {
	var st core.StatusSummary
	for _, s := range r.ListSessions() {
		st.ActiveSessions++
		st.TotalListeners += s.ListenerCount
	}
	return st
}

func (e *sessionEntry) summaryLocked() core.SessionSummary {
	return core.SessionSummary{
		ID:            e.sess.ID,
		Title:         e.sess.Title,
		HostName:      e.sess.HostName,
		Kind:          e.sess.Kind,
		ListenerCount: e.listenerCountLocked(),
		PeakListeners: e.sess.PeakListeners,
		TipTotalCents: e.sess.TipTotalCents,
		StartedAt:     e.sess.StartedAt,
	}
}

func (e *sessionEntry) listenerCountLocked() int {
	n := 0
	for _, p := range e.participants {
		if p.meta.Role == domain.RoleListener {
			n++
		}
	}
	return n
}

func (e *sessionEntry) appendChatLocked(msg domain.ChatMessage, limit int) {
	e.chat = append(e.chat, msg)
	if len(e.chat) > limit {
		e.chat = e.chat[len(e.chat)-limit:]
	}
}

func (e *sessionEntry) recentChatLocked(n int) []domain.ChatMessage {
	if len(e.chat) > n {
		return append([]domain.ChatMessage(nil), e.chat[len(e.chat)-n:]...)
	}
	return append([]domain.ChatMessage(nil), e.chat...)
}
