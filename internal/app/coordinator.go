package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// Coordinator is the public entry point: it turns participant actions into
// registry transitions and relay/payment calls. Transport-agnostic; the
// signaling adapter sits in front of it.
type Coordinator struct {
	Registry   *SessionRegistry
	Relay      core.MediaRelay
	Spotlights *SpotlightEngine
	Tips       *TipEngine

	ICEServers []core.ICEServer
	RoomPrefix string
	RecentChat int
}

// JoinResult is what a listener gets back on a successful join.
type JoinResult struct {
	Summary    core.SessionSummary
	Info       *core.RelayJoinInfo
	RecentChat []domain.ChatMessage
}

// StartSession provisions a relay room plus host transport, then creates
// the session. Strict: if the relay cannot provision, no session exists.
func (c *Coordinator) StartSession(ctx context.Context, client domain.ClientID, sink core.EventSink, title, hostName string, kind domain.StreamKind, peerID string) (domain.SessionID, *core.RelayJoinInfo, error) {
	sess, err := domain.NewBroadcastSession(title, hostName, kind, c.RoomPrefix)
	if err != nil {
		return "", nil, err
	}
	meta, err := domain.NewParticipant(hostName, domain.RoleHost, peerID)
	if err != nil {
		return "", nil, err
	}

	info := &core.RelayJoinInfo{RoomID: sess.RoomID, ICEServers: c.ICEServers}
	if err := safeRelay("join room", func() error {
		return c.Relay.JoinRoom(ctx, sess.RoomID, peerID, hostName)
	}); err != nil {
		return "", nil, err
	}
	err = safeRelay("provision host", func() error {
		caps, err := c.Relay.RouterCapabilities(ctx, sess.RoomID)
		if err != nil {
			return err
		}
		transport, err := c.Relay.CreateTransport(ctx, sess.RoomID, peerID, false)
		if err != nil {
			return err
		}
		info.RTPCapabilities = caps
		info.Transport = transport
		return nil
	})
	if err != nil {
		_ = safeRelay("leave room", func() error { return c.Relay.LeaveRoom(ctx, sess.RoomID, peerID) })
		return "", nil, err
	}

	c.Registry.Create(sess, client, meta, sink)
	log.Info().Str("module", "app.coordinator").Str("session", string(sess.ID)).Str("title", title).Str("kind", string(kind)).Msg("session started")
	return sess.ID, info, nil
}

// JoinSession registers a listener and broadcasts the new count. Relay
// provisioning failures do not abort the join; the detail rides along in
// the join info.
func (c *Coordinator) JoinSession(ctx context.Context, client domain.ClientID, sink core.EventSink, id domain.SessionID, name, peerID string) (*JoinResult, error) {
	meta, err := domain.NewParticipant(name, domain.RoleListener, peerID)
	if err != nil {
		return nil, err
	}

	res := &JoinResult{Info: &core.RelayJoinInfo{ICEServers: c.ICEServers}}
	c.Registry.bindClient(client, id)
	err = c.Registry.update(id, func(e *sessionEntry) error {
		e.participants[client] = &participantSlot{meta: meta, sink: sink}
		count := e.listenerCountLocked()
		if count > e.sess.PeakListeners {
			e.sess.PeakListeners = count
		}
		e.emitLocked(core.ListenerJoined{Name: name, ListenerCount: count}, client)
		res.Summary = e.summaryLocked()
		res.RecentChat = e.recentChatLocked(c.RecentChat)
		res.Info.RoomID = e.sess.RoomID
		return nil
	})
	if err != nil {
		c.Registry.unbindClient(client)
		return nil, err
	}

	rerr := safeRelay("provision listener", func() error {
		if err := c.Relay.JoinRoom(ctx, res.Info.RoomID, peerID, name); err != nil {
			return err
		}
		caps, err := c.Relay.RouterCapabilities(ctx, res.Info.RoomID)
		if err != nil {
			return err
		}
		transport, err := c.Relay.CreateTransport(ctx, res.Info.RoomID, peerID, true)
		if err != nil {
			return err
		}
		producers, err := c.Relay.Producers(ctx, res.Info.RoomID, peerID)
		if err != nil {
			return err
		}
		res.Info.RTPCapabilities = caps
		res.Info.Transport = transport
		res.Info.Producers = producers
		return nil
	})
	if rerr != nil {
		res.Info.RelayErr = rerr.Error()
		log.Error().Err(rerr).Str("module", "app.coordinator").Str("session", string(id)).Msg("listener relay setup failed")
	}
	return res, nil
}

// EndSession is host-only. It cancels any active spotlight, broadcasts
// session-ended and removes the session; relay resources are released after
// the registry commit.
func (c *Coordinator) EndSession(ctx context.Context, id domain.SessionID, requester domain.ClientID, system bool) error {
	var (
		clients   []domain.ClientID
		room      domain.RoomID
		hostPeer  string
		guestPeer string
		orphans   []string
	)
	err := c.Registry.update(id, func(e *sessionEntry) error {
		if !system && requester != e.host {
			return core.ErrForbidden
		}
		room = e.sess.RoomID
		if h, ok := e.participants[e.host]; ok {
			hostPeer = h.meta.PeerID
		}
		if e.spotlight != nil {
			guestPeer = e.spotlight.PeerID
			e.spotlight = nil
			e.spotGen++
			if e.spotTimer != nil {
				e.spotTimer.Stop()
				e.spotTimer = nil
			}
		}
		for _, g := range e.queue {
			orphans = append(orphans, g.PaymentRef)
		}
		e.queue = nil
		e.emitAllLocked(core.SessionEnded{})
		for cl := range e.participants {
			clients = append(clients, cl)
		}
		e.ended = true
		return nil
	})
	if err != nil {
		return err
	}
	c.Registry.remove(id, clients)

	// No implicit refunds: unapproved paid requests are handed to manual
	// reconciliation.
	for _, ref := range orphans {
		log.Warn().Str("module", "app.coordinator").Str("session", string(id)).Str("payment_ref", ref).Msg("unapproved spotlight payment orphaned by session end")
	}

	if guestPeer != "" {
		_ = safeRelay("release guest peer", func() error { return c.Relay.LeaveRoom(ctx, room, guestPeer) })
	}
	if hostPeer != "" {
		_ = safeRelay("release host peer", func() error { return c.Relay.LeaveRoom(ctx, room, hostPeer) })
	}
	log.Info().Str("module", "app.coordinator").Str("session", string(id)).Msg("session ended")
	return nil
}

// HandleDisconnect routes a dropped connection: a host disconnect ends the
// session, a listener disconnect cleans up their queue entry and any
// spotlight they owned.
func (c *Coordinator) HandleDisconnect(ctx context.Context, client domain.ClientID) {
	id, ok := c.Registry.SessionOf(client)
	if !ok {
		return
	}
	var (
		isHost bool
		room   domain.RoomID
		peer   string
	)
	_ = c.Registry.update(id, func(e *sessionEntry) error {
		if client == e.host {
			isHost = true
			return nil
		}
		slot, ok := e.participants[client]
		if !ok {
			return nil
		}
		delete(e.participants, client)
		room = e.sess.RoomID
		peer = slot.meta.PeerID

		for i, g := range e.queue {
			if g.Client == client {
				e.queue = append(e.queue[:i], e.queue[i+1:]...)
				e.emitHostLocked(e.queueViewLocked())
				break
			}
		}
		if e.spotlight != nil && e.spotlight.Client == client {
			endSpotlightLocked(e)
		}
		e.emitAllLocked(core.ListenerLeft{Name: slot.meta.Name, ListenerCount: e.listenerCountLocked()})
		return nil
	})
	if isHost {
		_ = c.EndSession(ctx, id, client, false)
		return
	}
	c.Registry.unbindClient(client)
	if peer != "" {
		_ = safeRelay("release peer", func() error { return c.Relay.LeaveRoom(ctx, room, peer) })
	}
}

// SendChat appends to the bounded history and fans out to everyone else.
// Silently dropped when the session is gone.
func (c *Coordinator) SendChat(id domain.SessionID, client domain.ClientID, text string) {
	if text == "" {
		return
	}
	_ = c.Registry.update(id, func(e *sessionEntry) error {
		slot, ok := e.participants[client]
		if !ok {
			return nil
		}
		msg := domain.ChatMessage{
			Name:   slot.meta.Name,
			Text:   text,
			Tipper: slot.meta.Tipper,
			At:     time.Now().UTC(),
		}
		e.appendChatLocked(msg, c.Registry.chatLimit)
		e.emitLocked(core.ChatMessage{Name: msg.Name, Text: msg.Text, Tipper: msg.Tipper}, client)
		return nil
	})
}
