package signal

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/domain"
)

func (ctl *LiveWSController) handleStartSession(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		Title      string `json:"title"`
		HostName   string `json:"hostName"`
		StreamType string `json:"streamType"`
		PeerID     string `json:"peerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad start-session payload")
		return
	}
	if p.Title == "" {
		p.Title = "Power FM Live"
	}
	if p.HostName == "" {
		p.HostName = "DJ"
	}
	if p.PeerID == "" {
		p.PeerID = "host-" + uuid.NewString()[:8]
	}
	kind, err := domain.ParseStreamKind(p.StreamType)
	if err != nil {
		ctl.sendError(c, err)
		return
	}

	id, info, err := ctl.Coord.StartSession(ctx, client, c, p.Title, p.HostName, kind, p.PeerID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	ctl.sendJSON(c, map[string]any{
		"type":            "session-started",
		"sessionId":       id,
		"roomId":          info.RoomID,
		"iceServers":      info.ICEServers,
		"rtpCapabilities": info.RTPCapabilities,
		"sendTransport":   info.Transport,
	})
}

func (ctl *LiveWSController) handleJoinSession(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID string `json:"sessionId"`
		Name      string `json:"name"`
		PeerID    string `json:"peerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-session payload")
		return
	}
	if p.Name == "" {
		p.Name = "Listener"
	}
	if p.PeerID == "" {
		p.PeerID = "listener-" + uuid.NewString()[:8]
	}

	res, err := ctl.Coord.JoinSession(ctx, client, c, domain.SessionID(p.SessionID), p.Name, p.PeerID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}

	chat := make([]map[string]any, 0, len(res.RecentChat))
	for _, m := range res.RecentChat {
		chat = append(chat, map[string]any{"name": m.Name, "message": m.Text, "isTipper": m.Tipper})
	}
	ctl.sendJSON(c, map[string]any{
		"type":            "session-joined",
		"sessionId":       res.Summary.ID,
		"title":           res.Summary.Title,
		"hostName":        res.Summary.HostName,
		"streamType":      res.Summary.Kind,
		"listenerCount":   res.Summary.ListenerCount,
		"roomId":          res.Info.RoomID,
		"iceServers":      res.Info.ICEServers,
		"rtpCapabilities": res.Info.RTPCapabilities,
		"recvTransport":   res.Info.Transport,
		"producers":       res.Info.Producers,
		"recentChat":      chat,
		"relayError":      res.Info.RelayErr,
	})
}

func (ctl *LiveWSController) handleEndSession(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.EndSession(ctx, domain.SessionID(p.SessionID), client, false); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *LiveWSController) handleSendChat(client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if !ctl.Limiter.Allow(client) {
		log.Warn().Str("module", "signal").Str("client", string(client)).Msg("chat rate limited")
		return
	}
	ctl.Coord.SendChat(domain.SessionID(p.SessionID), client, p.Text)
}
