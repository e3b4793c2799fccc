package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// encodeEvent flattens a typed event into the wire envelope: the payload
// fields plus a "type" tag.
func encodeEvent(ev core.Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	m["type"] = string(ev.Kind())
	return json.Marshal(m)
}

func (ctl *LiveWSController) writePump(ctx context.Context, c *WsLiveConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *LiveWSController) readPump(ctx context.Context, cancel context.CancelFunc, client domain.ClientID, c *WsLiveConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("client", string(client)).Msg("readPump closing")
		cancel()
		ctl.Coord.HandleDisconnect(context.Background(), client)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("client", string(client)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("client", string(client)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(ctx, client, c, data)
		}
	}
}

func (ctl *LiveWSController) handleMessage(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "start-session":
		ctl.handleStartSession(ctx, client, c, data)
	case "join-session":
		ctl.handleJoinSession(ctx, client, c, data)
	case "end-session":
		ctl.handleEndSession(ctx, client, c, data)
	case "send-chat":
		ctl.handleSendChat(client, c, data)
	case "request-spotlight":
		ctl.handleRequestSpotlight(ctx, client, c, data)
	case "approve-guest":
		ctl.handleApproveGuest(ctx, client, c, data)
	case "reject-guest":
		ctl.handleRejectGuest(client, c, data)
	case "end-spotlight":
		ctl.handleEndSpotlight(ctx, client, c, data)
	case "submit-tip":
		ctl.handleSubmitTip(ctx, client, c, data)
	case "connect-transport":
		ctl.handleConnectTransport(ctx, client, c, data)
	case "produce":
		ctl.handleProduce(ctx, client, c, data)
	case "consume":
		ctl.handleConsume(ctx, client, c, data)
	case "resume-consumer":
		ctl.handleResumeConsumer(ctx, client, c, data)
	case "pause-producer":
		ctl.handlePauseProducer(ctx, client, c, data)
	case "resume-producer":
		ctl.handleResumeProducer(ctx, client, c, data)
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown action")
	}
}

func (ctl *LiveWSController) sendJSON(c *WsLiveConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.trySendRaw(b)
}

func (ctl *LiveWSController) sendError(c *WsLiveConn, err error) {
	ctl.sendJSON(c, map[string]any{
		"type":    "error",
		"code":    core.ErrorCode(err),
		"message": err.Error(),
	})
}
