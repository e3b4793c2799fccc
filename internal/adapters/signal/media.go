package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/domain"
)

func (ctl *LiveWSController) handleConnectTransport(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID   string         `json:"sessionId"`
		TransportID string         `json:"transportId"`
		DTLS        map[string]any `json:"dtlsParameters"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad connect-transport payload")
		return
	}
	if err := ctl.Coord.ConnectTransport(ctx, domain.SessionID(p.SessionID), client, p.TransportID, p.DTLS); err != nil {
		ctl.sendError(c, err)
		return
	}
	ctl.sendJSON(c, map[string]any{"type": "transport-connected", "transportId": p.TransportID})
}

func (ctl *LiveWSController) handleProduce(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID   string         `json:"sessionId"`
		TransportID string         `json:"transportId"`
		Kind        string         `json:"kind"`
		RTP         map[string]any `json:"rtpParameters"`
		AppData     map[string]any `json:"appData"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad produce payload")
		return
	}
	producerID, err := ctl.Coord.Produce(ctx, domain.SessionID(p.SessionID), client, p.TransportID, p.Kind, p.RTP, p.AppData)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	ctl.sendJSON(c, map[string]any{"type": "produced", "producerId": producerID})
}

func (ctl *LiveWSController) handleConsume(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID  string         `json:"sessionId"`
		ProducerID string         `json:"producerId"`
		RTPCaps    map[string]any `json:"rtpCapabilities"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad consume payload")
		return
	}
	consumer, err := ctl.Coord.Consume(ctx, domain.SessionID(p.SessionID), client, p.ProducerID, p.RTPCaps)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	ctl.sendJSON(c, map[string]any{"type": "consumed", "consumer": consumer})
}

func (ctl *LiveWSController) handleResumeConsumer(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID  string `json:"sessionId"`
		ConsumerID string `json:"consumerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.ResumeConsumer(ctx, domain.SessionID(p.SessionID), client, p.ConsumerID); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *LiveWSController) handlePauseProducer(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID  string `json:"sessionId"`
		ProducerID string `json:"producerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.PauseProducer(ctx, domain.SessionID(p.SessionID), client, p.ProducerID); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *LiveWSController) handleResumeProducer(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID  string `json:"sessionId"`
		ProducerID string `json:"producerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.ResumeProducer(ctx, domain.SessionID(p.SessionID), client, p.ProducerID); err != nil {
		ctl.sendError(c, err)
	}
}
