package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

func (ctl *LiveWSController) handleRequestSpotlight(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID  string `json:"sessionId"`
		Tier       string `json:"tier"`
		PaymentRef string `json:"paymentRef"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad request-spotlight payload")
		return
	}
	tier, ok := ctl.Tiers[p.Tier]
	if !ok {
		ctl.sendError(c, &core.PaymentError{Reason: "unknown spotlight tier"})
		return
	}
	pos, err := ctl.Coord.Spotlights.Request(ctx, domain.SessionID(p.SessionID), client, tier, p.PaymentRef)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	ctl.sendJSON(c, map[string]any{
		"type":     "spotlight-pending",
		"position": pos,
		"tier":     tier.Name,
	})
}

func (ctl *LiveWSController) handleApproveGuest(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID string `json:"sessionId"`
		Index     int    `json:"index"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.Spotlights.Approve(ctx, domain.SessionID(p.SessionID), client, p.Index); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *LiveWSController) handleRejectGuest(client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID string `json:"sessionId"`
		Index     int    `json:"index"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.Spotlights.Reject(domain.SessionID(p.SessionID), client, p.Index); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *LiveWSController) handleEndSpotlight(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if err := ctl.Coord.Spotlights.End(ctx, domain.SessionID(p.SessionID), client, false); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *LiveWSController) handleSubmitTip(ctx context.Context, client domain.ClientID, c *WsLiveConn, data []byte) {
	var p struct {
		SessionID   string `json:"sessionId"`
		Name        string `json:"name"`
		AmountCents int64  `json:"amount_cents"`
		PaymentRef  string `json:"paymentRef"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad submit-tip payload")
		return
	}
	if p.Name == "" {
		p.Name = "Anonymous"
	}
	if err := ctl.Coord.Tips.Submit(ctx, domain.SessionID(p.SessionID), client, p.Name, p.AmountCents, p.PaymentRef); err != nil {
		ctl.sendError(c, err)
	}
}
