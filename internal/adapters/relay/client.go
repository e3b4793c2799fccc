// Package relay is a JSON-RPC client for the external mediasoup SFU.
// Pure capability surface: room/peer lifecycle and transport plumbing, no
// business logic.
package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Client speaks newline-delimited JSON-RPC 2.0 over a unix domain socket,
// one connection per call (the SFU side is connection-per-request).
type Client struct {
	socketPath string
	timeout    time.Duration
	reqID      atomic.Int64
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultTimeout}
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params map[string]any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return &core.RelayError{Detail: "sfu unreachable: " + err.Error()}
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return &core.RelayError{Detail: "encode " + method + ": " + err.Error()}
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return &core.RelayError{Detail: "write " + method + ": " + err.Error()}
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return &core.RelayError{Detail: "read " + method + ": " + err.Error()}
	}
	var resp rpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return &core.RelayError{Detail: "decode " + method + ": " + err.Error()}
	}
	if resp.Error != nil {
		log.Debug().Str("module", "adapters.relay").Str("method", method).Str("sfu_error", resp.Error.Message).Msg("rpc error")
		return &core.RelayError{Detail: resp.Error.Message}
	}
	if out != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return &core.RelayError{Detail: "decode result " + method + ": " + err.Error()}
		}
	}
	return nil
}

// Ping reports whether the SFU is up. Used by the status endpoint only.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", nil, nil)
}

func (c *Client) JoinRoom(ctx context.Context, room domain.RoomID, peerID, displayName string) error {
	return c.call(ctx, "join", map[string]any{
		"roomId":      string(room),
		"peerId":      peerID,
		"displayName": displayName,
	}, nil)
}

func (c *Client) LeaveRoom(ctx context.Context, room domain.RoomID, peerID string) error {
	return c.call(ctx, "leave", map[string]any{
		"roomId": string(room),
		"peerId": peerID,
	}, nil)
}

func (c *Client) RouterCapabilities(ctx context.Context, room domain.RoomID) (map[string]any, error) {
	var caps map[string]any
	err := c.call(ctx, "getRouterRtpCapabilities", map[string]any{"roomId": string(room)}, &caps)
	return caps, err
}

func (c *Client) CreateTransport(ctx context.Context, room domain.RoomID, peerID string, consuming bool) (map[string]any, error) {
	var transport map[string]any
	err := c.call(ctx, "createWebRtcTransport", map[string]any{
		"roomId":    string(room),
		"peerId":    peerID,
		"consuming": consuming,
	}, &transport)
	return transport, err
}

func (c *Client) ConnectTransport(ctx context.Context, room domain.RoomID, peerID, transportID string, dtls map[string]any) error {
	return c.call(ctx, "connectTransport", map[string]any{
		"roomId":         string(room),
		"peerId":         peerID,
		"transportId":    transportID,
		"dtlsParameters": dtls,
	}, nil)
}

func (c *Client) Produce(ctx context.Context, room domain.RoomID, peerID, transportID, kind string, rtp, appData map[string]any) (string, error) {
	if appData == nil {
		appData = map[string]any{}
	}
	// Older SFU builds answer with a bare id string, newer ones with an
	// object; accept both.
	var result any
	err := c.call(ctx, "produce", map[string]any{
		"roomId":        string(room),
		"peerId":        peerID,
		"transportId":   transportID,
		"kind":          kind,
		"rtpParameters": rtp,
		"appData":       appData,
	}, &result)
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case string:
		return v, nil
	case map[string]any:
		if id, ok := v["id"].(string); ok {
			return id, nil
		}
	}
	return "", &core.RelayError{Detail: "produce: malformed result"}
}

func (c *Client) Consume(ctx context.Context, room domain.RoomID, peerID, producerID string, rtpCaps map[string]any) (map[string]any, error) {
	var consumer map[string]any
	err := c.call(ctx, "consume", map[string]any{
		"roomId":          string(room),
		"peerId":          peerID,
		"producerId":      producerID,
		"rtpCapabilities": rtpCaps,
	}, &consumer)
	return consumer, err
}

func (c *Client) ResumeConsumer(ctx context.Context, room domain.RoomID, peerID, consumerID string) error {
	return c.call(ctx, "resumeConsumer", map[string]any{
		"roomId":     string(room),
		"peerId":     peerID,
		"consumerId": consumerID,
	}, nil)
}

func (c *Client) PauseProducer(ctx context.Context, room domain.RoomID, peerID, producerID string) error {
	return c.call(ctx, "pauseProducer", map[string]any{
		"roomId":     string(room),
		"peerId":     peerID,
		"producerId": producerID,
	}, nil)
}

func (c *Client) ResumeProducer(ctx context.Context, room domain.RoomID, peerID, producerID string) error {
	return c.call(ctx, "resumeProducer", map[string]any{
		"roomId":     string(room),
		"peerId":     peerID,
		"producerId": producerID,
	}, nil)
}

func (c *Client) Producers(ctx context.Context, room domain.RoomID, peerID string) ([]map[string]any, error) {
	var producers []map[string]any
	err := c.call(ctx, "getProducers", map[string]any{
		"roomId": string(room),
		"peerId": peerID,
	}, &producers)
	return producers, err
}
