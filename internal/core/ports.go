package core

import (
	"context"
	"time"

	"github.com/powerfm/livecast/internal/domain"
)

// EventSink is a participant's delivery endpoint.
// Owned by the adapter; the adapter must Close() it.
type EventSink interface {
	TrySend(ev Event) error
	Close()
}

type ICEServer struct {
	URLs string `json:"urls" mapstructure:"urls"`
}

// RelayJoinInfo is everything a client needs to attach media.
// RelayErr carries a non-fatal provisioning failure: signaling-level success
// stands, media setup is reported broken.
type RelayJoinInfo struct {
	RoomID          domain.RoomID    `json:"roomId"`
	ICEServers      []ICEServer      `json:"iceServers"`
	RTPCapabilities map[string]any   `json:"rtpCapabilities,omitempty"`
	Transport       map[string]any   `json:"transport,omitempty"`
	Producers       []map[string]any `json:"producers,omitempty"`
	RelayErr        string           `json:"relayError,omitempty"`
}

// MediaRelay is the SFU capability surface. No business logic behind it;
// any call may fail with *RelayError.
type MediaRelay interface {
	JoinRoom(ctx context.Context, room domain.RoomID, peerID, displayName string) error
	LeaveRoom(ctx context.Context, room domain.RoomID, peerID string) error
	RouterCapabilities(ctx context.Context, room domain.RoomID) (map[string]any, error)
	CreateTransport(ctx context.Context, room domain.RoomID, peerID string, consuming bool) (map[string]any, error)
	ConnectTransport(ctx context.Context, room domain.RoomID, peerID, transportID string, dtls map[string]any) error
	Produce(ctx context.Context, room domain.RoomID, peerID, transportID, kind string, rtp, appData map[string]any) (string, error)
	Consume(ctx context.Context, room domain.RoomID, peerID, producerID string, rtpCaps map[string]any) (map[string]any, error)
	ResumeConsumer(ctx context.Context, room domain.RoomID, peerID, consumerID string) error
	PauseProducer(ctx context.Context, room domain.RoomID, peerID, producerID string) error
	ResumeProducer(ctx context.Context, room domain.RoomID, peerID, producerID string) error
	Producers(ctx context.Context, room domain.RoomID, peerID string) ([]map[string]any, error)
}

// PaymentVerification is a confirmed charge resolved from an opaque
// payment reference.
type PaymentVerification struct {
	Ref         string
	AmountCents int64
	Method      string
}

// PaymentVerifier resolves payment references and charges saved methods.
// Both operations are idempotent: re-verifying never double-counts,
// re-charging with the same reference never double-charges.
type PaymentVerifier interface {
	VerifyReference(ctx context.Context, ref string) (PaymentVerification, error)
	ChargeSavedMethod(ctx context.Context, customerRef string, amountCents int64, description string) (PaymentVerification, error)
}

// SessionSummary is a read-only projection for directories/dashboards.
type SessionSummary struct {
	ID            domain.SessionID  `json:"id"`
	Title         string            `json:"title"`
	HostName      string            `json:"host_name"`
	Kind          domain.StreamKind `json:"stream_type"`
	ListenerCount int               `json:"listener_count"`
	PeakListeners int               `json:"max_listeners"`
	TipTotalCents int64             `json:"total_tips_cents"`
	StartedAt     time.Time         `json:"started_at"`
}

type StatusSummary struct {
	ActiveSessions int `json:"active_streams"`
	TotalListeners int `json:"total_listeners"`
}
