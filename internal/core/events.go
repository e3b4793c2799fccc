package core

// Events are the closed set of state-change notifications a session fans out
// to its participants. Adapters own the wire encoding; engines only ever see
// these typed variants.

type EventKind string

const (
	EvListenerJoined    EventKind = "listener-joined"
	EvListenerLeft      EventKind = "listener-left"
	EvChatMessage       EventKind = "chat-message"
	EvGuestQueueUpdated EventKind = "guest-queue-updated"
	EvSpotlightApproved EventKind = "spotlight-approved"
	EvSpotlightStarted  EventKind = "spotlight-started"
	EvSpotlightTick     EventKind = "spotlight-tick"
	EvSpotlightExpired  EventKind = "spotlight-expired"
	EvTipReceived       EventKind = "tip-received"
	EvLeaderboardUpdate EventKind = "leaderboard-update"
	EvNewProducer       EventKind = "new-producer"
	EvSessionEnded      EventKind = "session-ended"
)

type Event interface {
	Kind() EventKind
}

type ListenerJoined struct {
	Name          string `json:"name"`
	ListenerCount int    `json:"listenerCount"`
}

type ListenerLeft struct {
	Name          string `json:"name"`
	ListenerCount int    `json:"listenerCount"`
}

type ChatMessage struct {
	Name   string `json:"name"`
	Text   string `json:"message"`
	Tipper bool   `json:"isTipper"`
}

type QueueEntryView struct {
	Name       string `json:"name"`
	Tier       string `json:"tier"`
	Duration   int    `json:"duration"`
	PriceCents int64  `json:"price"`
}

// GuestQueueUpdated goes to the host only.
type GuestQueueUpdated struct {
	Queue []QueueEntryView `json:"queue"`
}

// SpotlightApproved goes to the approved guest only and carries their
// inbound transport, when the relay managed to provision one.
type SpotlightApproved struct {
	Transport  map[string]any `json:"sendTransport,omitempty"`
	ICEServers []ICEServer    `json:"iceServers"`
	RelayErr   string         `json:"relayError,omitempty"`
}

type SpotlightStarted struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

type SpotlightTick struct {
	Remaining int `json:"remaining"`
}

type SpotlightExpired struct{}

type TipReceived struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

type BoardEntryView struct {
	Name       string `json:"name"`
	TotalCents int64  `json:"total_cents"`
}

type LeaderboardUpdate struct {
	Entries    []BoardEntryView `json:"leaderboard"`
	TotalCents int64            `json:"total_cents"`
}

type NewProducer struct {
	ProducerID string `json:"producerId"`
	MediaKind  string `json:"kind"`
}

type SessionEnded struct{}

func (ListenerJoined) Kind() EventKind    { return EvListenerJoined }
func (ListenerLeft) Kind() EventKind      { return EvListenerLeft }
func (ChatMessage) Kind() EventKind       { return EvChatMessage }
func (GuestQueueUpdated) Kind() EventKind { return EvGuestQueueUpdated }
func (SpotlightApproved) Kind() EventKind { return EvSpotlightApproved }
func (SpotlightStarted) Kind() EventKind  { return EvSpotlightStarted }
func (SpotlightTick) Kind() EventKind     { return EvSpotlightTick }
func (SpotlightExpired) Kind() EventKind  { return EvSpotlightExpired }
func (TipReceived) Kind() EventKind       { return EvTipReceived }
func (LeaderboardUpdate) Kind() EventKind { return EvLeaderboardUpdate }
func (NewProducer) Kind() EventKind       { return EvNewProducer }
func (SessionEnded) Kind() EventKind      { return EvSessionEnded }
