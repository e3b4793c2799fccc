package domain

import "time"

// SpotlightTier is a purchasable slot duration.
type SpotlightTier struct {
	Name       string
	PriceCents int64
	Duration   time.Duration
}

// GuestQueueEntry is a verified, paid request waiting for host approval.
// Strict FIFO; removed on approval, rejection or requester disconnect.
type GuestQueueEntry struct {
	Client      ClientID
	PeerID      string
	Name        string
	Tier        SpotlightTier
	PaymentRef  string
	RequestedAt time.Time
}

// ActiveSpotlight is the single on-air guest of a session.
// Gen ties the countdown timer to this exact activation; a timer carrying a
// stale generation must not touch a newer spotlight.
type ActiveSpotlight struct {
	Client    ClientID
	PeerID    string
	Name      string
	Duration  time.Duration
	Remaining time.Duration
	StartedAt time.Time
	Gen       uint64
}
