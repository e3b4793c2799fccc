package domain

import "time"

// TipRecord is one verified tip, append-only per session.
type TipRecord struct {
	Name        string
	AmountCents int64
	At          time.Time
}

// LeaderboardEntry aggregates tips per distinct tipper name.
// ReachedAt is when TotalCents last changed; ties on the leaderboard go to
// whoever reached the amount first.
type LeaderboardEntry struct {
	Name       string
	TotalCents int64
	ReachedAt  time.Time
}
