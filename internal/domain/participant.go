package domain

import "time"

type Role string

const (
	RoleHost     Role = "host"
	RoleListener Role = "listener"
)

// Participant represents one connected member of a session.
// No transport or lifecycle logic here.
type Participant struct {
	Name     string
	Role     Role
	PeerID   string
	JoinedAt time.Time
	Tipper   bool
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(name string, role Role, peerID string) (*Participant, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxDisplayName {
		return nil, ErrNameTooLong
	}
	return &Participant{
		Name:     name,
		Role:     role,
		PeerID:   peerID,
		JoinedAt: time.Now().UTC(),
	}, nil
}

// ChatMessage is one line of session chat, kept in a bounded ring.
type ChatMessage struct {
	Name   string
	Text   string
	Tipper bool
	At     time.Time
}
