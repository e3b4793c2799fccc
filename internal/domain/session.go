// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxTitleLen    = 120
	MaxDisplayName = 48
)

var (
	ErrTitleTooLong = errors.New("title too long")
	ErrNameEmpty    = errors.New("display name empty")
	ErrNameTooLong  = errors.New("display name too long")
	ErrUnknownKind  = errors.New("unknown stream kind")
)

type (
	SessionID string
	RoomID    string
	// ClientID identifies one connected participant (the client token).
	ClientID string
)

type StreamKind string

const (
	KindAudio StreamKind = "audio"
	KindVideo StreamKind = "video"
)

func ParseStreamKind(s string) (StreamKind, error) {
	switch StreamKind(s) {
	case KindAudio, KindVideo:
		return StreamKind(s), nil
	case "":
		return KindAudio, nil
	default:
		return "", ErrUnknownKind
	}
}

// BroadcastSession is a live one-to-many broadcast. It exists only while
// live; an ended session is removed from memory.
type BroadcastSession struct {
	ID            SessionID
	RoomID        RoomID
	Title         string
	HostName      string
	Kind          StreamKind
	StartedAt     time.Time
	PeakListeners int
	TipTotalCents int64
}

// NewBroadcastSession mints the session and its relay room id.
// Room ids carry a prefix so the SFU can group broadcast rooms.
func NewBroadcastSession(title, hostName string, kind StreamKind, roomPrefix string) (*BroadcastSession, error) {
	if len(title) > MaxTitleLen {
		return nil, ErrTitleTooLong
	}
	if hostName == "" {
		return nil, ErrNameEmpty
	}
	if len(hostName) > MaxDisplayName {
		return nil, ErrNameTooLong
	}
	id := SessionID("live-" + uuid.NewString()[:8])
	return &BroadcastSession{
		ID:        id,
		RoomID:    RoomID(roomPrefix + string(id)),
		Title:     title,
		HostName:  hostName,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}, nil
}
