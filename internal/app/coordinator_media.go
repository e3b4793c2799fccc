package app

import (
	"context"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// Media passthrough. No business logic: the coordinator only resolves the
// caller's room/peer and keeps the relay port out of the adapters.

// roomPeer resolves the relay coordinates of one participant.
func (c *Coordinator) roomPeer(id domain.SessionID, client domain.ClientID) (domain.RoomID, string, error) {
	var (
		room domain.RoomID
		peer string
	)
	err := c.Registry.update(id, func(e *sessionEntry) error {
		slot, ok := e.participants[client]
		if !ok {
			return core.ErrForbidden
		}
		room = e.sess.RoomID
		peer = slot.meta.PeerID
		return nil
	})
	return room, peer, err
}

func (c *Coordinator) ConnectTransport(ctx context.Context, id domain.SessionID, client domain.ClientID, transportID string, dtls map[string]any) error {
	room, peer, err := c.roomPeer(id, client)
	if err != nil {
		return err
	}
	return safeRelay("connect transport", func() error {
		return c.Relay.ConnectTransport(ctx, room, peer, transportID, dtls)
	})
}

// Produce forwards to the relay and announces the new producer to the rest
// of the session.
func (c *Coordinator) Produce(ctx context.Context, id domain.SessionID, client domain.ClientID, transportID, kind string, rtp, appData map[string]any) (string, error) {
	room, peer, err := c.roomPeer(id, client)
	if err != nil {
		return "", err
	}
	var producerID string
	err = safeRelay("produce", func() error {
		var err error
		producerID, err = c.Relay.Produce(ctx, room, peer, transportID, kind, rtp, appData)
		return err
	})
	if err != nil {
		return "", err
	}
	_ = c.Registry.update(id, func(e *sessionEntry) error {
		e.emitLocked(core.NewProducer{ProducerID: producerID, MediaKind: kind}, client)
		return nil
	})
	return producerID, nil
}

func (c *Coordinator) Consume(ctx context.Context, id domain.SessionID, client domain.ClientID, producerID string, rtpCaps map[string]any) (map[string]any, error) {
	room, peer, err := c.roomPeer(id, client)
	if err != nil {
		return nil, err
	}
	var consumer map[string]any
	err = safeRelay("consume", func() error {
		var err error
		consumer, err = c.Relay.Consume(ctx, room, peer, producerID, rtpCaps)
		return err
	})
	return consumer, err
}

func (c *Coordinator) ResumeConsumer(ctx context.Context, id domain.SessionID, client domain.ClientID, consumerID string) error {
	room, peer, err := c.roomPeer(id, client)
	if err != nil {
		return err
	}
	return safeRelay("resume consumer", func() error {
		return c.Relay.ResumeConsumer(ctx, room, peer, consumerID)
	})
}

func (c *Coordinator) PauseProducer(ctx context.Context, id domain.SessionID, client domain.ClientID, producerID string) error {
	room, peer, err := c.roomPeer(id, client)
	if err != nil {
		return err
	}
	return safeRelay("pause producer", func() error {
		return c.Relay.PauseProducer(ctx, room, peer, producerID)
	})
}

func (c *Coordinator) ResumeProducer(ctx context.Context, id domain.SessionID, client domain.ClientID, producerID string) error {
	room, peer, err := c.roomPeer(id, client)
	if err != nil {
		return err
	}
	return safeRelay("resume producer", func() error {
		return c.Relay.ResumeProducer(ctx, room, peer, producerID)
	})
}
