package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// SpotlightEngine runs paid-queue admission and timed spotlight expiry.
// Per requester the state machine is none -> pending -> active -> none;
// at most one spotlight is active per session.
type SpotlightEngine struct {
	Registry   *SessionRegistry
	Relay      core.MediaRelay
	Payments   core.PaymentVerifier
	Tick       time.Duration
	ICEServers []core.ICEServer
}

// Request verifies the payment reference, then appends a FIFO queue entry.
// Verification failure leaves no trace. Returns the 1-based queue position.
func (s *SpotlightEngine) Request(ctx context.Context, id domain.SessionID, client domain.ClientID, tier domain.SpotlightTier, paymentRef string) (int, error) {
	if _, ok := s.Registry.SessionInfo(id); !ok {
		return 0, core.ErrSessionNotFound
	}
	ver, err := safeVerify(ctx, s.Payments, paymentRef)
	if err != nil {
		return 0, err
	}
	if ver.AmountCents != tier.PriceCents {
		return 0, &core.PaymentError{Reason: "charged amount does not match tier price"}
	}

	pos := 0
	err = s.Registry.update(id, func(e *sessionEntry) error {
		slot, ok := e.participants[client]
		if !ok {
			return core.ErrForbidden
		}
		if e.spotlight != nil && e.spotlight.Client == client {
			return core.ErrConflict
		}
		for _, g := range e.queue {
			if g.Client == client {
				return core.ErrConflict
			}
		}
		e.queue = append(e.queue, &domain.GuestQueueEntry{
			Client:      client,
			PeerID:      slot.meta.PeerID,
			Name:        slot.meta.Name,
			Tier:        tier,
			PaymentRef:  paymentRef,
			RequestedAt: time.Now().UTC(),
		})
		pos = len(e.queue)
		e.emitHostLocked(e.queueViewLocked())
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info().Str("module", "app.spotlight").Str("session", string(id)).Str("tier", tier.Name).Int("position", pos).Msg("spotlight request queued")
	return pos, nil
}

// Approve pops the queue entry and activates the spotlight. The slot is
// reserved under the session lock before any relay call, so two concurrent
// approvals can never both succeed.
func (s *SpotlightEngine) Approve(ctx context.Context, id domain.SessionID, host domain.ClientID, index int) error {
	var (
		guest *domain.GuestQueueEntry
		room  domain.RoomID
		gen   uint64
	)
	err := s.Registry.update(id, func(e *sessionEntry) error {
		if host != e.host {
			return core.ErrForbidden
		}
		if e.spotlight != nil {
			return core.ErrConflict
		}
		if index < 0 || index >= len(e.queue) {
			return core.ErrConflict
		}
		guest = e.queue[index]
		e.queue = append(e.queue[:index], e.queue[index+1:]...)

		e.spotGen++
		gen = e.spotGen
		room = e.sess.RoomID
		d := guest.Tier.Duration
		e.spotlight = &domain.ActiveSpotlight{
			Client:    guest.Client,
			PeerID:    guest.PeerID,
			Name:      guest.Name,
			Duration:  d,
			Remaining: d,
			StartedAt: time.Now().UTC(),
			Gen:       gen,
		}
		e.emitAllLocked(core.SpotlightStarted{Name: guest.Name, Duration: int(d.Seconds())})
		e.emitHostLocked(e.queueViewLocked())
		e.spotTimer = time.AfterFunc(s.Tick, func() { s.tick(id, gen) })
		return nil
	})
	if err != nil {
		return err
	}

	// Provision the guest's inbound transport outside the lock. Failure is
	// surfaced, but the spotlight stands: media delivery is independent of
	// queue semantics.
	var transport map[string]any
	rerr := safeRelay("create guest transport", func() error {
		var err error
		transport, err = s.Relay.CreateTransport(ctx, room, guest.PeerID, false)
		return err
	})
	approved := core.SpotlightApproved{Transport: transport, ICEServers: s.ICEServers}
	if rerr != nil {
		approved.RelayErr = rerr.Error()
		log.Error().Err(rerr).Str("module", "app.spotlight").Str("session", string(id)).Msg("guest transport provisioning failed")
	}
	_ = s.Registry.update(id, func(e *sessionEntry) error {
		e.emitToLocked(guest.Client, approved)
		return nil
	})
	log.Info().Str("module", "app.spotlight").Str("session", string(id)).Str("guest", guest.Name).Msg("spotlight started")
	return rerr
}

// Reject removes a queue entry. No relay side effects.
func (s *SpotlightEngine) Reject(id domain.SessionID, host domain.ClientID, index int) error {
	return s.Registry.update(id, func(e *sessionEntry) error {
		if host != e.host {
			return core.ErrForbidden
		}
		if index < 0 || index >= len(e.queue) {
			return core.ErrConflict
		}
		e.queue = append(e.queue[:index], e.queue[index+1:]...)
		e.emitHostLocked(e.queueViewLocked())
		return nil
	})
}

// End terminates the active spotlight. Idempotent: with no spotlight it is
// a no-op and broadcasts nothing. system=true bypasses the host check for
// timer expiry and disconnect paths.
func (s *SpotlightEngine) End(ctx context.Context, id domain.SessionID, requester domain.ClientID, system bool) error {
	var (
		peer string
		room domain.RoomID
	)
	err := s.Registry.update(id, func(e *sessionEntry) error {
		if !system && requester != e.host {
			return core.ErrForbidden
		}
		room = e.sess.RoomID
		peer = endSpotlightLocked(e)
		return nil
	})
	if err != nil {
		return err
	}
	if peer != "" {
		s.releaseGuest(ctx, id, room, peer)
	}
	return nil
}

// tick fires on the countdown interval. It re-validates against the current
// generation: a timer that outlived its spotlight discards itself.
func (s *SpotlightEngine) tick(id domain.SessionID, gen uint64) {
	var (
		peer string
		room domain.RoomID
	)
	_ = s.Registry.update(id, func(e *sessionEntry) error {
		sp := e.spotlight
		if sp == nil || sp.Gen != gen {
			return nil
		}
		sp.Remaining -= s.Tick
		if sp.Remaining < 0 {
			sp.Remaining = 0
		}
		e.emitAllLocked(core.SpotlightTick{Remaining: int(sp.Remaining.Seconds())})
		if sp.Remaining > 0 {
			e.spotTimer = time.AfterFunc(s.Tick, func() { s.tick(id, gen) })
			return nil
		}
		room = e.sess.RoomID
		peer = endSpotlightLocked(e)
		return nil
	})
	if peer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.releaseGuest(ctx, id, room, peer)
	}
}

func (s *SpotlightEngine) releaseGuest(ctx context.Context, id domain.SessionID, room domain.RoomID, peer string) {
	err := safeRelay("release guest peer", func() error {
		return s.Relay.LeaveRoom(ctx, room, peer)
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.spotlight").Str("session", string(id)).Str("peer", peer).Msg("guest relay release failed")
	}
}

// endSpotlightLocked clears the record, invalidates its timer and notifies
// the room. The caller releases the guest's relay resources after unlock.
func endSpotlightLocked(e *sessionEntry) string {
	sp := e.spotlight
	if sp == nil {
		return ""
	}
	e.spotlight = nil
	e.spotGen++
	if e.spotTimer != nil {
		e.spotTimer.Stop()
		e.spotTimer = nil
	}
	e.emitAllLocked(core.SpotlightExpired{})
	return sp.PeerID
}
