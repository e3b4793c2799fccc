package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

// TipEngine validates tips and recomputes per-session leaderboards.
type TipEngine struct {
	Registry      *SessionRegistry
	Payments      core.PaymentVerifier
	Denominations []int64
}

// Submit commits a verified tip: record, session total, leaderboard and the
// tip-received / leaderboard-update pair, in that order, all-or-nothing.
func (t *TipEngine) Submit(ctx context.Context, id domain.SessionID, client domain.ClientID, name string, amountCents int64, paymentRef string) error {
	if !t.allowed(amountCents) {
		return &core.PaymentError{Reason: "amount not in allowed denominations"}
	}
	if _, ok := t.Registry.SessionInfo(id); !ok {
		return core.ErrSessionNotFound
	}
	ver, err := safeVerify(ctx, t.Payments, paymentRef)
	if err != nil {
		return err
	}
	if ver.AmountCents != amountCents {
		return &core.PaymentError{Reason: "charged amount does not match tip amount"}
	}

	// The session may have ended while the verifier was in flight; the
	// verified charge is then discarded (update reports not-found).
	err = t.Registry.update(id, func(e *sessionEntry) error {
		now := time.Now().UTC()
		e.tips = append(e.tips, domain.TipRecord{Name: name, AmountCents: amountCents, At: now})
		e.sess.TipTotalCents += amountCents

		entry, ok := e.board[name]
		if !ok {
			entry = &domain.LeaderboardEntry{Name: name}
			e.board[name] = entry
		}
		entry.TotalCents += amountCents
		entry.ReachedAt = now

		if slot, ok := e.participants[client]; ok {
			slot.meta.Tipper = true
		}

		e.emitAllLocked(core.TipReceived{Name: name, AmountCents: amountCents})
		e.emitAllLocked(e.boardViewLocked(t.Registry.boardSize))
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("module", "app.tips").Str("session", string(id)).Str("name", name).Int64("amount_cents", amountCents).Msg("tip recorded")
	return nil
}

func (t *TipEngine) allowed(amountCents int64) bool {
	for _, d := range t.Denominations {
		if d == amountCents {
			return true
		}
	}
	return false
}
