package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/core"
)

// Adapter calls are the only suspension points in the system and the only
// code here that can panic. Panics are converted to coded errors instead of
// crashing a session's serialization point.

func safeRelay(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app").Str("op", op).Interface("panic", r).Msg("relay adapter panic")
			err = &core.RelayError{Detail: fmt.Sprintf("%s: internal error", op)}
		}
	}()
	if err = fn(); err != nil {
		var re *core.RelayError
		if !errors.As(err, &re) {
			err = &core.RelayError{Detail: err.Error()}
		}
	}
	return err
}

func safeVerify(ctx context.Context, p core.PaymentVerifier, ref string) (ver core.PaymentVerification, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app").Interface("panic", r).Msg("payment adapter panic")
			err = &core.PaymentError{Reason: "verifier failure"}
		}
	}()
	ver, err = p.VerifyReference(ctx, ref)
	if err != nil {
		var pe *core.PaymentError
		if !errors.As(err, &pe) {
			err = &core.PaymentError{Reason: err.Error()}
		}
	}
	return ver, err
}
