package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/powerfm/livecast/internal/adapters/http"
	"github.com/powerfm/livecast/internal/adapters/payment"
	"github.com/powerfm/livecast/internal/adapters/relay"
	sig "github.com/powerfm/livecast/internal/adapters/signal"
	"github.com/powerfm/livecast/internal/app"
	"github.com/powerfm/livecast/internal/config"
	"github.com/powerfm/livecast/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	sfu := relay.NewClient(cfg.SFUSocket)
	pay := payment.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.APIBase)
	if !pay.Configured() {
		log.Warn().Msg("stripe secret key not set, payment endpoints disabled")
	}

	registry := app.NewSessionRegistry(cfg.ChatHistory, cfg.LeaderboardSize)

	tiers := make(map[string]domain.SpotlightTier, len(cfg.SpotlightTiers))
	for name, tc := range cfg.SpotlightTiers {
		tiers[name] = domain.SpotlightTier{Name: name, PriceCents: tc.PriceCents, Duration: tc.Duration}
	}

	coord := &app.Coordinator{
		Registry: registry,
		Relay:    sfu,
		Spotlights: &app.SpotlightEngine{
			Registry:   registry,
			Relay:      sfu,
			Payments:   pay,
			Tick:       cfg.SpotlightTick,
			ICEServers: cfg.ICEServers,
		},
		Tips: &app.TipEngine{
			Registry:      registry,
			Payments:      pay,
			Denominations: cfg.TipPresets,
		},
		ICEServers: cfg.ICEServers,
		RoomPrefix: cfg.RoomPrefix,
		RecentChat: cfg.RecentChat,
	}

	limiter := sig.NewChatRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	ctrl := sig.NewLiveWSController(coord, tiers, limiter)

	r := router.SetupRouter(ctx, cfg, coord, sfu, pay, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Livecast server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
