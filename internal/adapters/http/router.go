package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/adapters/payment"
	"github.com/powerfm/livecast/internal/adapters/signal"
	"github.com/powerfm/livecast/internal/app"
	"github.com/powerfm/livecast/internal/config"
	"github.com/powerfm/livecast/internal/domain"
)

// Pinger is the relay health probe used by the status endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, relay Pinger, pay *payment.Client, ctrl *signal.LiveWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LivecastSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/live/streams", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"streams": coord.Registry.ListSessions()})
	})

	api.GET("/live/streams/:id", func(c *gin.Context) {
		summary, ok := coord.Registry.SessionInfo(domain.SessionID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	api.GET("/live/status", func(c *gin.Context) {
		status := coord.Registry.Status()
		sfuRunning := relay.Ping(c.Request.Context()) == nil
		c.JSON(http.StatusOK, gin.H{
			"active_streams":  status.ActiveSessions,
			"total_listeners": status.TotalListeners,
			"sfu_running":     sfuRunning,
		})
	})

	// Operational kill switch. Bypasses the host check.
	api.POST("/live/streams/:id/end", func(c *gin.Context) {
		id := domain.SessionID(c.Param("id"))
		if err := coord.EndSession(c.Request.Context(), id, "", true); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ended": true})
	})

	api.POST("/live/checkout", func(c *gin.Context) {
		if !pay.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway not configured"})
			return
		}
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		product, amount, err := resolvePurchase(cfg, req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sess := sessions.Default(c)
		customerRef, _ := sess.Get("customer_ref").(string)
		if customerRef == "" && req.Email != "" {
			customerRef, err = pay.EnsureCustomer(c.Request.Context(), req.Email, req.Name, map[string]string{
				"client_token": c.GetString("client_token"),
			})
			if err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("create customer failed")
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
				return
			}
			sess.Set("customer_ref", customerRef)
			_ = sess.Save()
		}

		checkout, err := pay.CreateCheckout(c.Request.Context(), payment.CheckoutParams{
			ProductName: product,
			AmountCents: amount,
			SuccessURL:  req.SuccessURL,
			CancelURL:   req.CancelURL,
			CustomerRef: customerRef,
			Metadata: map[string]string{
				"purpose":    req.Purpose,
				"session_id": req.SessionID,
			},
		})
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("create checkout failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
			return
		}
		c.JSON(http.StatusOK, checkout)
	})

	api.POST("/live/quick-pay", func(c *gin.Context) {
		if !pay.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway not configured"})
			return
		}
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		product, amount, err := resolvePurchase(cfg, req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sess := sessions.Default(c)
		customerRef, _ := sess.Get("customer_ref").(string)
		if customerRef == "" {
			c.JSON(http.StatusPaymentRequired, gin.H{"need_checkout": true, "error": "no saved payment method"})
			return
		}
		ver, err := pay.ChargeSavedMethod(c.Request.Context(), customerRef, amount, product)
		if err != nil {
			c.JSON(http.StatusPaymentRequired, gin.H{"need_checkout": true, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"payment_intent_id": ver.Ref,
			"amount_cents":      ver.AmountCents,
			"card":              ver.Method,
		})
	})

	api.GET("/ws/live", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws live endpoint hit")
		ctrl.HandleLive(ctx, c)
	})

	return r
}

type checkoutRequest struct {
	Purpose     string `json:"purpose"`
	Tier        string `json:"tier"`
	AmountCents int64  `json:"amount_cents"`
	SessionID   string `json:"session_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

// resolvePurchase maps the request onto a configured tier or tip preset.
// Amounts are never taken from the client alone.
func resolvePurchase(cfg *config.Config, req checkoutRequest) (string, int64, error) {
	switch req.Purpose {
	case "spotlight":
		tier, ok := cfg.SpotlightTiers[req.Tier]
		if !ok {
			return "", 0, errUnknownTier
		}
		return "Guest spotlight (" + req.Tier + ")", tier.PriceCents, nil
	case "tip":
		for _, preset := range cfg.TipPresets {
			if preset == req.AmountCents {
				return "Tip the host", req.AmountCents, nil
			}
		}
		return "", 0, errBadAmount
	default:
		return "", 0, errBadPurpose
	}
}
