package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/powerfm/livecast/internal/app"
	"github.com/powerfm/livecast/internal/core"
	"github.com/powerfm/livecast/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// LiveWSController terminates the persistent per-participant channel and
// translates envelopes into coordinator calls.
type LiveWSController struct {
	Coord   *app.Coordinator
	Tiers   map[string]domain.SpotlightTier
	Limiter *ChatRateLimiter
}

func NewLiveWSController(coord *app.Coordinator, tiers map[string]domain.SpotlightTier, limiter *ChatRateLimiter) *LiveWSController {
	return &LiveWSController{Coord: coord, Tiers: tiers, Limiter: limiter}
}

// WsLiveConn is one participant's socket. It implements core.EventSink:
// engines hand it typed events, it owns the wire encoding.
type WsLiveConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsLiveConn) TrySend(ev core.Event) error {
	b, err := encodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", string(ev.Kind())).Msg("encode event")
		return err
	}
	return c.trySendRaw(b)
}

func (c *WsLiveConn) trySendRaw(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsLiveConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *LiveWSController) HandleLive(ctx context.Context, c *gin.Context) {
	client := domain.ClientID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("client", string(client)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsLiveConn{
		conn: ws,
		send: make(chan []byte, 64),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, client, conn)
}
