package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/assumechat/server/internal/app/orch"
	"github.com/assumechat/server/internal/config"
	"github.com/assumechat/server/internal/core"
	"github.com/assumechat/server/internal/domain"
)

type Controller struct {
	Orch *orch.Orchestrator
	cfg  *config.Config
}

func NewController(o *orch.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{Orch: o, cfg: cfg}
}

// WsConn is the outbound half of one client connection. TrySend never
// blocks: a full buffer returns core.ErrBackpressure and the frame is lost.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and brings the connection to life: a fresh
// opaque id, registration, and the read/write pumps.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}

	id := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "ws").Str("conn", string(id)).Msg("new connection")

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.OnConnect(id, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, id, conn, cancel)
}
