package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SupraView/internal/domain/models"
	xlogger "SupraView/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// priceEvent is the wire frame pushed to subscribers on every emitted
// update.
type priceEvent struct {
	Type      string              `json:"type"`
	Update    *models.PriceUpdate `json:"update"`
	Direction models.Direction    `json:"direction"`
}

// PriceHub fans emitted price updates out to websocket subscribers. A slow
// subscriber whose buffer fills is dropped rather than backpressuring the
// poll loop.
type PriceHub struct {
	logger *xlogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan priceEvent
}

// NewPriceHub creates a price broadcast hub.
func NewPriceHub(logger *xlogger.Logger) *PriceHub {
	return &PriceHub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes registers the websocket endpoint.
func (h *PriceHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/price", h.Serve)
}

// Serve upgrades the connection and subscribes it to price updates.
func (h *PriceHub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{
		conn: conn,
		send: make(chan priceEvent, sendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(cl)
	go h.readLoop(cl)
	return nil
}

// HandlePriceUpdate implements the poller's update handler.
func (h *PriceHub) HandlePriceUpdate(u *models.PriceUpdate, direction models.Direction) {
	event := priceEvent{
		Type:      "price_update",
		Update:    u,
		Direction: direction,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		select {
		case cl.send <- event:
		default:
			// Buffer full: the write loop will notice the closed channel
			// path on its next tick; just drop this frame for them.
			if h.logger != nil {
				h.logger.Debug("dropping price frame for slow subscriber")
			}
		}
	}
}

// Close disconnects all subscribers.
func (h *PriceHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
	}
}

func (h *PriceHub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// readLoop drains the connection so pings and close frames are processed;
// subscribers never send application data.
func (h *PriceHub) readLoop(cl *client) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *PriceHub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case event, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
