package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Websocket events.
const (
	EventConnected         = "connected"
	EventStartMonitoring   = "start_monitoring"
	EventStopMonitoring    = "stop_monitoring"
	EventMonitoringStarted = "monitoring_started"
	EventMonitoringStopped = "monitoring_stopped"
	EventSafetyUpdate      = "safety_update"
	EventError             = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 16
)

var errConnectionClosed = errors.New("websocket connection closed")

// Message is the envelope of every websocket frame.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Notice is the payload of informational and error events.
type Notice struct {
	Message string `json:"message"`
}

// client is one websocket connection. Its id doubles as the monitoring session id.
type client struct {
	id   string
	conn *websocket.Conn
	svc  Service
	log  *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	send      chan []byte
	sendMu    sync.Mutex // orders session frames against monitoring_stopped
	done      chan struct{}
	closeOnce sync.Once
}

// ServeWS upgrades the request and serves the monitoring channel.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WarnContext(c.Request.Context(), "Failed to upgrade connection to websocket", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &client{
		id:     uuid.NewString(),
		conn:   conn,
		svc:    h.svc,
		log:    h.log,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	h.log.InfoContext(ctx, "Websocket client connected", "session", cl.id, "client", c.ClientIP())

	cl.emit(EventConnected, Notice{Message: "Connected to Paddos"})

	go cl.writePump()
	go cl.readPump()
}

// Push implements monitor.Sink. A report whose session was already stopped is dropped.
func (c *client) Push(ctx context.Context, report models.SafetyReport) error {
	frame, err := encode(EventSafetyUpdate, report)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err = ctx.Err(); err != nil {
		return err
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *client) emit(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		c.log.Error("Failed to encode websocket event", "event", event, "error", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	select {
	case c.send <- frame:
	case <-c.done:
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
}

func (c *client) readPump() {
	defer func() {
		c.close()
		c.svc.Disconnect(c.id)
		c.log.Info("Websocket client disconnected", "session", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read failed", "session", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err = json.Unmarshal(payload, &msg); err != nil {
			c.emit(EventError, Notice{Message: "Invalid message"})
			continue
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg Message) {
	switch msg.Event {
	case EventStartMonitoring:
		var req models.SafetyRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.emit(EventError, Notice{Message: msgInvalidCoordinates})
				return
			}
		}
		if err := c.svc.StartMonitoring(c.ctx, c.id, req, c); err != nil {
			_, message := requestError(err)
			c.emit(EventError, Notice{Message: message})
			return
		}
		c.emit(EventMonitoringStarted, Notice{Message: "Monitoring started"})

	case EventStopMonitoring:
		if c.svc.StopMonitoring(c.ctx, c.id) {
			c.emit(EventMonitoringStopped, Notice{Message: "Monitoring stopped"})
		}

	default:
		c.emit(EventError, Notice{Message: "Unknown event: " + msg.Event})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("Websocket write failed", "session", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Event: event, Data: raw})
}
