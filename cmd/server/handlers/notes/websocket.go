package notes

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"noteflow/cmd/server/handlers/handlerutil"
	"noteflow/cmd/server/handlers/httperr"
	"noteflow/internal/logger"
	"noteflow/internal/services/auth"
	"noteflow/internal/services/notes"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second

	localParentCtx = "parentCtx"
)

// Hub interface for WebSocket management
type Hub interface {
	Subscribe(connULID ulid.ULID, userID string) (*notes.Subscriber, func())
}

// WebSocketHandlers contains WebSocket-related handlers
type WebSocketHandlers struct {
	hub           Hub
	jwtSecret     string
	maxSessionSec int
}

// NewWebSocketHandlers creates new WebSocket handlers
func NewWebSocketHandlers(hub Hub, jwtSecret string, maxSessionSec int) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub:           hub,
		jwtSecret:     jwtSecret,
		maxSessionSec: maxSessionSec,
	}
}

// WSUpgrade checks the token query parameter before the upgrade. Browsers
// cannot set headers on a WebSocket handshake.
// @Summary Live note events
// @Tags notes
// @Param token query string true "Access token"
// @Success 101
// @Failure 401 {object} httperr.E
// @Router /ws/notes/stream [get]
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return httperr.Fail(httperr.E{Status: fiber.StatusBadRequest, Message: "websocket upgrade required"})
	}

	id, err := auth.ParseToken(c.Query("token"), h.jwtSecret)
	if err != nil {
		logger.L().Info("websocket upgrade rejected", "ip", c.IP(), "error", err)
		return err
	}

	c.Locals(handlerutil.LocalUserID, id.UserID)
	c.Locals(handlerutil.LocalUserEmail, id.Email)
	c.Locals(localParentCtx, c.UserContext())
	return c.Next()
}

// wsConnection holds connection-specific data
type wsConnection struct {
	userID   string
	connULID ulid.ULID
	connID   string
	writeMu  sync.Mutex
}

func (w *wsConnection) logArgs(args ...any) []any {
	return append(args, "user_id", w.userID, "conn_id", w.connID)
}

// WSNotesStream pushes note events to the connected user until the client
// leaves, the session expires or the hub drops the subscriber.
func (h *WebSocketHandlers) WSNotesStream(c *websocket.Conn) {
	conn, parentCtx, err := h.initializeConnection(c)
	if err != nil {
		logger.L().Error("websocket setup failed", "error", err)
		h.closeConnection(c)
		return
	}

	ctx, cancelCtx := context.WithCancel(parentCtx)
	defer cancelCtx()

	subscriber, unsubscribe := h.hub.Subscribe(conn.connULID, conn.userID)
	defer unsubscribe()

	logger.L().Info("websocket connection established", conn.logArgs()...)

	session := time.AfterFunc(time.Duration(h.maxSessionSec)*time.Second, func() {
		logger.L().Info("websocket session timeout", conn.logArgs()...)
		h.write(c, conn, websocket.CloseMessage, websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"))
		h.closeConnection(c)
		cancelCtx()
	})
	defer session.Stop()

	go h.keepAlive(ctx, c, conn)
	go h.forwardEvents(ctx, c, conn, subscriber)

	h.readUntilClosed(c, conn)
	logger.L().Info("websocket connection closed", conn.logArgs()...)
}

func (h *WebSocketHandlers) initializeConnection(c *websocket.Conn) (*wsConnection, context.Context, error) {
	userID, ok := c.Locals(handlerutil.LocalUserID).(string)
	if !ok || userID == "" {
		return nil, nil, errors.New("user id not found in websocket context")
	}
	parentCtx, ok := c.Locals(localParentCtx).(context.Context)
	if !ok {
		parentCtx = context.Background()
	}

	connULID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	return &wsConnection{userID: userID, connULID: connULID, connID: connULID.String()}, parentCtx, nil
}

func (h *WebSocketHandlers) closeConnection(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		logger.L().Debug("failed to close websocket connection", "error", err)
	}
}

// write serializes frames; the ping and event goroutines share the conn.
func (h *WebSocketHandlers) write(c *websocket.Conn, conn *wsConnection, messageType int, data []byte) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
		return err
	}
	return c.WriteMessage(messageType, data)
}

func (h *WebSocketHandlers) keepAlive(ctx context.Context, c *websocket.Conn, conn *wsConnection) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := h.write(c, conn, websocket.PingMessage, nil); err != nil {
				logger.L().Debug("websocket ping failed", conn.logArgs("error", err)...)
				return
			}
		}
	}
}

func (h *WebSocketHandlers) forwardEvents(ctx context.Context, c *websocket.Conn, conn *wsConnection, sub *notes.Subscriber) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("panic in websocket sender", conn.logArgs("error", r)...)
		}
	}()

	for {
		select {
		case event, ok := <-sub.Ch:
			if !ok {
				return
			}
			if err := h.sendEvent(c, conn, event); err != nil {
				logger.L().Warn("failed to write websocket message", conn.logArgs("error", err)...)
				return
			}
		case <-sub.Done:
			// the hub dropped us, usually for a full outbox
			h.closeConnection(c)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandlers) sendEvent(c *websocket.Conn, conn *wsConnection, event notes.NoteEvent) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.WriteJSON(buildEventMessage(event))
}

// buildEventMessage strips deleted notes down to their id.
func buildEventMessage(event notes.NoteEvent) map[string]any {
	if event.Type == "deleted" {
		return map[string]any{
			"type": event.Type,
			"note": map[string]any{"id": event.Note.ID},
		}
	}
	return map[string]any{
		"type": event.Type,
		"note": event.Note,
	}
}

func (h *WebSocketHandlers) readUntilClosed(c *websocket.Conn, conn *wsConnection) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.L().Warn("websocket read error", conn.logArgs("error", err)...)
			}
			return
		}
	}
}
