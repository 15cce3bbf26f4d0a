package livews

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/saeid-a/CoachSync/internal/live"
	"github.com/saeid-a/CoachSync/internal/models"
	"github.com/saeid-a/CoachSync/internal/services"
)

const (
	OpOpenThread         = "open_thread"
	OpCloseThread        = "close_thread"
	OpSendMessage        = "send_message"
	OpMarkRead           = "mark_read"
	OpMarkAllRead        = "mark_all_read"
	OpDeleteNotification = "delete_notification"

	frameError = "error"
	frameAck   = "ack"
)

var ErrSlowClient = errors.New("client is not keeping up")

// Conn is the part of a websocket connection a client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is the live state machine a client drives.
type Session interface {
	Run(ctx context.Context) error
	OpenThread(ctx context.Context, partnerID string) error
	CloseThread(ctx context.Context) error
	SendMessage(ctx context.Context, partnerID string, content string) (*models.Message, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
}

// Frame is every server to client payload.
type Frame struct {
	Type      string `json:"type"`
	Op        string `json:"op,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

type incomingFrame struct {
	Type           string `json:"type"`
	PartnerID      string `json:"partner_id"`
	NotificationID string `json:"notification_id"`
	Content        string `json:"content"`
}

type Client struct {
	hub    *Hub
	conn   Conn
	userID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClient(hub *Hub, conn Conn, userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 32
	}
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, buffer),
	}
}

// Deliver queues a live update for the connection. It never blocks; a full
// buffer means the client fell behind and the session is ended.
func (c *Client) Deliver(update live.Update) error {
	return c.enqueue(Frame{Type: update.Type, Data: update})
}

// Serve registers the client and runs session until the connection drops.
func (c *Client) Serve(ctx context.Context, session Session) error {
	if err := c.hub.Register(c); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("live session %s ended: %v", c.userID, err)
		}
		_ = c.conn.Close()
	}()

	c.readPump(ctx, session)

	cancel()
	c.hub.Unregister(c)
	c.closeSend()
	wg.Wait()
	return nil
}

func (c *Client) readPump(ctx context.Context, session Session) {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming incomingFrame
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("", "invalid message payload")
			continue
		}

		if err := c.dispatch(ctx, session, incoming); err != nil {
			if errors.Is(err, live.ErrSessionClosed) || ctx.Err() != nil {
				return
			}
			c.writeError(incoming.Type, describeError(err))
		}
	}
}

func (c *Client) dispatch(ctx context.Context, session Session, incoming incomingFrame) error {
	switch incoming.Type {
	case OpOpenThread:
		return session.OpenThread(ctx, incoming.PartnerID)
	case OpCloseThread:
		return session.CloseThread(ctx)
	case OpSendMessage:
		message, err := session.SendMessage(ctx, incoming.PartnerID, incoming.Content)
		if err != nil {
			return err
		}
		return c.enqueue(Frame{Type: frameAck, Op: OpSendMessage, Data: message})
	case OpMarkRead:
		return session.MarkNotificationRead(ctx, incoming.NotificationID)
	case OpMarkAllRead:
		return session.MarkAllNotificationsRead(ctx)
	case OpDeleteNotification:
		return session.DeleteNotification(ctx, incoming.NotificationID)
	default:
		return errUnsupportedOp
	}
}

var errUnsupportedOp = errors.New("unsupported message type")

func describeError(err error) string {
	switch {
	case errors.Is(err, errUnsupportedOp):
		return "unsupported message type"
	case errors.Is(err, services.ErrEmptyMessage):
		return "message is empty"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid request"
	case errors.Is(err, services.ErrNotFound):
		return "not found"
	case errors.Is(err, services.ErrForbidden):
		return "forbidden"
	default:
		return "failed to process request"
	}
}

func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) writeError(op string, message string) {
	if err := c.enqueue(Frame{Type: frameError, Op: op, Error: message}); err != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) enqueue(frame Frame) error {
	frame.Timestamp = services.FormatChatTimestamp(time.Now())
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return live.ErrSessionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSlowClient
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
