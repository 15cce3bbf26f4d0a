package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachSync/internal/live"
	"github.com/saeid-a/CoachSync/internal/middleware"
	"github.com/saeid-a/CoachSync/internal/realtime"
	livews "github.com/saeid-a/CoachSync/internal/websocket"
	"github.com/saeid-a/CoachSync/pkg/utils"
)

// LiveHandler serves the websocket that keeps a user's inbox and
// notification feed in sync.
type LiveHandler struct {
	hub           *livews.Hub
	feed          realtime.Feed
	conversations live.ConversationSource
	notifications live.NotificationSource
	jwtSecret     string
	sendBuffer    int
	baseCtx       context.Context
}

func NewLiveHandler(
	baseCtx context.Context,
	hub *livews.Hub,
	feed realtime.Feed,
	conversations live.ConversationSource,
	notifications live.NotificationSource,
	jwtSecret string,
) *LiveHandler {
	return &LiveHandler{
		hub:           hub,
		feed:          feed,
		conversations: conversations,
		notifications: notifications,
		jwtSecret:     jwtSecret,
		sendBuffer:    64,
		baseCtx:       baseCtx,
	}
}

func (h *LiveHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token subject"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *LiveHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)

	client := livews.NewClient(h.hub, conn, userID, h.sendBuffer)
	session := live.NewSession(userID, h.feed, h.conversations, h.notifications, client.Deliver)

	if err := client.Serve(h.baseCtx, session); err != nil {
		log.Printf("live connection for %s rejected: %v", userID, err)
		if errors.Is(err, livews.ErrTooManyConnections) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"too many connections"}`))
		}
		_ = conn.Close()
	}
}

func (h *LiveHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		if token, ok := middleware.BearerToken(c.Get("Authorization")); ok {
			tokenString = token
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
