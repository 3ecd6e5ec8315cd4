package handlers

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hamza-v/dash-chat/internal/auth"
	"github.com/hamza-v/dash-chat/internal/history"
	"github.com/hamza-v/dash-chat/internal/hub"
)

const localsClaims = "claims"

// ChatHandlers exposes the websocket endpoint and the history REST call.
type ChatHandlers struct {
	hub    *hub.Hub
	store  *history.Store
	tokens *auth.Manager
	logger *zap.Logger
}

func NewChatHandlers(h *hub.Hub, store *history.Store, tokens *auth.Manager, logger *zap.Logger) *ChatHandlers {
	return &ChatHandlers{hub: h, store: store, tokens: tokens, logger: logger}
}

// Register mounts the chat routes on app.
func (ch *ChatHandlers) Register(app *fiber.App) {
	app.Get("/ws/chat", ch.RequireToken, websocket.New(ch.WSHandler))
	app.Get("/api/chat/history/:peer", ch.RequireToken, ch.HistoryHandler)
}

// RequireToken authenticates the request: token as a query parameter (the
// websocket handshake path) with an Authorization header fallback.
func (ch *ChatHandlers) RequireToken(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token required"})
	}
	claims, err := ch.tokens.Verify(tokenStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}
	c.Locals(localsClaims, claims)
	return c.Next()
}

// WSHandler runs for the lifetime of one websocket connection.
func (ch *ChatHandlers) WSHandler(c *websocket.Conn) {
	claims, ok := c.Locals(localsClaims).(*auth.Claims)
	if !ok {
		c.Close()
		return
	}
	client := hub.NewClient(claims.UserID, claims.Username, c)
	ch.hub.RegisterChan <- client
	go client.WritePump()
	client.ReadPump(ch.hub)
}

// HistoryHandler GET /api/chat/history/:peer
func (ch *ChatHandlers) HistoryHandler(c *fiber.Ctx) error {
	claims := c.Locals(localsClaims).(*auth.Claims)
	peer := c.Params("peer")
	if peer == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	records, err := ch.store.Between(c.Context(), claims.UserID, peer)
	if err != nil {
		ch.logger.Error("loading chat history", zap.Error(err))
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	out := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		m := fiber.Map{
			"id":         r.ID,
			"sender_id":  r.SenderID,
			"message":    r.Body,
			"created_at": r.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			"sender": fiber.Map{
				"id":       r.SenderID,
				"username": r.SenderUsername,
			},
		}
		if r.ReceiverID.Valid {
			m["receiver_id"] = r.ReceiverID.String
		}
		out = append(out, m)
	}
	return c.JSON(out)
}
