// internal/api/handlers/websocket_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"car-inspection-api-server/internal/api/middleware"
	"car-inspection-api-server/internal/auth"
	"car-inspection-api-server/internal/inspection"
	"car-inspection-api-server/internal/socket"
)

// Maximum wait for a client ping before the connection is dropped.
const pongWait = 30 * time.Second

type WebSocketHandler struct {
	Hub    *socket.Hub
	Tokens *auth.Tokens
	Users  middleware.UserLookup // optional, rejects deleted and disabled accounts
	// AllowedOrigins empty allows any origin.
	AllowedOrigins []string
	Logger         *slog.Logger
}

func (h *WebSocketHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(h.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range h.AllowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWs authenticates with ?token= since browsers cannot set headers on
// the upgrade request.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}
	claims, err := h.Tokens.Parse(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if h.Users != nil {
		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		_, err = middleware.ActiveUser(c.Request.Context(), h.Users, id)
		switch {
		case errors.Is(err, inspection.ErrNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		case errors.Is(err, middleware.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			return
		case err != nil:
			respondError(c, logger, err)
			return
		}
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("failed to upgrade websocket connection", "error", err)
		return
	}

	h.Hub.Register(userID, conn)
	defer func() {
		h.Hub.Unregister(userID, conn)
		conn.Close()
	}()

	// Clients ping; gorilla answers with a pong. Each ping extends the deadline.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Info("websocket closed unexpectedly", "user_id", userID, "error", err)
			}
			break
		}
	}
}
