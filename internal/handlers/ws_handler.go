package handlers

import (
	"log"
	"net/http"
	"time"

	"analysis-console-api/internal/models"
	"analysis-console-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsConn implements realtime.Conn by wrapping a websocket connection.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsConn) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// WebSocketHandler upgrades the connection, registers a session with the
// manager and pushes the connect-time snapshot. It requires JWT middleware
// to have set "user_id" and "role" in context.
func WebSocketHandler(m *realtime.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
			return
		}
		role := models.Role(c.GetString("role"))

		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("websocket upgrade error:", err)
			return
		}

		client := &wsConn{conn: conn}
		session := m.AddSession(userID, role, client)

		if message, err := realtime.Encode(realtime.EventConnection, map[string]any{
			"sessionId": session.ID,
		}); err == nil {
			client.Send(message)
		}

		// Connect-time snapshot; the role from the token is re-verified
		// against the user store inside.
		m.SyncSession(c.Request.Context(), session.ID, realtime.EventInit)

		defer m.RemoveSession(session.ID)

		// Reader loop: drain client frames until the connection dies.
		// Liveness is handled by the manager's heartbeat and stale sweep.
		conn.SetReadLimit(1024)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
