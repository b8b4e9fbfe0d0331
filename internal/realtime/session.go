package realtime

import (
	"time"

	"analysis-console-api/internal/models"
)

// Conn represents a single push connection.
// We keep it minimal here; the actual network conn is managed in the ws handler.
type Conn interface {
	Send(message []byte) bool
	Close()
}

// Session is one live push connection plus its subscription state. All
// mutable fields are guarded by the manager's lock.
type Session struct {
	ID     string
	UserID string

	conn Conn

	// role is a snapshot taken at handshake and refreshed by init sync;
	// it is never trusted long-term.
	role models.Role

	topics        map[string]struct{}
	lastHeartbeat time.Time
	alive         bool
}

func newSession(id, userID string, role models.Role, conn Conn) *Session {
	return &Session{
		ID:            id,
		UserID:        userID,
		conn:          conn,
		role:          role,
		topics:        make(map[string]struct{}),
		lastHeartbeat: now(),
		alive:         true,
	}
}

// push writes a message to the underlying connection, reporting success.
func (s *Session) push(message []byte) bool {
	return s.conn.Send(message)
}
