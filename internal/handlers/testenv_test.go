package handlers

import (
	"sync"
	"testing"
	"time"

	"analysis-console-api/internal/database"
	"analysis-console-api/internal/directory"
	"analysis-console-api/internal/metrics"
	"analysis-console-api/internal/realtime"
	"analysis-console-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeConn records pushed messages for assertions.
type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
}

func (c *fakeConn) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, append([]byte(nil), message...))
	return true
}

func (c *fakeConn) Close() {}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func newTestManager(t *testing.T) (*realtime.Manager, *gorm.DB) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	dir := directory.NewGormDirectory(db)
	gate := realtime.NewGate(dir, dir)
	source := &metrics.StaticSource{Snap: &metrics.Snapshot{}}

	// Long intervals keep background ticks out of handler assertions
	return realtime.NewManager(gate, dir, dir, dir, source, realtime.Options{
		HeartbeatInterval: time.Hour,
		MetricsInterval:   time.Hour,
		StaleThreshold:    3 * time.Hour,
	}), db
}
