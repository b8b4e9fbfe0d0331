package realtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"analysis-console-api/internal/directory"
	"analysis-console-api/internal/metrics"
	"analysis-console-api/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrUnknownSession is returned when an operation names a session id
	// that is not registered (or disconnected mid-operation).
	ErrUnknownSession = errors.New("unknown session")
	// ErrInvalidTopic is returned when a subscribe request carries an
	// empty topic name.
	ErrInvalidTopic = errors.New("invalid topic name")
)

// Options configures the manager's timers.
type Options struct {
	HeartbeatInterval time.Duration
	MetricsInterval   time.Duration
	StaleThreshold    time.Duration
	Scheduler         Scheduler
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = 30 * time.Second
	}
	if out.MetricsInterval <= 0 {
		out.MetricsInterval = time.Second
	}
	if out.StaleThreshold <= out.HeartbeatInterval {
		out.StaleThreshold = 3 * out.HeartbeatInterval
	}
	if out.Scheduler == nil {
		out.Scheduler = NewScheduler()
	}
	return out
}

// SubscribeResult reports the per-topic outcome of a batch subscribe.
// Denied is always present, defaulting to an empty list.
type SubscribeResult struct {
	Success    bool     `json:"success"`
	Subscribed []string `json:"subscribed"`
	Denied     []string `json:"denied"`
}

// UnsubscribeResult reports the outcome of a batch unsubscribe.
type UnsubscribeResult struct {
	Success      bool     `json:"success"`
	Unsubscribed []string `json:"unsubscribed"`
}

// Manager owns the session registry, the channel pool, the process state
// singleton and the session-count-gated timers. One instance is constructed
// at process start and injected into the HTTP handlers.
type Manager struct {
	gate    *Gate
	users   directory.UserStore
	catalog directory.AnalysisDirectory
	teams   directory.TeamDirectory
	metrics metrics.Source
	opts    Options

	mu       sync.RWMutex
	sessions map[string]*Session
	channels map[string]*Channel
	state    ProcessState

	timersRunning bool
	stopTimers    chan struct{}
}

func NewManager(gate *Gate, users directory.UserStore, catalog directory.AnalysisDirectory, teams directory.TeamDirectory, source metrics.Source, opts Options) *Manager {
	m := &Manager{
		gate:     gate,
		users:    users,
		catalog:  catalog,
		teams:    teams,
		metrics:  source,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
		channels: make(map[string]*Channel),
		state:    ProcessState{Status: "idle", StartTime: now()},
	}
	m.channels[GlobalChannel] = newChannel(GlobalChannel, Permanent)
	return m
}

// AddSession registers a new connection under a user. The session starts
// with no topic subscriptions and is a member of the global channel. The
// first session starts the heartbeat/metrics timers.
func (m *Manager) AddSession(userID string, role models.Role, conn Conn) *Session {
	s := newSession(uuid.NewString(), userID, role, conn)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.channels[GlobalChannel].register(s)
	if len(m.sessions) == 1 {
		m.startTimersLocked()
	}
	m.mu.Unlock()

	return s
}

// RemoveSession deregisters the session from the global channel and every
// subscribed channel, deleting topic channels that empty out. Unknown ids
// are a no-op. The last session stops the timers.
func (m *Manager) RemoveSession(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}

	for topic := range s.topics {
		m.leaveChannelLocked(sessionID, topic)
	}
	m.channels[GlobalChannel].deregister(sessionID)
	delete(m.sessions, sessionID)
	s.alive = false

	if len(m.sessions) == 0 {
		m.stopTimersLocked()
	}
	m.mu.Unlock()

	s.conn.Close()
}

// leaveChannelLocked removes the membership and deletes the channel if its
// cleanup policy says so and it just emptied. Caller holds the write lock.
func (m *Manager) leaveChannelLocked(sessionID, topic string) {
	ch, ok := m.channels[topic]
	if !ok {
		return
	}
	ch.deregister(sessionID)
	if ch.Policy == AutoCleanupOnEmpty && ch.MemberCount() == 0 {
		delete(m.channels, topic)
	}
}

// getOrCreateChannelLocked returns the existing topic channel or creates
// one. Caller holds the write lock, so concurrent calls converge on a
// single instance.
func (m *Manager) getOrCreateChannelLocked(topic string) *Channel {
	if ch, ok := m.channels[topic]; ok {
		return ch
	}
	ch := newChannel(topic, AutoCleanupOnEmpty)
	m.channels[topic] = ch
	return ch
}

// Subscribe evaluates authorization independently per topic and registers
// the session on every allowed channel. Partial success is the expected
// outcome; only structural problems (unknown session, empty topic name)
// return an error. Re-subscribing to an already-subscribed topic changes
// nothing.
func (m *Manager) Subscribe(ctx context.Context, sessionID, userID string, topics []string) (*SubscribeResult, error) {
	for _, topic := range topics {
		if topic == "" {
			return nil, ErrInvalidTopic
		}
	}

	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrUnknownSession
	}
	role := s.role
	m.mu.RUnlock()

	// Authorization consults external collaborators, so it runs outside
	// the lock. The session may disconnect while these are in flight.
	allowed := make(map[string]bool, len(topics))
	for _, topic := range topics {
		allowed[topic] = m.gate.IsAuthorized(ctx, userID, role, topic)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-validate: a disconnect during the permission checks must not
	// re-add a dead session to any channel.
	s, ok = m.sessions[sessionID]
	if !ok || !s.alive {
		return nil, ErrUnknownSession
	}

	result := &SubscribeResult{
		Success:    true,
		Subscribed: []string{},
		Denied:     []string{},
	}
	for _, topic := range topics {
		if !allowed[topic] {
			result.Denied = append(result.Denied, topic)
			continue
		}
		if _, already := s.topics[topic]; !already {
			m.getOrCreateChannelLocked(topic).register(s)
			s.topics[topic] = struct{}{}
		}
		result.Subscribed = append(result.Subscribed, topic)
	}
	return result, nil
}

// Unsubscribe removes the session from the named channels, deleting any
// channel that empties out. An unknown session id succeeds with an empty
// list, deliberately asymmetric with Subscribe.
func (m *Manager) Unsubscribe(sessionID string, topics []string) *UnsubscribeResult {
	result := &UnsubscribeResult{
		Success:      true,
		Unsubscribed: []string{},
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return result
	}

	for _, topic := range topics {
		if _, subscribed := s.topics[topic]; !subscribed {
			continue
		}
		delete(s.topics, topic)
		m.leaveChannelLocked(sessionID, topic)
		result.Unsubscribed = append(result.Unsubscribed, topic)
	}
	return result
}

// Broadcast pushes an event to every member of the topic channel. A missing
// channel is a silent no-op. Push failures are isolated per recipient: the
// failed session is removed, delivery to the rest continues.
func (m *Manager) Broadcast(topic string, eventType EventType, payload map[string]any) {
	message, err := Encode(eventType, payload)
	if err != nil {
		log.Printf("broadcast encode error: %v", err)
		return
	}

	m.mu.RLock()
	ch, ok := m.channels[topic]
	if !ok {
		m.mu.RUnlock()
		return
	}
	members := ch.snapshot()
	m.mu.RUnlock()

	for _, s := range members {
		if !s.push(message) {
			m.RemoveSession(s.ID)
		}
	}
}

// SessionCount returns the number of registered sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ChannelCount returns the number of channels, the global one included.
func (m *Manager) ChannelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}

// HasChannel reports whether a channel currently exists.
func (m *Manager) HasChannel(topic string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[topic]
	return ok
}

// ChannelMemberCount returns the member count of a channel, or 0 when the
// channel does not exist.
func (m *Manager) ChannelMemberCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[topic]
	if !ok {
		return 0
	}
	return ch.MemberCount()
}

// IsSubscribed reports whether the session is a member of the topic channel.
func (m *Manager) IsSubscribed(sessionID, topic string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[topic]
	if !ok {
		return false
	}
	return ch.has(sessionID)
}

// SetState merges a partial update into the process state and returns the
// resulting state.
func (m *Manager) SetState(patch StatePatch) ProcessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.apply(patch)
	return m.state
}

// UpdateState merges the partial update and pushes the resulting state to
// every connected session individually.
func (m *Manager) UpdateState(patch StatePatch) ProcessState {
	state := m.SetState(patch)

	message, err := Encode(EventStatusUpdate, map[string]any{
		"status":    state.Status,
		"message":   state.Message,
		"startTime": state.StartTime,
	})
	if err != nil {
		log.Printf("status encode error: %v", err)
		return state
	}

	for _, s := range m.sessionSnapshot() {
		if !s.push(message) {
			m.RemoveSession(s.ID)
		}
	}
	return state
}

// State returns a copy of the current process state.
func (m *Manager) State() ProcessState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) sessionSnapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// --- timers ---------------------------------------------------------------

// startTimersLocked starts the heartbeat/metrics/sweep loop. Idempotent;
// caller holds the write lock.
func (m *Manager) startTimersLocked() {
	if m.timersRunning {
		return
	}
	m.timersRunning = true
	m.stopTimers = make(chan struct{})
	go m.runTimers(m.stopTimers)
}

// stopTimersLocked stops the loop. Idempotent; caller holds the write lock.
func (m *Manager) stopTimersLocked() {
	if !m.timersRunning {
		return
	}
	m.timersRunning = false
	close(m.stopTimers)
}

func (m *Manager) runTimers(stop <-chan struct{}) {
	heartbeat := m.opts.Scheduler.NewTicker(m.opts.HeartbeatInterval)
	metricsTicker := m.opts.Scheduler.NewTicker(m.opts.MetricsInterval)
	// Sweeping at the heartbeat cadence bounds how long a stale session
	// can linger past the threshold.
	sweep := m.opts.Scheduler.NewTicker(m.opts.HeartbeatInterval)
	defer heartbeat.Stop()
	defer metricsTicker.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-stop:
			return
		case <-heartbeat.C():
			m.heartbeatTick()
		case <-metricsTicker.C():
			m.metricsTick(context.Background())
		case <-sweep.C():
			m.staleSweep()
		}
	}
}

// heartbeatTick broadcasts a heartbeat over the global channel. Sessions
// whose push succeeds get their last-heartbeat refreshed; sessions whose
// push fails are treated as dead and removed with full cascade.
func (m *Manager) heartbeatTick() {
	message, err := Encode(EventHeartbeat, nil)
	if err != nil {
		log.Printf("heartbeat encode error: %v", err)
		return
	}

	m.mu.RLock()
	members := m.channels[GlobalChannel].snapshot()
	m.mu.RUnlock()

	ts := now()
	for _, s := range members {
		if s.push(message) {
			m.mu.Lock()
			if current, ok := m.sessions[s.ID]; ok {
				current.lastHeartbeat = ts
			}
			m.mu.Unlock()
		} else {
			m.RemoveSession(s.ID)
		}
	}
}

// staleSweep removes sessions whose last acknowledged heartbeat is older
// than the threshold, even absent a push failure.
func (m *Manager) staleSweep() {
	cutoff := now().Add(-m.opts.StaleThreshold)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.lastHeartbeat.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		log.Printf("removing stale session %s", id)
		m.RemoveSession(id)
	}
}

// metricsTick fetches a metrics snapshot and pushes a per-session filtered
// view to each live session. A failed fetch is logged and the cycle is
// skipped; it never stops the timer or removes a session.
func (m *Manager) metricsTick(ctx context.Context) {
	snap, err := m.metrics.GetAllMetrics(ctx)
	if err != nil {
		log.Printf("metrics fetch failed, skipping cycle: %v", err)
		return
	}

	for _, s := range m.sessionSnapshot() {
		m.mu.RLock()
		userID, role := s.UserID, s.role
		m.mu.RUnlock()

		view, err := m.filterSnapshot(ctx, snap, userID, role)
		if err != nil {
			log.Printf("metrics filter failed for user %s: %v", userID, err)
			continue
		}

		message, err := Encode(EventMetricsUpdate, map[string]any{
			"system":    view.System,
			"processes": view.Processes,
		})
		if err != nil {
			log.Printf("metrics encode error for user %s: %v", userID, err)
			continue
		}
		if !s.push(message) {
			m.RemoveSession(s.ID)
		}
	}
}

// filterSnapshot computes the per-recipient metrics view: admins see the
// full process breakdown, members only processes of teams they can access
// (uncategorized included).
func (m *Manager) filterSnapshot(ctx context.Context, snap *metrics.Snapshot, userID string, role models.Role) (*metrics.Snapshot, error) {
	if role == models.RoleAdmin {
		return snap, nil
	}

	teams, err := m.gate.AccessibleTeams(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &metrics.Snapshot{System: snap.System, Processes: []metrics.ProcessMetrics{}}
	for _, p := range snap.Processes {
		if p.TeamID == models.TeamUncategorized {
			view.Processes = append(view.Processes, p)
			continue
		}
		if _, ok := teams[p.TeamID]; ok {
			view.Processes = append(view.Processes, p)
		}
	}
	return view, nil
}
