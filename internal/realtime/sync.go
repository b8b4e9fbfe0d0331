package realtime

import (
	"context"
	"log"
	"sort"

	"analysis-console-api/internal/directory"
	"analysis-console-api/internal/models"
)

// SyncSession re-resolves the session owner's identity from the user store
// and pushes a consistent snapshot of everything they can access. The role
// cached on the session at handshake time is never trusted here, since it
// may have changed. If the user no longer exists the operation aborts
// silently. eventType distinguishes the connect-time snapshot (init) from
// an explicit re-sync (refresh).
func (m *Manager) SyncSession(ctx context.Context, sessionID string, eventType EventType) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.RUnlock()
		return
	}
	userID := s.UserID
	m.mu.RUnlock()

	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("init sync: user lookup failed for %s: %v", userID, err)
		return
	}
	if user == nil {
		// User was deleted mid-session; no payload, no error.
		return
	}

	payload, err := m.buildInitPayload(ctx, user)
	if err != nil {
		log.Printf("init sync: payload build failed for %s: %v", userID, err)
		return
	}

	message, err := Encode(eventType, payload)
	if err != nil {
		log.Printf("init sync: encode error: %v", err)
		return
	}

	// Re-validate after the collaborator calls: the session may have
	// disconnected while we were fetching.
	m.mu.Lock()
	s, ok = m.sessions[sessionID]
	if !ok || !s.alive {
		m.mu.Unlock()
		return
	}
	s.role = user.Role
	m.mu.Unlock()

	if !s.push(message) {
		m.RemoveSession(sessionID)
	}
}

// RefreshUser re-syncs every session owned by the user, dropping any cached
// authorization state first so new role/team access takes effect without
// reconnection.
func (m *Manager) RefreshUser(ctx context.Context, userID string) {
	m.gate.Invalidate(userID)

	m.mu.RLock()
	var ids []string
	for id, s := range m.sessions {
		if s.UserID == userID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.SyncSession(ctx, id, EventRefresh)
	}
}

// buildInitPayload assembles the snapshot: identity plus the analyses,
// teams and team structure visible to the user. Admins get everything;
// members get the gate-filtered view.
func (m *Manager) buildInitPayload(ctx context.Context, user *models.User) (map[string]any, error) {
	analyses, err := m.catalog.GetAllAnalyses(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := m.teams.GetAllTeams(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := m.teams.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	identity := map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
		"email":    user.Email,
		"name":     user.Name,
	}

	if user.IsAdmin() {
		return map[string]any{
			"user":          identity,
			"analyses":      analysisList(analyses),
			"teams":         teams,
			"teamStructure": cfg.TeamStructure,
		}, nil
	}

	accessible, err := m.gate.AccessibleTeams(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	visibleAnalyses := make([]models.Analysis, 0)
	for _, a := range analyses {
		team := a.OwningTeam()
		if team == models.TeamUncategorized {
			visibleAnalyses = append(visibleAnalyses, a)
			continue
		}
		if _, ok := accessible[team]; ok {
			visibleAnalyses = append(visibleAnalyses, a)
		}
	}
	sort.Slice(visibleAnalyses, func(i, j int) bool { return visibleAnalyses[i].ID < visibleAnalyses[j].ID })

	visibleTeams := make([]models.Team, 0)
	for _, t := range teams {
		if _, ok := accessible[t.ID]; ok {
			visibleTeams = append(visibleTeams, t)
		}
	}

	return map[string]any{
		"user":          identity,
		"analyses":      visibleAnalyses,
		"teams":         visibleTeams,
		"teamStructure": filterTree(cfg.TeamStructure, accessible),
	}, nil
}

func analysisList(byID map[string]models.Analysis) []models.Analysis {
	out := make([]models.Analysis, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// filterTree keeps a node when its team is accessible or any descendant is,
// so accessible leaves stay reachable through their folders.
func filterTree(nodes []directory.TeamNode, accessible map[string]struct{}) []directory.TeamNode {
	out := make([]directory.TeamNode, 0)
	for _, n := range nodes {
		children := filterTree(n.Children, accessible)
		_, ok := accessible[n.ID]
		if !ok && len(children) == 0 {
			continue
		}
		out = append(out, directory.TeamNode{
			ID:       n.ID,
			Name:     n.Name,
			Children: children,
		})
	}
	return out
}
