package realtime

import (
	"context"
	"log"
	"time"

	"analysis-console-api/internal/cache"
	"analysis-console-api/internal/directory"
	"analysis-console-api/internal/models"
)

// teamCacheTTL bounds how long a stale team set can keep granting or
// withholding access after a membership change.
const teamCacheTTL = 30 * time.Second

// Gate decides, per (user, topic), whether a subscription is allowed.
type Gate struct {
	authz    directory.AuthorizationProvider
	analyses directory.AnalysisDirectory

	teamCache *cache.SimpleCache[string, map[string]struct{}]
}

func NewGate(authz directory.AuthorizationProvider, analyses directory.AnalysisDirectory) *Gate {
	return &Gate{
		authz:     authz,
		analyses:  analyses,
		teamCache: cache.NewSimpleCache[string, map[string]struct{}](cache.Options{ConcurrencySafe: true}),
	}
}

// AccessibleTeams returns the set of team ids the user may view, cached for
// a short TTL.
func (g *Gate) AccessibleTeams(ctx context.Context, userID string) (map[string]struct{}, error) {
	if teams, ok := g.teamCache.Get(userID); ok {
		return teams, nil
	}
	teams, err := g.authz.GetUserTeamIDs(ctx, userID, models.PermissionView)
	if err != nil {
		return nil, err
	}
	g.teamCache.Set(userID, teams, teamCacheTTL)
	return teams, nil
}

// Invalidate drops the cached team set for a user, forcing the next check
// to hit the authorization provider. Called when a user is refreshed.
func (g *Gate) Invalidate(userID string) {
	g.teamCache.Delete(userID)
}

// IsAuthorized reports whether the user may subscribe to the topic. Admins
// are unconditionally authorized; otherwise the topic's owning team must be
// in the user's permitted team set, or be the uncategorized sentinel.
// Upstream failures deny rather than propagate.
func (g *Gate) IsAuthorized(ctx context.Context, userID string, role models.Role, topic string) bool {
	if role == models.RoleAdmin {
		return true
	}

	analysis, err := g.analyses.GetAnalysisByID(ctx, topic)
	if err != nil {
		log.Printf("permission check: analysis lookup failed for %q: %v", topic, err)
		return false
	}
	if analysis == nil {
		return false
	}

	team := analysis.OwningTeam()
	if team == models.TeamUncategorized {
		return true
	}

	teams, err := g.AccessibleTeams(ctx, userID)
	if err != nil {
		log.Printf("permission check: team lookup failed for user %q: %v", userID, err)
		return false
	}
	_, ok := teams[team]
	return ok
}
