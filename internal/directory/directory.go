// Package directory exposes the external collaborators the realtime engine
// consults: team-based authorization, the analysis and team catalogs, and
// fresh user lookups. The engine depends only on these interfaces.
package directory

import (
	"context"

	"analysis-console-api/internal/models"
)

// AuthorizationProvider resolves team-level access for users.
type AuthorizationProvider interface {
	// GetUserTeamIDs returns the set of team ids the user can access with
	// the given permission.
	GetUserTeamIDs(ctx context.Context, userID string, permission models.Permission) (map[string]struct{}, error)

	// GetUsersWithTeamAccess returns the set of user ids that can access
	// the team with the given permission.
	GetUsersWithTeamAccess(ctx context.Context, teamID string, permission models.Permission) (map[string]struct{}, error)
}

// AnalysisDirectory lists registered analyses and resolves single entries.
type AnalysisDirectory interface {
	// GetAllAnalyses returns every analysis keyed by id.
	GetAllAnalyses(ctx context.Context) (map[string]models.Analysis, error)

	// GetAnalysisByID returns the analysis, or nil when it does not exist.
	GetAnalysisByID(ctx context.Context, id string) (*models.Analysis, error)
}

// TeamConfig is the team tree pushed in init payloads.
type TeamConfig struct {
	TeamStructure []TeamNode `json:"teamStructure"`
}

// TeamNode is one node of the team folder structure.
type TeamNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []TeamNode `json:"children,omitempty"`
}

// TeamDirectory lists teams and the configured folder structure.
type TeamDirectory interface {
	GetAllTeams(ctx context.Context) ([]models.Team, error)
	GetConfig(ctx context.Context) (*TeamConfig, error)
}

// UserStore fetches fresh user records. Roles cached elsewhere (JWT claims,
// session snapshots) go stale; this is the source of truth.
type UserStore interface {
	// GetUserByID returns the user, or (nil, nil) when no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
