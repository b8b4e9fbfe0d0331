package directory

import (
	"context"
	"errors"

	"analysis-console-api/internal/models"

	"gorm.io/gorm"
)

// GormDirectory implements every collaborator interface on top of the
// relational store.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) GetUserTeamIDs(ctx context.Context, userID string, permission models.Permission) (map[string]struct{}, error) {
	var memberships []models.TeamMember
	query := d.db.WithContext(ctx).Where("user_id = ?", userID)
	// Manage access implies view access
	if permission == models.PermissionView {
		query = query.Where("permission IN ?", []models.Permission{models.PermissionView, models.PermissionManage})
	} else {
		query = query.Where("permission = ?", permission)
	}
	if err := query.Find(&memberships).Error; err != nil {
		return nil, err
	}

	teamIDs := make(map[string]struct{}, len(memberships))
	for _, m := range memberships {
		teamIDs[m.TeamID] = struct{}{}
	}
	return teamIDs, nil
}

func (d *GormDirectory) GetUsersWithTeamAccess(ctx context.Context, teamID string, permission models.Permission) (map[string]struct{}, error) {
	var memberships []models.TeamMember
	query := d.db.WithContext(ctx).Where("team_id = ?", teamID)
	if permission == models.PermissionView {
		query = query.Where("permission IN ?", []models.Permission{models.PermissionView, models.PermissionManage})
	} else {
		query = query.Where("permission = ?", permission)
	}
	if err := query.Find(&memberships).Error; err != nil {
		return nil, err
	}

	userIDs := make(map[string]struct{}, len(memberships))
	for _, m := range memberships {
		userIDs[m.UserID] = struct{}{}
	}
	return userIDs, nil
}

func (d *GormDirectory) GetAllAnalyses(ctx context.Context) (map[string]models.Analysis, error) {
	var analyses []models.Analysis
	if err := d.db.WithContext(ctx).Find(&analyses).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.Analysis, len(analyses))
	for _, a := range analyses {
		byID[a.ID] = a
	}
	return byID, nil
}

func (d *GormDirectory) GetAnalysisByID(ctx context.Context, id string) (*models.Analysis, error) {
	var analysis models.Analysis
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

func (d *GormDirectory) GetAllTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := d.db.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// GetConfig builds the team tree from the parent links.
func (d *GormDirectory) GetConfig(ctx context.Context) (*TeamConfig, error) {
	teams, err := d.GetAllTeams(ctx)
	if err != nil {
		return nil, err
	}

	childrenOf := make(map[string][]models.Team)
	for _, t := range teams {
		childrenOf[t.ParentID] = append(childrenOf[t.ParentID], t)
	}

	var build func(parentID string) []TeamNode
	build = func(parentID string) []TeamNode {
		var nodes []TeamNode
		for _, t := range childrenOf[parentID] {
			nodes = append(nodes, TeamNode{
				ID:       t.ID,
				Name:     t.Name,
				Children: build(t.ID),
			})
		}
		return nodes
	}

	return &TeamConfig{TeamStructure: build("")}, nil
}

func (d *GormDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
