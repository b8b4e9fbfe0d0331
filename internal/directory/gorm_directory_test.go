package directory

import (
	"context"
	"testing"

	"analysis-console-api/internal/models"
	"analysis-console-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestGetUserTeamIDs_ManageImpliesView(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	d := NewGormDirectory(db)

	require.NoError(t, db.Create(&models.TeamMember{TeamID: "t-1", UserID: "u-1", Permission: models.PermissionView}).Error)
	require.NoError(t, db.Create(&models.TeamMember{TeamID: "t-2", UserID: "u-1", Permission: models.PermissionManage}).Error)
	require.NoError(t, db.Create(&models.TeamMember{TeamID: "t-3", UserID: "u-2", Permission: models.PermissionView}).Error)

	teams, err := d.GetUserTeamIDs(context.Background(), "u-1", models.PermissionView)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	require.Contains(t, teams, "t-1")
	require.Contains(t, teams, "t-2")

	manage, err := d.GetUserTeamIDs(context.Background(), "u-1", models.PermissionManage)
	require.NoError(t, err)
	require.Len(t, manage, 1)
	require.Contains(t, manage, "t-2")
}

func TestGetUsersWithTeamAccess(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	d := NewGormDirectory(db)

	require.NoError(t, db.Create(&models.TeamMember{TeamID: "t-1", UserID: "u-1", Permission: models.PermissionView}).Error)
	require.NoError(t, db.Create(&models.TeamMember{TeamID: "t-1", UserID: "u-2", Permission: models.PermissionManage}).Error)

	users, err := d.GetUsersWithTeamAccess(context.Background(), "t-1", models.PermissionView)
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestGetAnalysisByID_Missing(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	d := NewGormDirectory(db)

	analysis, err := d.GetAnalysisByID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, analysis)
}

func TestGetConfig_BuildsTree(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	d := NewGormDirectory(db)

	require.NoError(t, db.Create(&models.Team{ID: "root", Name: "Engineering"}).Error)
	require.NoError(t, db.Create(&models.Team{ID: "child", Name: "Platform", ParentID: "root"}).Error)

	cfg, err := d.GetConfig(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.TeamStructure, 1)
	require.Equal(t, "root", cfg.TeamStructure[0].ID)
	require.Len(t, cfg.TeamStructure[0].Children, 1)
	require.Equal(t, "child", cfg.TeamStructure[0].Children[0].ID)
}

func TestGetUserByID_MissingIsNilNil(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	d := NewGormDirectory(db)

	user, err := d.GetUserByID(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, user)
}
