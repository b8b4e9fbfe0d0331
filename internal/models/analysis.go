package models

import (
	"gorm.io/gorm"
)

// TeamUncategorized is the sentinel team for analyses without an owning team.
// Every user may subscribe to uncategorized analyses.
const TeamUncategorized = "uncategorized"

// Permission represents the kind of team access being checked
type Permission string

const (
	PermissionView   Permission = "view"
	PermissionManage Permission = "manage"
)

// AnalysisStatus represents the run state of an analysis
type AnalysisStatus string

const (
	AnalysisIdle    AnalysisStatus = "idle"
	AnalysisRunning AnalysisStatus = "running"
	AnalysisFailed  AnalysisStatus = "failed"
)

// Analysis represents a registered analysis script whose live output can be
// subscribed to. An empty TeamID means the analysis is uncategorized.
type Analysis struct {
	ID     string         `json:"id" gorm:"primaryKey"`
	Name   string         `json:"name" gorm:"not null"`
	TeamID string         `json:"teamId" gorm:"column:team_id;index"`
	Status AnalysisStatus `json:"status" gorm:"default:'idle'"`
	gorm.Model
}

// TableName specifies the table name for Analysis Model
func (Analysis) TableName() string {
	return "analyses"
}

// OwningTeam returns the team id, mapping an empty value to the
// uncategorized sentinel.
func (a *Analysis) OwningTeam() string {
	if a.TeamID == "" {
		return TeamUncategorized
	}
	return a.TeamID
}

// Team represents a team grouping analyses and users. ParentID links teams
// into the folder structure shown in the UI.
type Team struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null"`
	ParentID string `json:"parentId" gorm:"column:parent_id"`
	gorm.Model
}

// TableName specifies the table name for Team Model
func (Team) TableName() string {
	return "teams"
}

// TeamMember links a user to a team with a permission level
type TeamMember struct {
	ID         uint       `json:"-" gorm:"primaryKey;autoIncrement"`
	TeamID     string     `json:"teamId" gorm:"column:team_id;index;not null"`
	UserID     string     `json:"userId" gorm:"column:user_id;index;not null"`
	Permission Permission `json:"permission" gorm:"not null;default:'view'"`
	gorm.Model
}

// TableName specifies the table name for TeamMember Model
func (TeamMember) TableName() string {
	return "team_members"
}
