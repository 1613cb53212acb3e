package model

import "time"

const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(128);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Status      string     `gorm:"type:varchar(16);default:active;index:idx_project_status" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Groups []Group `gorm:"many2many:project_groups;joinForeignKey:ProjectID;joinReferences:GroupID" json:"groups,omitempty"`
	Tasks  []Task  `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}

func (Project) TableName() string { return "projects" }

type ProjectBrief struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func (p *Project) Brief() ProjectBrief {
	return ProjectBrief{
		ID:     p.ID,
		Title:  p.Title,
		Status: p.Status,
	}
}

// ProjectGroup links a project to an owning group. A project with zero
// remaining links does not exist.
type ProjectGroup struct {
	ProjectID uint `gorm:"primaryKey" json:"project_id"`
	GroupID   uint `gorm:"primaryKey;index:idx_project_group_group" json:"group_id"`
}

func (ProjectGroup) TableName() string { return "project_groups" }
