package model

import "time"

type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(128);uniqueIndex:uk_group_name;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Memberships []GroupMembership `gorm:"foreignKey:GroupID" json:"memberships,omitempty"`
	Tasks       []Task            `gorm:"foreignKey:GroupID" json:"tasks,omitempty"`
}

func (Group) TableName() string { return "groups" }

type GroupBrief struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (g *Group) Brief() GroupBrief {
	return GroupBrief{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
	}
}

// GroupWithRole is the read view of a group from one user's perspective.
type GroupWithRole struct {
	GroupBrief
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
