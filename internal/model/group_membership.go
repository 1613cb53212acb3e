package model

import "time"

// Group-scoped roles. There is no separate global role: "global" permission
// checks mean super_admin in at least one group (see service.MembershipService).
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleMember     = "member"
)

func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// GroupMembership is the sole source of truth for "is user X in group Y"
// and "what is X's role in Y".
type GroupMembership struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"not null;uniqueIndex:uk_group_user" json:"group_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:uk_group_user;index:idx_membership_user" json:"user_id"`
	Role     string    `gorm:"type:varchar(16);not null;default:member" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

func (GroupMembership) TableName() string { return "group_memberships" }
