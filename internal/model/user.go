package model

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Login        string    `gorm:"type:varchar(64);uniqueIndex:uk_login;not null" json:"login"`
	Email        string    `gorm:"type:varchar(128);uniqueIndex:uk_email;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(128);not null" json:"-"`
	Name         string    `gorm:"type:varchar(64);not null" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Memberships []GroupMembership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	Assignments []TaskAssignment  `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string { return "users" }

type UserBrief struct {
	ID    uint   `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (u *User) Brief() UserBrief {
	return UserBrief{
		ID:    u.ID,
		Login: u.Login,
		Name:  u.Name,
		Email: u.Email,
	}
}

// UserWithRole is the read view of a user inside a group. The role comes
// from the membership row, never from the user itself.
type UserWithRole struct {
	UserBrief
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
