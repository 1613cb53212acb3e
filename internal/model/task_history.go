package model

import "time"

const (
	HistoryStatusChanged   = "status_changed"
	HistoryPriorityChanged = "priority_changed"
)

// TaskHistory is an append-only audit entry; rows are purged together
// with their task.
type TaskHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index:idx_history_task" json:"task_id"`
	UserID    uint      `gorm:"not null;index:idx_history_user" json:"user_id"`
	Action    string    `gorm:"type:varchar(32);not null" json:"action"`
	OldValue  string    `gorm:"type:varchar(64)" json:"old_value"`
	NewValue  string    `gorm:"type:varchar(64)" json:"new_value"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"index:idx_history_created_at" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (TaskHistory) TableName() string { return "task_histories" }
