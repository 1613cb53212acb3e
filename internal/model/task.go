package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TaskStatusBacklog    = "backlog"
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusBacklog, TaskStatusTodo, TaskStatusInProgress,
		TaskStatusReview, TaskStatusDone, TaskStatusCancelled:
		return true
	}
	return false
}

func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	return string(b), err
}

func (t *Tags) Scan(value interface{}) error {
	if value == nil {
		*t = Tags{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported tags type %T", value)
	}
	return json.Unmarshal(bytes, t)
}

// Task belongs to exactly one project and one group and always has at
// least one assignee; a task whose assignee set empties is deleted.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(128);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(16);not null;default:backlog;index:idx_task_status" json:"status"`
	Priority    string     `gorm:"type:varchar(8);not null;default:medium" json:"priority"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	Tags        Tags       `gorm:"type:json" json:"tags"`
	ProjectID   uint       `gorm:"not null;index:idx_task_project" json:"project_id"`
	GroupID     uint       `gorm:"not null;index:idx_task_group" json:"group_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Project     *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Group       *Group           `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	History     []TaskHistory    `gorm:"foreignKey:TaskID" json:"history,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// TaskAssignment links a task to a responsible user.
type TaskAssignment struct {
	TaskID     uint      `gorm:"primaryKey" json:"task_id"`
	UserID     uint      `gorm:"primaryKey;index:idx_assignment_user" json:"user_id"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (TaskAssignment) TableName() string { return "task_assignments" }
