package notify

// TaskAssignedEvent is sent when users are assigned to a task, including
// at creation.
type TaskAssignedEvent struct {
	TaskID      uint   `json:"task_id"`
	Title       string `json:"title"`
	GroupID     uint   `json:"group_id"`
	ActorID     uint   `json:"actor_id"`
	AssigneeIDs []uint `json:"assignee_ids"`
}

// TaskStatusChangedEvent is sent when a task moves between status columns.
type TaskStatusChangedEvent struct {
	TaskID    uint   `json:"task_id"`
	Title     string `json:"title"`
	GroupID   uint   `json:"group_id"`
	ActorID   uint   `json:"actor_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// MembersAddedEvent is sent when users join a group.
type MembersAddedEvent struct {
	GroupID uint   `json:"group_id"`
	ActorID uint   `json:"actor_id"`
	UserIDs []uint `json:"user_ids"`
}
