package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/cascade"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/Babadzakkkich/project-manager/internal/notify"
	"github.com/Babadzakkkich/project-manager/internal/sse"
	"gorm.io/gorm"
)

type TaskService struct {
	db         *gorm.DB
	membership *MembershipService
	cascade    *cascade.Coordinator
	notifier   notify.Notifier
	hub        *sse.Hub
}

func NewTaskService(db *gorm.DB, membership *MembershipService, coordinator *cascade.Coordinator) *TaskService {
	return &TaskService{db: db, membership: membership, cascade: coordinator}
}

func (s *TaskService) SetNotifier(n notify.Notifier) { s.notifier = n }
func (s *TaskService) SetHub(h *sse.Hub)             { s.hub = h }

type TaskFilter struct {
	ProjectID  *uint
	GroupID    *uint
	AssigneeID *uint
	Status     string
	Priority   string
}

// List returns tasks of the caller's groups, narrowed by the filter.
func (s *TaskService) List(callerID uint, f TaskFilter, page, pageSize int) ([]model.Task, int64, error) {
	query := s.db.Model(&model.Task{}).
		Where("group_id IN (SELECT group_id FROM group_memberships WHERE user_id = ?)", callerID)
	if f.ProjectID != nil {
		query = query.Where("project_id = ?", *f.ProjectID)
	}
	if f.GroupID != nil {
		query = query.Where("group_id = ?", *f.GroupID)
	}
	if f.AssigneeID != nil {
		query = query.Where("id IN (SELECT task_id FROM task_assignments WHERE user_id = ?)", *f.AssigneeID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "count tasks")
	}

	var tasks []model.Task
	err := query.Preload("Assignments.User").
		Order("status, position, id").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list tasks")
	}
	return tasks, total, nil
}

func (s *TaskService) GetByID(id uint) (*model.Task, error) {
	var task model.Task
	err := s.db.Preload("Project").Preload("Group").
		Preload("Assignments.User").
		First(&task, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound(apperr.CodeTaskNotFound, "task not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load task")
	}
	return &task, nil
}

func (s *TaskService) History(callerID, taskID uint) ([]model.TaskHistory, error) {
	task, err := s.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	ok, err := s.membership.IsMember(nil, callerID, task.GroupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.PermissionDenied(apperr.CodeNotInGroup, "user is not a member of the task's group")
	}

	var history []model.TaskHistory
	err = s.db.Preload("User").Where("task_id = ?", taskID).Order("created_at desc, id desc").Find(&history).Error
	if err != nil {
		return nil, apperr.Wrap(err, "load history")
	}
	return history, nil
}

type TaskCreate struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Position    int
	StartDate   *time.Time
	DueDate     *time.Time
	Tags        model.Tags
	ProjectID   uint
	GroupID     uint
	AssigneeIDs []uint
}

// Create validates that the group is linked to the project and that every
// assignee is a member of the task's group. With no explicit assignees the
// creator is assigned, so the no-orphan-task invariant holds from birth.
func (s *TaskService) Create(callerID uint, in TaskCreate) (*model.Task, error) {
	var project model.Project
	err := s.db.First(&project, in.ProjectID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load project")
	}

	var linked int64
	err = s.db.Model(&model.ProjectGroup{}).
		Where("project_id = ? AND group_id = ?", in.ProjectID, in.GroupID).
		Count(&linked).Error
	if err != nil {
		return nil, apperr.Wrap(err, "check project group")
	}
	if linked == 0 {
		return nil, apperr.Invariant("group not in project")
	}

	ok, err := s.membership.IsMember(nil, callerID, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.PermissionDenied(apperr.CodeNotInGroup, "user is not a member of group %d", in.GroupID)
	}

	assigneeIDs := in.AssigneeIDs
	if len(assigneeIDs) == 0 {
		assigneeIDs = []uint{callerID}
	}
	for _, uid := range assigneeIDs {
		ok, err := s.membership.IsMember(nil, uid, in.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Invariant("user %d is not a member of group %d", uid, in.GroupID)
		}
	}

	status := in.Status
	if status == "" {
		status = model.TaskStatusBacklog
	}
	if !model.ValidTaskStatus(status) {
		return nil, apperr.Validation("unknown status %q", status)
	}
	priority := in.Priority
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if !model.ValidTaskPriority(priority) {
		return nil, apperr.Validation("unknown priority %q", priority)
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		Position:    in.Position,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		ProjectID:   in.ProjectID,
		GroupID:     in.GroupID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return apperr.Wrap(err, "create task")
		}
		for _, uid := range assigneeIDs {
			if err := tx.Create(&model.TaskAssignment{TaskID: task.ID, UserID: uid}).Error; err != nil {
				return apperr.Wrap(err, "assign user")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(task.GroupID, sse.EventTaskCreated, task.ID)
	s.notifyAssigned(callerID, task, assigneeIDs)
	return s.GetByID(task.ID)
}

type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Position    *int
	StartDate   *time.Time
	DueDate     *time.Time
	Tags        *model.Tags
}

// Update is allowed for any current assignee or a group admin. Status and
// priority transitions append history entries in the same transaction.
func (s *TaskService) Update(callerID, taskID uint, upd TaskUpdate) (*model.Task, error) {
	task, err := s.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssigneeOrAdmin(callerID, task); err != nil {
		return nil, err
	}

	if upd.Status != nil && !model.ValidTaskStatus(*upd.Status) {
		return nil, apperr.Validation("unknown status %q", *upd.Status)
	}
	if upd.Priority != nil && !model.ValidTaskPriority(*upd.Priority) {
		return nil, apperr.Validation("unknown priority %q", *upd.Priority)
	}

	updates := map[string]interface{}{}
	var history []model.TaskHistory
	if upd.Title != nil {
		updates["title"] = *upd.Title
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.Status != nil && *upd.Status != task.Status {
		updates["status"] = *upd.Status
		history = append(history, model.TaskHistory{
			TaskID:   taskID,
			UserID:   callerID,
			Action:   model.HistoryStatusChanged,
			OldValue: task.Status,
			NewValue: *upd.Status,
			Detail:   fmt.Sprintf("status %s -> %s", task.Status, *upd.Status),
		})
	}
	if upd.Priority != nil && *upd.Priority != task.Priority {
		updates["priority"] = *upd.Priority
		history = append(history, model.TaskHistory{
			TaskID:   taskID,
			UserID:   callerID,
			Action:   model.HistoryPriorityChanged,
			OldValue: task.Priority,
			NewValue: *upd.Priority,
			Detail:   fmt.Sprintf("priority %s -> %s", task.Priority, *upd.Priority),
		})
	}
	if upd.Position != nil {
		updates["position"] = *upd.Position
	}
	if upd.StartDate != nil {
		updates["start_date"] = *upd.StartDate
	}
	if upd.DueDate != nil {
		updates["due_date"] = *upd.DueDate
	}
	if upd.Tags != nil {
		updates["tags"] = *upd.Tags
	}

	if len(updates) > 0 {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.Task{}).Where("id = ?", taskID).Updates(updates).Error; err != nil {
				return apperr.Wrap(err, "update task")
			}
			for i := range history {
				if err := tx.Create(&history[i]).Error; err != nil {
					return apperr.Wrap(err, "append history")
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.broadcast(task.GroupID, sse.EventTaskUpdated, taskID)
	if upd.Status != nil && *upd.Status != task.Status {
		s.notifyStatusChanged(callerID, task, *upd.Status)
	}
	return s.GetByID(taskID)
}

// AddAssignees is allowed for a current assignee or a group admin; new
// assignees must be members of the task's group.
func (s *TaskService) AddAssignees(callerID, taskID uint, userIDs []uint) (*model.Task, error) {
	task, err := s.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssigneeOrAdmin(callerID, task); err != nil {
		return nil, err
	}
	for _, uid := range userIDs {
		ok, err := s.membership.IsMember(nil, uid, task.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Invariant("user %d is not a member of group %d", uid, task.GroupID)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, uid := range userIDs {
			var count int64
			if err := tx.Model(&model.TaskAssignment{}).
				Where("task_id = ? AND user_id = ?", taskID, uid).
				Count(&count).Error; err != nil {
				return apperr.Wrap(err, "check assignment")
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&model.TaskAssignment{TaskID: taskID, UserID: uid}).Error; err != nil {
				return apperr.Wrap(err, "assign user")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(task.GroupID, sse.EventTaskUpdated, taskID)
	s.notifyAssigned(callerID, task, userIDs)
	return s.GetByID(taskID)
}

// RemoveAssignees is admin-only. When the last assignee goes, the task is
// deleted together with its history and the result says so.
func (s *TaskService) RemoveAssignees(callerID, taskID uint, userIDs []uint) (*cascade.Result, error) {
	task, err := s.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.membership.RequireAdmin(nil, callerID, task.GroupID); err != nil {
		return nil, err
	}

	var result *cascade.Result
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var present int64
		if err := tx.Model(&model.TaskAssignment{}).
			Where("task_id = ? AND user_id IN ?", taskID, userIDs).
			Count(&present).Error; err != nil {
			return apperr.Wrap(err, "check assignments")
		}
		if present == 0 {
			return apperr.NotFound(apperr.CodeMemberNotFound, "none of the users are assigned to the task")
		}
		result, err = s.cascade.RemoveAssignees(tx, taskID, userIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.TaskDeleted(taskID) {
		s.broadcast(task.GroupID, sse.EventTaskDeleted, taskID)
	} else {
		s.broadcast(task.GroupID, sse.EventTaskUpdated, taskID)
	}
	return result, nil
}

// Delete is allowed for any current assignee or a group admin.
func (s *TaskService) Delete(callerID, taskID uint) (*cascade.Result, error) {
	task, err := s.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssigneeOrAdmin(callerID, task); err != nil {
		return nil, err
	}

	var result *cascade.Result
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
			return apperr.Wrap(err, "check task")
		}
		if count == 0 {
			return apperr.NotFound(apperr.CodeTaskNotFound, "task not found")
		}
		result, err = s.cascade.RemoveAssignees(tx, taskID, assigneeIDs(task))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(task.GroupID, sse.EventTaskDeleted, taskID)
	return result, nil
}

func (s *TaskService) requireAssigneeOrAdmin(callerID uint, task *model.Task) error {
	for _, a := range task.Assignments {
		if a.UserID == callerID {
			return nil
		}
	}
	return s.membership.RequireAdmin(nil, callerID, task.GroupID)
}

func assigneeIDs(task *model.Task) []uint {
	ids := make([]uint, 0, len(task.Assignments))
	for _, a := range task.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

// broadcast publishes a board event; failures only log.
func (s *TaskService) broadcast(groupID uint, eventType string, taskID uint) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(groupID, sse.Event{Type: eventType, Data: map[string]uint{"task_id": taskID}}); err != nil {
		log.Printf("broadcast %s: %v", eventType, err)
	}
}

func (s *TaskService) notifyAssigned(actorID uint, task *model.Task, assignees []uint) {
	if s.notifier == nil || len(assignees) == 0 {
		return
	}
	e := notify.TaskAssignedEvent{
		TaskID:      task.ID,
		Title:       task.Title,
		GroupID:     task.GroupID,
		ActorID:     actorID,
		AssigneeIDs: assignees,
	}
	if err := s.notifier.NotifyTaskAssigned(context.Background(), e); err != nil {
		log.Printf("notify task assigned: %v", err)
	}
}

func (s *TaskService) notifyStatusChanged(actorID uint, task *model.Task, newStatus string) {
	if s.notifier == nil {
		return
	}
	e := notify.TaskStatusChangedEvent{
		TaskID:    task.ID,
		Title:     task.Title,
		GroupID:   task.GroupID,
		ActorID:   actorID,
		OldStatus: task.Status,
		NewStatus: newStatus,
	}
	if err := s.notifier.NotifyTaskStatusChanged(context.Background(), e); err != nil {
		log.Printf("notify status changed: %v", err)
	}
}
