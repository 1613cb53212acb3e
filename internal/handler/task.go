package handler

import (
	"strconv"
	"time"

	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService       *service.TaskService
	membershipService *service.MembershipService
}

func NewTaskHandler(taskService *service.TaskService, membershipService *service.MembershipService) *TaskHandler {
	return &TaskHandler{taskService: taskService, membershipService: membershipService}
}

func taskPayload(t *model.Task) gin.H {
	assignees := make([]gin.H, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		item := gin.H{"user_id": a.UserID, "assigned_at": a.AssignedAt}
		if a.User != nil {
			item["login"] = a.User.Login
			item["name"] = a.User.Name
		}
		assignees = append(assignees, item)
	}
	return gin.H{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
		"position":    t.Position,
		"start_date":  t.StartDate,
		"due_date":    t.DueDate,
		"tags":        t.Tags,
		"project_id":  t.ProjectID,
		"group_id":    t.GroupID,
		"assignees":   assignees,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
}

func queryUint(c *gin.Context, name string) *uint {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	u := uint(v)
	return &u
}

// GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)
	userID := middleware.GetCurrentUserID(c)

	filter := service.TaskFilter{
		ProjectID:  queryUint(c, "project_id"),
		GroupID:    queryUint(c, "group_id"),
		AssigneeID: queryUint(c, "assignee_id"),
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
	}

	tasks, total, err := h.taskService.List(userID, filter, page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}
	list := make([]gin.H, 0, len(tasks))
	for i := range tasks {
		list = append(list, taskPayload(&tasks[i]))
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /tasks/:id
func (h *TaskHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	task, err := h.taskService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}
	member, err := h.membershipService.IsMember(nil, userID, task.GroupID)
	if err != nil {
		Fail(c, err)
		return
	}
	if !member {
		Error(c, 403, 40302, "user is not a member of the task's group")
		return
	}

	payload := taskPayload(task)
	if task.Project != nil {
		payload["project"] = gin.H{"id": task.Project.ID, "title": task.Project.Title}
	}
	if task.Group != nil {
		payload["group"] = gin.H{"id": task.Group.ID, "name": task.Group.Name}
	}
	Success(c, payload)
}

// GET /tasks/:id/history
func (h *TaskHandler) History(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	entries, err := h.taskService.History(userID, id)
	if err != nil {
		Fail(c, err)
		return
	}
	list := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		list = append(list, gin.H{
			"id":         e.ID,
			"task_id":    e.TaskID,
			"user_id":    e.UserID,
			"action":     e.Action,
			"old_value":  e.OldValue,
			"new_value":  e.NewValue,
			"detail":     e.Detail,
			"created_at": e.CreatedAt,
		})
	}
	Success(c, list)
}

// POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req struct {
		Title       string     `json:"title" binding:"required,max=128"`
		Description string     `json:"description" binding:"max=5000"`
		Status      string     `json:"status" binding:"omitempty,oneof=backlog todo in_progress review done cancelled"`
		Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
		Position    int        `json:"position"`
		StartDate   *time.Time `json:"start_date"`
		DueDate     *time.Time `json:"due_date"`
		Tags        []string   `json:"tags"`
		ProjectID   uint       `json:"project_id" binding:"required"`
		GroupID     uint       `json:"group_id" binding:"required"`
		AssigneeIDs []uint     `json:"assignee_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	task, err := h.taskService.Create(userID, service.TaskCreate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Position:    req.Position,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		ProjectID:   req.ProjectID,
		GroupID:     req.GroupID,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, taskPayload(task))
}

// PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Title       *string     `json:"title" binding:"omitempty,max=128"`
		Description *string     `json:"description" binding:"omitempty,max=5000"`
		Status      *string     `json:"status" binding:"omitempty,oneof=backlog todo in_progress review done cancelled"`
		Priority    *string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
		Position    *int        `json:"position"`
		StartDate   *time.Time  `json:"start_date"`
		DueDate     *time.Time  `json:"due_date"`
		Tags        *model.Tags `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	task, err := h.taskService.Update(userID, id, service.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Position:    req.Position,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, taskPayload(task))
}

// POST /tasks/:id/assignees
func (h *TaskHandler) AddAssignees(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	task, err := h.taskService.AddAssignees(userID, id, req.UserIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, taskPayload(task))
}

// DELETE /tasks/:id/assignees
//
// Removing the last assignee deletes the task; the cascade result in the
// response says whether that happened.
func (h *TaskHandler) RemoveAssignees(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	result, err := h.taskService.RemoveAssignees(userID, id, req.UserIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"task_deleted": result.TaskDeleted(id),
		"cascade":      result,
	})
}

// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	result, err := h.taskService.Delete(userID, id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"deleted": true,
		"cascade": result,
	})
}
