package handler

import (
	"context"
	"log"

	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/Babadzakkkich/project-manager/internal/notify"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupService      *service.GroupService
	membershipService *service.MembershipService
	notifier          notify.Notifier
}

func NewGroupHandler(groupService *service.GroupService, membershipService *service.MembershipService, notifier notify.Notifier) *GroupHandler {
	return &GroupHandler{
		groupService:      groupService,
		membershipService: membershipService,
		notifier:          notifier,
	}
}

// GET /groups
func (h *GroupHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)

	groups, total, err := h.groupService.List(page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(groups))
	for _, g := range groups {
		list = append(list, gin.H{
			"id":          g.ID,
			"name":        g.Name,
			"description": g.Description,
			"created_at":  g.CreatedAt,
		})
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /groups/:id
func (h *GroupHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))

	group, members, projects, tasks, err := h.groupService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}

	projectList := make([]model.ProjectBrief, 0, len(projects))
	for i := range projects {
		projectList = append(projectList, projects[i].Brief())
	}

	Success(c, gin.H{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"created_at":  group.CreatedAt,
		"members":     members,
		"projects":    projectList,
		"tasks":       tasks,
	})
}

// GET /groups/:id/my-role
func (h *GroupHandler) GetMyRole(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	role, ok, err := h.membershipService.RoleOf(nil, userID, id)
	if err != nil {
		Fail(c, err)
		return
	}
	if !ok {
		Error(c, 403, 40302, "user is not a member of the group")
		return
	}
	Success(c, gin.H{"role": role})
}

// POST /groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=128"`
		Description string `json:"description" binding:"max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	group, err := h.groupService.Create(userID, req.Name, req.Description)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"created_at":  group.CreatedAt,
	})
}

// PUT /groups/:id
func (h *GroupHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=128"`
		Description *string `json:"description" binding:"omitempty,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	group, err := h.groupService.Update(userID, id, req.Name, req.Description)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"updated_at":  group.UpdatedAt,
	})
}

// POST /groups/:id/members
func (h *GroupHandler) AddMembers(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Users []service.MemberInput `json:"users" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	added, skipped, err := h.groupService.AddMembers(userID, id, req.Users)
	if err != nil {
		Fail(c, err)
		return
	}

	if h.notifier != nil && len(added) > 0 {
		ids := make([]uint, 0, len(added))
		for _, m := range added {
			ids = append(ids, m.ID)
		}
		e := notify.MembersAddedEvent{GroupID: id, ActorID: userID, UserIDs: ids}
		if err := h.notifier.NotifyMembersAdded(context.Background(), e); err != nil {
			log.Printf("notify members added: %v", err)
		}
	}

	Success(c, gin.H{"added": added, "skipped": skipped})
}

// PUT /groups/:id/members/:user_id/role
func (h *GroupHandler) ChangeMemberRole(c *gin.Context) {
	groupID := parseID(c.Param("id"))
	memberID := parseID(c.Param("user_id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Role string `json:"role" binding:"required,oneof=super_admin admin member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	if err := h.groupService.ChangeMemberRole(userID, groupID, memberID, req.Role); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"group_id": groupID, "user_id": memberID, "role": req.Role})
}

// DELETE /groups/:id/members
//
// Removing the last member deletes the group itself; the response carries
// the cascade result so the caller can tell.
func (h *GroupHandler) RemoveMembers(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	result, err := h.groupService.RemoveMembers(userID, id, req.UserIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"group_deleted": result.GroupDeleted(id),
		"cascade":       result,
	})
}

// DELETE /groups/:id
func (h *GroupHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	result, err := h.groupService.Delete(userID, id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"deleted": true,
		"cascade": result,
	})
}
