package handler

import (
	"time"

	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService *service.ProjectService
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)
	userID := middleware.GetCurrentUserID(c)
	status := c.Query("status")

	projects, total, err := h.projectService.List(userID, status, page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(projects))
	for _, p := range projects {
		groups := make([]gin.H, 0, len(p.Groups))
		for _, g := range p.Groups {
			groups = append(groups, gin.H{"id": g.ID, "name": g.Name})
		}
		list = append(list, gin.H{
			"id":          p.ID,
			"title":       p.Title,
			"description": p.Description,
			"status":      p.Status,
			"start_date":  p.StartDate,
			"end_date":    p.EndDate,
			"groups":      groups,
			"created_at":  p.CreatedAt,
			"updated_at":  p.UpdatedAt,
		})
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /projects/:id
func (h *ProjectHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	project, err := h.projectService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}
	visible, err := h.projectService.IsVisible(userID, project)
	if err != nil {
		Fail(c, err)
		return
	}
	if !visible {
		Error(c, 403, 40302, "user is not a member of any project group")
		return
	}

	groups := make([]gin.H, 0, len(project.Groups))
	for _, g := range project.Groups {
		groups = append(groups, gin.H{"id": g.ID, "name": g.Name, "description": g.Description})
	}

	Success(c, gin.H{
		"id":          project.ID,
		"title":       project.Title,
		"description": project.Description,
		"status":      project.Status,
		"start_date":  project.StartDate,
		"end_date":    project.EndDate,
		"groups":      groups,
		"tasks":       project.Tasks,
		"created_at":  project.CreatedAt,
		"updated_at":  project.UpdatedAt,
	})
}

// POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Title       string     `json:"title" binding:"required,max=128"`
		Description string     `json:"description" binding:"max=5000"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		Status      string     `json:"status" binding:"omitempty,oneof=active on_hold completed archived"`
		GroupIDs    []uint     `json:"group_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	project, err := h.projectService.Create(userID, service.ProjectCreate{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
		GroupIDs:    req.GroupIDs,
	})
	if err != nil {
		Fail(c, err)
		return
	}

	groups := make([]gin.H, 0, len(project.Groups))
	for _, g := range project.Groups {
		groups = append(groups, gin.H{"id": g.ID, "name": g.Name})
	}
	Success(c, gin.H{
		"id":          project.ID,
		"title":       project.Title,
		"description": project.Description,
		"status":      project.Status,
		"start_date":  project.StartDate,
		"end_date":    project.EndDate,
		"groups":      groups,
		"created_at":  project.CreatedAt,
	})
}

// PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Title       *string    `json:"title" binding:"omitempty,max=128"`
		Description *string    `json:"description" binding:"omitempty,max=5000"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		Status      *string    `json:"status" binding:"omitempty,oneof=active on_hold completed archived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	project, err := h.projectService.Update(userID, id, service.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"id":          project.ID,
		"title":       project.Title,
		"description": project.Description,
		"status":      project.Status,
		"updated_at":  project.UpdatedAt,
	})
}

// POST /projects/:id/groups
func (h *ProjectHandler) AddGroups(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		GroupIDs []uint `json:"group_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	project, err := h.projectService.AddGroups(userID, id, req.GroupIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	groups := make([]gin.H, 0, len(project.Groups))
	for _, g := range project.Groups {
		groups = append(groups, gin.H{"id": g.ID, "name": g.Name})
	}
	Success(c, gin.H{"id": project.ID, "groups": groups})
}

// DELETE /projects/:id/groups
//
// Removing the last linked group deletes the project; the cascade result
// in the response says whether that happened.
func (h *ProjectHandler) RemoveGroups(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		GroupIDs []uint `json:"group_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	result, err := h.projectService.RemoveGroups(userID, id, req.GroupIDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"project_deleted": result.ProjectDeleted(id),
		"cascade":         result,
	})
}

// DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	result, err := h.projectService.Delete(userID, id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"deleted": true,
		"cascade": result,
	})
}
