package handler

import (
	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GET /dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	stats, err := h.dashboardService.Stats(userID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, stats)
}

// GET /dashboard/my-tasks
func (h *DashboardHandler) MyTasks(c *gin.Context) {
	page, pageSize := parsePage(c)
	userID := middleware.GetCurrentUserID(c)

	tasks, total, err := h.dashboardService.MyTasks(userID, page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		item := gin.H{
			"id":       t.ID,
			"title":    t.Title,
			"status":   t.Status,
			"priority": t.Priority,
			"due_date": t.DueDate,
		}
		if t.Project != nil {
			item["project"] = gin.H{"id": t.Project.ID, "title": t.Project.Title}
		}
		if t.Group != nil {
			item["group"] = gin.H{"id": t.Group.ID, "name": t.Group.Name}
		}
		list = append(list, item)
	}
	SuccessPaged(c, list, total, page, pageSize)
}
