package handler

import (
	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /users
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)
	keyword := c.Query("keyword")

	users, total, err := h.userService.List(keyword, page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(users))
	for _, u := range users {
		list = append(list, gin.H{
			"id":         u.ID,
			"login":      u.Login,
			"name":       u.Name,
			"email":      u.Email,
			"created_at": u.CreatedAt,
		})
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /users/search
func (h *UserHandler) Search(c *gin.Context) {
	keyword := c.Query("keyword")

	var excludeGroupID *uint
	if s := c.Query("exclude_group_id"); s != "" {
		v := parseID(s)
		excludeGroupID = &v
	}

	users, err := h.userService.Search(keyword, excludeGroupID, 20)
	if err != nil {
		Fail(c, err)
		return
	}

	list := make([]gin.H, 0, len(users))
	for _, u := range users {
		list = append(list, gin.H{"id": u.ID, "login": u.Login, "name": u.Name})
	}
	Success(c, list)
}

// GET /users/:id
func (h *UserHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))

	user, groups, err := h.userService.GetByID(id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"id":         user.ID,
		"login":      user.Login,
		"email":      user.Email,
		"name":       user.Name,
		"created_at": user.CreatedAt,
		"groups":     groups,
	})
}

// PUT /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	callerID := middleware.GetCurrentUserID(c)

	var req struct {
		Email    *string `json:"email" binding:"omitempty,email,max=128"`
		Name     *string `json:"name" binding:"omitempty,max=64"`
		Password *string `json:"password" binding:"omitempty,min=8,max=72"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	user, err := h.userService.Update(callerID, id, service.UserUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"id":         user.ID,
		"login":      user.Login,
		"email":      user.Email,
		"name":       user.Name,
		"updated_at": user.UpdatedAt,
	})
}

// DELETE /users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	callerID := middleware.GetCurrentUserID(c)

	result, err := h.userService.Delete(callerID, id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"deleted": true,
		"cascade": result,
	})
}
