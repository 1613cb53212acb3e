package handler

import (
	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/Babadzakkkich/project-manager/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required,min=3,max=64"`
		Email    string `json:"email" binding:"required,email,max=128"`
		Name     string `json:"name" binding:"required,max=64"`
		Password string `json:"password" binding:"required,min=8,max=72"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	user, err := h.authService.Register(req.Login, req.Email, req.Name, req.Password)
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
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	user, pair, err := h.authService.Login(req.Login, req.Password)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"user":   user.Brief(),
		"tokens": pair,
	})
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request: "+err.Error())
		return
	}

	user, pair, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"user":   user.Brief(),
		"tokens": pair,
	})
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	if err := h.authService.Logout(userID); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "logged out"})
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	user, groups, err := h.userService.GetByID(userID)
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
