package router

import (
	"github.com/Babadzakkkich/project-manager/internal/handler"
	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries everything the route table needs.
type Deps struct {
	DB             *gorm.DB
	JWTSecret      string
	AllowedOrigins []string

	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Group     *handler.GroupHandler
	Project   *handler.ProjectHandler
	Task      *handler.TaskHandler
	Dashboard *handler.DashboardHandler
	Events    *handler.EventsHandler
}

func Setup(r *gin.Engine, deps Deps) {
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
	}

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.DB))
	{
		authed.POST("/auth/logout", deps.Auth.Logout)
		authed.GET("/auth/me", deps.Auth.Me)

		users := authed.Group("/users")
		{
			users.GET("", deps.User.List)
			users.GET("/search", deps.User.Search)
			users.GET("/:id", deps.User.GetDetail)
			users.PUT("/:id", deps.User.Update)
			users.DELETE("/:id", deps.User.Delete)
		}

		groups := authed.Group("/groups")
		{
			groups.GET("", deps.Group.List)
			groups.POST("", deps.Group.Create)
			groups.GET("/:id", deps.Group.GetDetail)
			groups.PUT("/:id", deps.Group.Update)
			groups.DELETE("/:id", deps.Group.Delete)
			groups.GET("/:id/my-role", deps.Group.GetMyRole)
			groups.POST("/:id/members", deps.Group.AddMembers)
			groups.PUT("/:id/members/:user_id/role", deps.Group.ChangeMemberRole)
			groups.DELETE("/:id/members", deps.Group.RemoveMembers)
		}

		projects := authed.Group("/projects")
		{
			projects.GET("", deps.Project.List)
			projects.POST("", deps.Project.Create)
			projects.GET("/:id", deps.Project.GetDetail)
			projects.PUT("/:id", deps.Project.Update)
			projects.DELETE("/:id", deps.Project.Delete)
			projects.POST("/:id/groups", deps.Project.AddGroups)
			projects.DELETE("/:id/groups", deps.Project.RemoveGroups)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", deps.Task.List)
			tasks.POST("", deps.Task.Create)
			tasks.GET("/:id", deps.Task.GetDetail)
			tasks.PUT("/:id", deps.Task.Update)
			tasks.DELETE("/:id", deps.Task.Delete)
			tasks.GET("/:id/history", deps.Task.History)
			tasks.POST("/:id/assignees", deps.Task.AddAssignees)
			tasks.DELETE("/:id/assignees", deps.Task.RemoveAssignees)
		}

		dashboard := authed.Group("/dashboard")
		{
			dashboard.GET("/stats", deps.Dashboard.Stats)
			dashboard.GET("/my-tasks", deps.Dashboard.MyTasks)
		}

		authed.GET("/events/groups/:id", deps.Events.StreamGroup)
	}
}
