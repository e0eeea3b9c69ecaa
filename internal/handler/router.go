package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portfolio-api/internal/middleware"
	"github.com/noah-isme/student-portfolio-api/internal/models"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Auth           *AuthHandler
	Submissions    *SubmissionHandler
	Works          *WorkHandler
	Changes        *ChangesHandler
	Visitors       *VisitorHandler
	AccessRequests *AccessRequestHandler
	Dashboard      *DashboardHandler
	Moderation     *ModerationHandler
	Metrics        *MetricsHandler
}

// RouterConfig controls route mounting.
type RouterConfig struct {
	APIPrefix      string
	Tokens         middleware.TokenValidator
	MetricsEnabled bool
}

// Register mounts the ops endpoints at the root and the API under APIPrefix.
func Register(r *gin.Engine, cfg RouterConfig, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if cfg.MetricsEnabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.POST("/auth/developer", h.Auth.DeveloperLogin)
	api.POST("/auth/teacher", h.Auth.TeacherLogin)

	api.POST("/submissions", h.Submissions.Create)
	api.GET("/works", h.Works.List)
	api.GET("/works/:id", h.Works.Get)
	api.GET("/works/:id/files/:index", h.Works.File)
	api.GET("/downloads/:token", h.Works.Download)
	api.GET("/changes", h.Changes.Stream)
	api.POST("/visitors", middleware.OptionalJWT(cfg.Tokens), h.Visitors.Track)
	api.POST("/access-requests", h.AccessRequests.Create)

	teacher := api.Group("", middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleTeacher))
	teacher.GET("/teacher/session", h.Auth.TeacherSession)

	dev := api.Group("", middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleDeveloper))
	dev.GET("/submissions", h.Submissions.ListPending)
	dev.POST("/submissions/:id/approve", h.Submissions.Approve)
	dev.POST("/submissions/:id/reject", h.Submissions.Reject)
	dev.DELETE("/works/:id", h.Works.Delete)
	dev.GET("/works/:id/record", h.Works.Record)

	dev.GET("/dashboard", h.Dashboard.Get)
	dev.POST("/dashboard/submissions/:id/approve", h.Dashboard.Approve)
	dev.POST("/dashboard/submissions/:id/reject", h.Dashboard.Reject)
	dev.DELETE("/dashboard/works/:id", h.Dashboard.DeleteWork)

	dev.GET("/moderation/logs", h.Moderation.Logs)
	dev.POST("/moderation/purge", h.Moderation.Purge)
	dev.GET("/visitors", h.Visitors.List)
	dev.GET("/access-requests", h.AccessRequests.List)
	dev.POST("/access-requests/:id/approve", h.AccessRequests.Approve)
	dev.POST("/access-requests/:id/reject", h.AccessRequests.Reject)
	dev.GET("/exports/:dataset", h.Moderation.Export)
}
