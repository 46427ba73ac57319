package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-composer/config"
	"timetable-composer/internal/api/handler"
	"timetable-composer/internal/api/middleware"
	"timetable-composer/pkg/jwt"
	"timetable-composer/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时写操作不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, dbStatus = http.StatusServiceUnavailable, "down"
		}
		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
		}
		c.JSON(status, gin.H{"status": dbStatus, "redis": redisStatus})
	})

	// 写操作限流；Redis 不可用时不挂载
	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}
	writeLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		timetable := v1.Group("/timetable")
		timetable.Use(middleware.JWTAuth(jwtMgr))
		timetable.Use(middleware.RoleAuth(cfg.Auth.AllowedRoles...))
		{
			// 目录
			timetable.GET("/periods", h.Catalog.ListPeriods)
			timetable.GET("/rooms", h.Catalog.ListRooms)
			timetable.DELETE("/rooms/cache", middleware.RoleAuth("admin"), h.Catalog.InvalidateRooms)

			semesters := timetable.Group("/semesters")
			{
				semesters.GET("", h.Catalog.ListSemesters)
				semesters.GET("/current", h.Catalog.CurrentSemester)
				semesters.GET("/:id/weeks", h.Catalog.GetWeeks)
				semesters.GET("/:id/classes", h.Catalog.ListClasses)
				semesters.GET("/:id/classes/:code/calendar", h.Export.ExportClassCalendar)
			}

			// 排课工作区
			workspaces := timetable.Group("/workspaces")
			workspaces.Use(middleware.NoStore())
			{
				workspaces.POST("", writeLimit, h.Workspace.Open)
				workspaces.GET("/:id", h.Workspace.Get)
				workspaces.DELETE("/:id", h.Workspace.Close)
				workspaces.POST("/:id/refresh", h.Workspace.Refresh)

				workspaces.POST("/:id/drafts", h.Workspace.AddDraft)
				workspaces.PATCH("/:id/drafts/:session_id", h.Workspace.UpdateDraft)
				workspaces.DELETE("/:id/drafts/:session_id", h.Workspace.DeleteDraft)

				workspaces.POST("/:id/move/begin", h.Workspace.BeginMove)
				workspaces.POST("/:id/move/complete", h.Workspace.CompleteMove)
				workspaces.POST("/:id/move/cancel", h.Workspace.CancelMove)

				workspaces.GET("/:id/grid", h.Workspace.Grid)
				workspaces.GET("/:id/validation", h.Workspace.Validate)
				workspaces.POST("/:id/submit", writeLimit, h.Workspace.Submit)
				workspaces.GET("/:id/notices", h.Workspace.Notices)
				workspaces.GET("/:id/export", h.Export.ExportWorkspaceGrid)
			}
		}
	}

	return r
}
