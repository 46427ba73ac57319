package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"timetable-composer/internal/service"
	"timetable-composer/pkg/response"
)

// CatalogHandler 排课目录 HTTP 处理器：节次、学期、周次、开课班、教室
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListPeriods 获取节次表
// GET /api/v1/timetable/periods
func (h *CatalogHandler) ListPeriods(c *gin.Context) {
	response.OK(c, gin.H{"list": h.catalogSvc.ListPeriods(c.Request.Context())})
}

// ListSemesters 获取学期列表
// GET /api/v1/timetable/semesters
func (h *CatalogHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.catalogSvc.ListSemesters(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": semesters})
}

// CurrentSemester 获取当前启用的学期
// GET /api/v1/timetable/semesters/current
func (h *CatalogHandler) CurrentSemester(c *gin.Context) {
	semester, err := h.catalogSvc.CurrentSemester(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.OK(c, semester)
}

// GetWeeks 获取学期的教学周及当前周
// GET /api/v1/timetable/semesters/:id/weeks
func (h *CatalogHandler) GetWeeks(c *gin.Context) {
	weeks, err := h.catalogSvc.GetWeeks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.OK(c, weeks)
}

// ListClasses 获取学期内可排课的开课班
// GET /api/v1/timetable/semesters/:id/classes
func (h *CatalogHandler) ListClasses(c *gin.Context) {
	classes, err := h.catalogSvc.ListClasses(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.OK(c, gin.H{"list": classes})
}

// ListRooms 获取启用中的教室
// GET /api/v1/timetable/rooms
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.catalogSvc.ListRooms(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": rooms})
}

// InvalidateRooms 清除教室缓存（仅管理员）
// DELETE /api/v1/timetable/rooms/cache
func (h *CatalogHandler) InvalidateRooms(c *gin.Context) {
	if err := h.catalogSvc.InvalidateRooms(c.Request.Context()); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 17001, "学期不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 17002, "开课班不存在")
	default:
		response.InternalError(c)
	}
}
