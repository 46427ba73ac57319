package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"timetable-composer/internal/service"
	"timetable-composer/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWorkspaceGrid 导出工作区网格为 Excel
// GET /api/v1/timetable/workspaces/:id/export
func (h *ExportHandler) ExportWorkspaceGrid(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	buf, filename, err := h.exportSvc.ExportWorkspaceGrid(ctx, c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportClassCalendar 导出开课班已发布课次为 iCalendar
// GET /api/v1/timetable/semesters/:id/classes/:code/calendar
func (h *ExportHandler) ExportClassCalendar(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportClassCalendar(c.Request.Context(), c.Param("id"), c.Param("code"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头并写出文件
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSessions):
		response.NotFound(c, 17101, "该开课班暂无已发布课次")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	case errors.Is(err, service.ErrWorkspaceNotFound):
		response.NotFound(c, 16001, "排课工作区不存在或已过期")
	default:
		handleCatalogError(c, err)
	}
}
