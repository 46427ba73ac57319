package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/dto"
	"timetable-composer/internal/service"
	"timetable-composer/pkg/response"
)

// WorkspaceHandler 排课工作区 HTTP 处理器
type WorkspaceHandler struct {
	workspaceSvc service.WorkspaceService
}

// NewWorkspaceHandler 创建 WorkspaceHandler
func NewWorkspaceHandler(workspaceSvc service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceSvc: workspaceSvc}
}

// ────────────────────── 工作区生命周期 ──────────────────────

// Open 打开排课工作区
// POST /api/v1/timetable/workspaces
func (h *WorkspaceHandler) Open(c *gin.Context) {
	var req dto.OpenWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ws, err := h.workspaceSvc.Open(c.Request.Context(), &req, callerID)
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.Created(c, ws)
}

// Get 获取工作区快照
// GET /api/v1/timetable/workspaces/:id
func (h *WorkspaceHandler) Get(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	ws, err := h.workspaceSvc.Get(ctx, c.Param("id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, ws)
}

// Refresh 重新拉取已发布课次，草稿保留
// POST /api/v1/timetable/workspaces/:id/refresh
func (h *WorkspaceHandler) Refresh(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	ws, err := h.workspaceSvc.Refresh(ctx, c.Param("id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, ws)
}

// Close 关闭工作区，未提交的草稿一并丢弃
// DELETE /api/v1/timetable/workspaces/:id
func (h *WorkspaceHandler) Close(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	if err := h.workspaceSvc.Close(ctx, c.Param("id")); err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 草稿 ──────────────────────

// AddDraft 新增草稿课次
// POST /api/v1/timetable/workspaces/:id/drafts
func (h *WorkspaceHandler) AddDraft(c *gin.Context) {
	var req dto.AddDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	draft, err := h.workspaceSvc.AddDraft(ctx, c.Param("id"), &req)
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.Created(c, draft)
}

// UpdateDraft 修改草稿字段
// PATCH /api/v1/timetable/workspaces/:id/drafts/:session_id
func (h *WorkspaceHandler) UpdateDraft(c *gin.Context) {
	var req dto.UpdateDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	draft, err := h.workspaceSvc.UpdateDraft(ctx, c.Param("id"), c.Param("session_id"), &req)
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, draft)
}

// DeleteDraft 删除草稿
// DELETE /api/v1/timetable/workspaces/:id/drafts/:session_id
func (h *WorkspaceHandler) DeleteDraft(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	ws, err := h.workspaceSvc.DeleteDraft(ctx, c.Param("id"), c.Param("session_id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, ws)
}

// ────────────────────── 拖放 ──────────────────────

// BeginMove 开始拖动
// POST /api/v1/timetable/workspaces/:id/move/begin
func (h *WorkspaceHandler) BeginMove(c *gin.Context) {
	var req dto.BeginMoveRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	ws, err := h.workspaceSvc.BeginMove(ctx, c.Param("id"), &req)
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, ws)
}

// CompleteMove 在目标单元格放下
// POST /api/v1/timetable/workspaces/:id/move/complete
func (h *WorkspaceHandler) CompleteMove(c *gin.Context) {
	var req dto.CompleteMoveRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	ws, err := h.workspaceSvc.CompleteMove(ctx, c.Param("id"), &req)
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, ws)
}

// CancelMove 放弃拖动
// POST /api/v1/timetable/workspaces/:id/move/cancel
func (h *WorkspaceHandler) CancelMove(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	ws, err := h.workspaceSvc.CancelMove(ctx, c.Param("id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, ws)
}

// ────────────────────── 网格 / 校验 / 提交 ──────────────────────

// Grid 获取网格渲染结果
// GET /api/v1/timetable/workspaces/:id/grid
func (h *WorkspaceHandler) Grid(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	grid, err := h.workspaceSvc.Grid(ctx, c.Param("id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, grid)
}

// Validate 提交前校验
// GET /api/v1/timetable/workspaces/:id/validation
func (h *WorkspaceHandler) Validate(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	result, err := h.workspaceSvc.Validate(ctx, c.Param("id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, result)
}

// Submit 提交全部草稿
// POST /api/v1/timetable/workspaces/:id/submit
//
// 部分分组失败时仍返回 200，失败明细在 failures 中。
func (h *WorkspaceHandler) Submit(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.workspaceSvc.Submit(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, result)
}

// Notices 取走工作区的未读通知
// GET /api/v1/timetable/workspaces/:id/notices
func (h *WorkspaceHandler) Notices(c *gin.Context) {
	ctx, ok := officerContext(c)
	if !ok {
		return
	}
	notices, err := h.workspaceSvc.Notices(ctx, c.Param("id"))
	if err != nil {
		handleWorkspaceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": notices})
}

// handleWorkspaceError 将工作区与排课引擎错误映射为 HTTP 响应
func handleWorkspaceError(c *gin.Context, err error) {
	var conflict *composer.ConflictError
	var verr *composer.ValidationError

	switch {
	case errors.Is(err, service.ErrWorkspaceNotFound):
		response.NotFound(c, 16001, "排课工作区不存在或已过期")
	case errors.Is(err, composer.ErrSessionNotFound):
		response.NotFound(c, 16002, "课次不存在")
	case errors.Is(err, composer.ErrIllegalMutation):
		response.Conflict(c, 16003, "已发布课次不可修改")
	case errors.As(err, &conflict):
		response.ErrorWithData(c, http.StatusConflict, 16004, conflict.Error(), conflict)
	case errors.Is(err, composer.ErrPlacementConflict):
		response.Conflict(c, 16004, "目标位置已有已发布课次")
	case errors.Is(err, composer.ErrOutOfGrid):
		response.BadRequest(c, 16005, "目标位置超出课表范围")
	case errors.Is(err, composer.ErrMoveInProgress):
		response.Conflict(c, 16006, "已有课次正在拖动")
	case errors.Is(err, composer.ErrNoActiveMove):
		response.Conflict(c, 16007, "没有进行中的拖动")
	case errors.Is(err, composer.ErrInvalidSpan):
		response.BadRequest(c, 16008, "结束节次不能早于开始节次")
	case errors.Is(err, composer.ErrUnknownPeriod):
		response.BadRequest(c, 16009, "节次无效")
	case errors.Is(err, composer.ErrInvalidDateRange):
		response.BadRequest(c, 16010, "结束日期不能早于开始日期")
	case errors.Is(err, service.ErrDateFormat):
		response.BadRequest(c, 16010, "日期格式无效，应为 YYYY-MM-DD")
	case errors.As(err, &verr):
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 16011, "存在未填写完整的草稿", verr.Violations)
	case errors.Is(err, composer.ErrNothingToSubmit):
		response.BadRequest(c, 16012, "没有可提交的草稿")
	case errors.Is(err, service.ErrClassNotInWorkspace):
		response.BadRequest(c, 16013, "开课班不在当前工作区中")
	case errors.Is(err, service.ErrRoomNotFound):
		response.BadRequest(c, 16014, "教室不存在或已停用")
	case errors.Is(err, service.ErrNoClasses):
		response.BadRequest(c, 16015, "学期内没有可排课的开课班")
	default:
		handleCatalogError(c, err)
	}
}
