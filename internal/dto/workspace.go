package dto

import "timetable-composer/internal/composer"

// ── 排课工作区请求 ──

// OpenWorkspaceRequest 打开排课工作区
// ClassIDs 为空时载入学期内全部开课班
type OpenWorkspaceRequest struct {
	SemesterID string   `json:"semester_id" binding:"required"`
	ClassIDs   []string `json:"class_ids"   binding:"omitempty,dive,required"`
}

// AddDraftRequest 新增草稿课次
type AddDraftRequest struct {
	ClassID string `json:"class_id" binding:"required"`
}

// UpdateDraftRequest 更新草稿字段（nil 表示不修改）
// 星期只能通过拖动放置设定
type UpdateDraftRequest struct {
	StartPeriod  *int    `json:"start_period"  binding:"omitempty,min=1"`
	EndPeriod    *int    `json:"end_period"    binding:"omitempty,min=1"`
	RoomID       *string `json:"room_id"`
	StartDate    *string `json:"start_date"` // "2025-08-04"
	EndDate      *string `json:"end_date"`
	InstructorID *string `json:"instructor_id" binding:"omitempty,max=64"`
}

// BeginMoveRequest 开始拖动
type BeginMoveRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// CompleteMoveRequest 在目标单元格放下
type CompleteMoveRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Day       int    `json:"day"        binding:"required"`
	Period    int    `json:"period"     binding:"required"`
}

// ── 排课工作区响应 ──

// SessionResponse 课次视图
type SessionResponse struct {
	ID           string   `json:"id"`
	ClassID      string   `json:"class_id"`
	ClassCode    string   `json:"class_code"`
	ClassTitle   string   `json:"class_title,omitempty"`
	InstructorID string   `json:"instructor_id,omitempty"`
	Label        string   `json:"label,omitempty"`
	Day          *int     `json:"day"`
	StartPeriod  *int     `json:"start_period"`
	EndPeriod    *int     `json:"end_period"`
	RoomID       *string  `json:"room_id"`
	RoomLabel    string   `json:"room_label,omitempty"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Origin       string   `json:"origin"`
	Complete     bool     `json:"complete"`
	Missing      []string `json:"missing,omitempty"`
}

// WorkspaceResponse 工作区快照
type WorkspaceResponse struct {
	ID             string            `json:"id"`
	SemesterID     string            `json:"semester_id"`
	Classes        []ClassResponse   `json:"classes"`
	Rooms          []RoomResponse    `json:"rooms"`
	Sessions       []SessionResponse `json:"sessions"`
	MovingID       string            `json:"moving_id,omitempty"`
	DraftCount     int               `json:"draft_count"`
	PublishedCount int               `json:"published_count"`
}

// CellResponse 网格单元格
type CellResponse struct {
	Day      int              `json:"day"`
	Period   int              `json:"period"`
	Session  *SessionResponse `json:"session,omitempty"`
	RowSpan  int              `json:"row_span,omitempty"`
	Covered  bool             `json:"covered,omitempty"`
	Overlaps []string         `json:"overlaps,omitempty"`
}

// GridResponse 网格渲染结果：行为节次，列为星期
type GridResponse struct {
	Days           []int                    `json:"days"`
	Periods        []PeriodResponse         `json:"periods"`
	Rows           [][]CellResponse         `json:"rows"`
	DoubleBookings []composer.DoubleBooking `json:"double_bookings,omitempty"`
}

// ValidationResponse 提交前校验结果
type ValidationResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []composer.Violation `json:"violations"`
}

// SubmitResponse 批量提交结果
type SubmitResponse struct {
	composer.SubmissionOutcome
	Summary   string             `json:"summary"`
	Workspace *WorkspaceResponse `json:"workspace"`
}
