package composer

import (
	"errors"
	"fmt"
	"strings"
)

// ── 排课引擎错误 ──

var (
	ErrSessionNotFound   = errors.New("课次不存在")
	ErrIllegalMutation   = errors.New("已发布课次不可修改、移动或删除")
	ErrPlacementConflict = errors.New("目标单元格与已发布课次冲突")
	ErrOutOfGrid         = errors.New("目标单元格不在课表网格内")
	ErrMoveInProgress    = errors.New("已有课次正在拖动")
	ErrNoActiveMove      = errors.New("当前没有进行中的拖动")
	ErrInvalidSpan       = errors.New("结束节次不能早于开始节次")
	ErrUnknownPeriod     = errors.New("节次不在节次表中")
	ErrInvalidDateRange  = errors.New("结束日期不能早于开始日期")
	ErrIncompleteDraft   = errors.New("存在未填写完整的草稿课次")
	ErrNothingToSubmit   = errors.New("没有待提交的草稿课次")
	ErrInvalidCatalog    = errors.New("节次表配置无效")
	ErrSinkNotConfigured = errors.New("未配置提交接收方")
)

// ConflictError 放置冲突，携带被撞上的已发布课次
type ConflictError struct {
	Day        int    `json:"day"`
	Period     int    `json:"period"`
	ConflictID string `json:"conflict_id"`
	Label      string `json:"label"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: 星期%d 第%d节 已有课次 %s", ErrPlacementConflict.Error(), e.Day, e.Period, e.Label)
}

func (e *ConflictError) Unwrap() error { return ErrPlacementConflict }

// ValidationError 提交前校验失败（全有或全无）
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s (%d): %s", ErrIncompleteDraft.Error(), len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrIncompleteDraft }
