package composer

import (
	"context"
	"time"
)

// ── 外部协作方契约 ──
//
// 引擎本身不做任何 I/O：开课班、已发布课次、教室、提交与通知
// 都通过以下接口由调用方注入。

// ClassInfo 可排课的开课班
type ClassInfo struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Title         string `json:"title"`
	InstructorID  string `json:"instructor_id,omitempty"`
	EnrolledCount int    `json:"enrolled_count"`
}

// Ref 转为课次引用
func (c ClassInfo) Ref() ClassRef {
	return ClassRef{
		ClassID:      c.ID,
		ClassCode:    c.Code,
		ClassLabel:   c.Title,
		InstructorID: c.InstructorID,
	}
}

// PublishedSession 后端已确认的课次
type PublishedSession struct {
	SessionID   string    `json:"session_id"`
	Label       string    `json:"label"`
	Day         int       `json:"day"`
	StartPeriod int       `json:"start_period"`
	EndPeriod   int       `json:"end_period"`
	RoomID      string    `json:"room_id"`
	RoomLabel   string    `json:"room_label"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// ToSession 转为只读课次
func (p PublishedSession) ToSession(class ClassRef) Session {
	s := Session{
		ID:          p.SessionID,
		Class:       class,
		Label:       p.Label,
		Day:         intPtr(p.Day),
		StartPeriod: intPtr(p.StartPeriod),
		EndPeriod:   intPtr(p.EndPeriod),
		RoomLabel:   p.RoomLabel,
		Origin:      OriginPublished,
	}
	if p.RoomID != "" {
		room := p.RoomID
		s.RoomID = &room
	}
	start, end := dateOnly(p.StartDate), dateOnly(p.EndDate)
	s.StartDate, s.EndDate = &start, &end
	return s
}

// Room 教室
type Room struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Site     string `json:"site"`
	Capacity int    `json:"capacity"`
}

// ClassSource 开课班来源
type ClassSource interface {
	ListClassesForScheduling(ctx context.Context, semesterID string) ([]ClassInfo, error)
}

// PublishedSource 已发布课次来源，按班级代码分组返回
type PublishedSource interface {
	GetPublishedSessions(ctx context.Context, classCodes []string, semesterID string) (map[string][]PublishedSession, error)
}

// RoomSource 教室来源
type RoomSource interface {
	ListRooms(ctx context.Context) ([]Room, error)
}

// SubmissionSink 提交接收方：每个 (班级, 教师) 分组调用一次
type SubmissionSink interface {
	SubmitSchedule(ctx context.Context, req SubmissionRequest) error
}

// ── 通知 ──

// Level 通知级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice 面向用户的提示消息
type Notice struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Notifier 通知接收方，发出即忘，不关心返回
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc 函数适配器
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}
