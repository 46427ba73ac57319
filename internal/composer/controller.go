package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ── 拖放/放置控制器 ──────────────────────────────────────────
//
// 控制器独占课次列表，所有修改都经由以下命令完成：
//   AddDraft / UpdateField / DeleteSession
//   BeginMove → CompleteMove | CancelMove（拖放的两阶段提交）
//   Submit（校验 → 分组 → 顺序提交 → 丢弃已接受草稿）
//
// 每个命令返回当前状态的不可变快照；被拒绝时快照不变并返回错误，
// 同时通过 Notifier 提示用户。已发布课次拒绝一切状态迁移。
// 控制器不是并发安全的，调用方需保证串行访问。
// ─────────────────────────────────────────────────────────────

// Snapshot 控制器状态的只读副本
type Snapshot struct {
	Sessions []Session `json:"sessions"`
	MovingID string    `json:"moving_id,omitempty"`
}

// Find 按 ID 查找课次
func (s Snapshot) Find(id string) (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

// Drafts 草稿课次
func (s Snapshot) Drafts() []Session {
	return filterOrigin(s.Sessions, OriginDraft)
}

// Published 已发布课次
func (s Snapshot) Published() []Session {
	return filterOrigin(s.Sessions, OriginPublished)
}

func filterOrigin(sessions []Session, origin Origin) []Session {
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Origin == origin {
			out = append(out, sess)
		}
	}
	return out
}

// SessionPatch 草稿字段更新，nil 表示不修改
//
// 星期只能通过拖动放置（CompleteMove）设定。
type SessionPatch struct {
	StartPeriod  *int
	EndPeriod    *int
	RoomID       *string
	RoomLabel    *string
	StartDate    *time.Time
	EndDate      *time.Time
	InstructorID *string
}

// Option 控制器选项
type Option func(*Controller)

// WithNotifier 设置通知接收方
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithDays 设置网格包含的星期
func WithDays(days []int) Option {
	return func(c *Controller) {
		if len(days) > 0 {
			c.days = append([]int(nil), days...)
		}
	}
}

// WithIDGenerator 替换草稿 ID 生成器
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// Controller 排课控制器
type Controller struct {
	catalog  *Catalog
	days     []int
	sessions []Session
	movingID string
	notifier Notifier
	newID    func() string
}

// NewController 创建控制器；catalog 为 nil 时使用内置节次表
func NewController(catalog *Catalog, opts ...Option) *Controller {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	c := &Controller{
		catalog:  catalog,
		days:     AllDays,
		notifier: nopNotifier{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog 节次表
func (c *Controller) Catalog() *Catalog { return c.catalog }

// Days 网格星期
func (c *Controller) Days() []int { return append([]int(nil), c.days...) }

// Snapshot 当前状态
func (c *Controller) Snapshot() Snapshot {
	sessions := make([]Session, len(c.sessions))
	for i := range c.sessions {
		sessions[i] = c.sessions[i].Clone()
	}
	return Snapshot{Sessions: sessions, MovingID: c.movingID}
}

// Grid 基于当前状态构建网格
func (c *Controller) Grid() *Grid {
	return NewGrid(c.catalog, c.days, c.Snapshot().Sessions)
}

// Seed 用最新拉取的已发布课次替换本地已发布集合，草稿保留
func (c *Controller) Seed(published []Session) Snapshot {
	kept := make([]Session, 0, len(c.sessions)+len(published))
	for _, s := range published {
		s = s.Clone()
		s.Origin = OriginPublished
		kept = append(kept, s)
	}
	for _, s := range c.sessions {
		if !s.IsPublished() {
			kept = append(kept, s)
		}
	}
	c.sessions = kept
	if c.movingID != "" {
		if _, ok := c.find(c.movingID); !ok {
			c.movingID = ""
		}
	}
	return c.Snapshot()
}

// AddDraft 为开课班追加一个未放置的草稿课次
func (c *Controller) AddDraft(class ClassRef) (Session, Snapshot) {
	s := Session{
		ID:     c.newID(),
		Class:  class,
		Origin: OriginDraft,
	}
	c.sessions = append(c.sessions, s)
	return s.Clone(), c.Snapshot()
}

// BeginMove 开始拖动，仅草稿可拖动，同一时间只允许一个拖动
func (c *Controller) BeginMove(id string) (Snapshot, error) {
	s, err := c.editable(id)
	if err != nil {
		return c.Snapshot(), err
	}
	if c.movingID != "" && c.movingID != id {
		return c.Snapshot(), c.reject(LevelWarning, id, ErrMoveInProgress)
	}
	c.movingID = s.ID
	return c.Snapshot(), nil
}

// CompleteMove 放下拖动中的课次
//
// 校验失败时拖动结束、位置不变（回弹）；通过时更新星期与开始节次，
// 原有节次跨度长度保持不变。
func (c *Controller) CompleteMove(id string, day, period int) (Snapshot, error) {
	if c.movingID == "" || c.movingID != id {
		return c.Snapshot(), c.reject(LevelWarning, id, ErrNoActiveMove)
	}
	c.movingID = ""

	idx, ok := c.find(id)
	if !ok {
		return c.Snapshot(), c.reject(LevelError, id, ErrSessionNotFound)
	}
	s := &c.sessions[idx]

	if err := NewGrid(c.catalog, c.days, c.sessions).CheckPlacement(s, day, period); err != nil {
		return c.Snapshot(), c.reject(LevelWarning, id, err)
	}

	moved := s.Clone()
	switch {
	case moved.StartPeriod != nil && moved.EndPeriod != nil:
		end := period + (*moved.EndPeriod - *moved.StartPeriod)
		if !c.catalog.Contains(end) {
			return c.Snapshot(), c.reject(LevelWarning, id, fmt.Errorf("%w: 跨度将超出第 %d 节", ErrOutOfGrid, c.catalog.Last()))
		}
		moved.EndPeriod = intPtr(end)
	case moved.EndPeriod != nil && *moved.EndPeriod < period:
		moved.EndPeriod = nil
	}
	moved.Day = intPtr(day)
	moved.StartPeriod = intPtr(period)

	*s = moved
	return c.Snapshot(), nil
}

// CancelMove 放弃拖动（在网格外松开），不修改任何状态
func (c *Controller) CancelMove() Snapshot {
	c.movingID = ""
	return c.Snapshot()
}

// UpdateField 修改草稿字段；整个 patch 要么全部生效要么全部不生效
//
// 已放置的草稿修改开始节次等同于在同一天重新放置，需通过放置校验。
func (c *Controller) UpdateField(id string, patch SessionPatch) (Snapshot, error) {
	s, err := c.editable(id)
	if err != nil {
		return c.Snapshot(), err
	}

	next := s.Clone()
	if patch.StartPeriod != nil {
		if !c.catalog.Contains(*patch.StartPeriod) {
			return c.Snapshot(), c.reject(LevelWarning, id, ErrUnknownPeriod)
		}
		moved := s.StartPeriod == nil || *s.StartPeriod != *patch.StartPeriod
		if moved && next.Day != nil {
			if err := NewGrid(c.catalog, c.days, c.sessions).CheckPlacement(&next, *next.Day, *patch.StartPeriod); err != nil {
				return c.Snapshot(), c.reject(LevelWarning, id, err)
			}
		}
		next.SetStartPeriod(*patch.StartPeriod)
	}
	if patch.EndPeriod != nil {
		if !c.catalog.Contains(*patch.EndPeriod) {
			return c.Snapshot(), c.reject(LevelWarning, id, ErrUnknownPeriod)
		}
		if err := next.SetEndPeriod(*patch.EndPeriod); err != nil {
			return c.Snapshot(), c.reject(LevelWarning, id, err)
		}
	}
	if patch.RoomID != nil {
		label := next.RoomLabel
		if patch.RoomLabel != nil {
			label = *patch.RoomLabel
		}
		next.SetRoom(*patch.RoomID, label)
	}
	if patch.StartDate != nil || patch.EndDate != nil {
		if err := next.SetDateRange(patch.StartDate, patch.EndDate); err != nil {
			return c.Snapshot(), c.reject(LevelWarning, id, err)
		}
	}
	if patch.InstructorID != nil {
		next.Class.InstructorID = *patch.InstructorID
	}

	*s = next
	return c.Snapshot(), nil
}

// DeleteSession 删除草稿；已发布课次拒绝删除
func (c *Controller) DeleteSession(id string) (Snapshot, error) {
	if _, err := c.editable(id); err != nil {
		return c.Snapshot(), err
	}
	idx, _ := c.find(id)
	c.sessions = append(c.sessions[:idx], c.sessions[idx+1:]...)
	if c.movingID == id {
		c.movingID = ""
	}
	return c.Snapshot(), nil
}

// Discard 丢弃已被后端接受的草稿
func (c *Controller) Discard(ids []string) Snapshot {
	if len(ids) == 0 {
		return c.Snapshot()
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := c.sessions[:0]
	for _, s := range c.sessions {
		if drop[s.ID] && !s.IsPublished() {
			continue
		}
		kept = append(kept, s)
	}
	c.sessions = kept
	if drop[c.movingID] {
		c.movingID = ""
	}
	return c.Snapshot()
}

// Validate 返回所有草稿的违规项
func (c *Controller) Validate() []Violation {
	return ValidateForSubmission(c.Snapshot().Drafts())
}

// Submit 校验全部草稿后按分组顺序提交
//
// 有任何违规时整体拒绝、不发起请求；提交完成后已接受的草稿从本地移除，
// 结果只汇总通知一次。
func (c *Controller) Submit(ctx context.Context, sink SubmissionSink, classes map[string]ClassInfo, semesterID string) (SubmissionOutcome, error) {
	if sink == nil {
		return SubmissionOutcome{}, c.reject(LevelError, "", ErrSinkNotConfigured)
	}
	drafts := c.Snapshot().Drafts()
	if len(drafts) == 0 {
		return SubmissionOutcome{}, c.reject(LevelInfo, "", ErrNothingToSubmit)
	}

	if violations := ValidateForSubmission(drafts); len(violations) > 0 {
		err := &ValidationError{Violations: violations}
		c.notifier.Notify(Notice{Level: LevelError, Message: err.Error()})
		return SubmissionOutcome{}, err
	}

	requests := BuildSubmissionGroups(drafts, classes, semesterID)
	outcome := SubmitAll(ctx, sink, requests)
	c.Discard(outcome.AcceptedSessionIDs)

	level := LevelSuccess
	switch {
	case outcome.SuccessCount == 0:
		level = LevelError
	case outcome.FailureCount > 0:
		level = LevelWarning
	}
	c.notifier.Notify(Notice{Level: level, Message: outcome.Summary()})
	return outcome, nil
}

// ── 内部辅助 ──

func (c *Controller) find(id string) (int, bool) {
	for i := range c.sessions {
		if c.sessions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// editable 取得可修改的草稿，已发布或不存在时拒绝
func (c *Controller) editable(id string) (*Session, error) {
	idx, ok := c.find(id)
	if !ok {
		return nil, c.reject(LevelError, id, ErrSessionNotFound)
	}
	s := &c.sessions[idx]
	if s.IsPublished() {
		return nil, c.reject(LevelError, id, ErrIllegalMutation)
	}
	return s, nil
}

func (c *Controller) reject(level Level, id string, err error) error {
	c.notifier.Notify(Notice{Level: level, Message: err.Error(), SessionID: id})
	return err
}
