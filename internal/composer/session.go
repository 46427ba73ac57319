package composer

import "time"

// Origin 课次来源
type Origin string

const (
	OriginDraft     Origin = "draft"     // 本地新建，可编辑可删除
	OriginPublished Origin = "published" // 后端已确认，只读
)

// Field 课次必填字段
type Field string

const (
	FieldPlacement Field = "placement"
	FieldSpan      Field = "span"
	FieldRoom      Field = "room"
	FieldStartDate Field = "start_date"
	FieldEndDate   Field = "end_date"
)

// ClassRef 课次所属的开课班
type ClassRef struct {
	ClassID      string `json:"class_id"`
	ClassCode    string `json:"class_code"`
	ClassLabel   string `json:"class_label"`
	InstructorID string `json:"instructor_id,omitempty"`
}

// Session 一个每周重复的上课时段
//
// Day + StartPeriod 构成放置位置；StartPeriod..EndPeriod 为节次跨度。
// 已发布课次的字段在引擎内永不修改。
type Session struct {
	ID          string     `json:"id"`
	Class       ClassRef   `json:"class"`
	Label       string     `json:"label,omitempty"`
	Day         *int       `json:"day,omitempty"` // 1=周一 … 7=周日
	StartPeriod *int       `json:"start_period,omitempty"`
	EndPeriod   *int       `json:"end_period,omitempty"`
	RoomID      *string    `json:"room_id,omitempty"`
	RoomLabel   string     `json:"room_label,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Origin      Origin     `json:"origin"`
}

// IsPublished 是否为已发布课次
func (s *Session) IsPublished() bool { return s.Origin == OriginPublished }

// Placed 是否已放入网格（星期与开始节次均已设置）
func (s *Session) Placed() bool { return s.Day != nil && s.StartPeriod != nil }

// PeriodCount 占用节次数；结束节次未定时按 1 节计
func (s *Session) PeriodCount() int {
	if s.StartPeriod == nil {
		return 0
	}
	if s.EndPeriod == nil {
		return 1
	}
	return *s.EndPeriod - *s.StartPeriod + 1
}

// lastPeriod 实际占用的最后一节
func (s *Session) lastPeriod() int {
	if s.EndPeriod != nil {
		return *s.EndPeriod
	}
	return *s.StartPeriod
}

// Covers 课次是否覆盖 (day, period) 单元格
func (s *Session) Covers(day, period int) bool {
	if !s.Placed() || *s.Day != day {
		return false
	}
	return period >= *s.StartPeriod && period <= s.lastPeriod()
}

// AnchoredAt 课次的渲染锚点是否为 (day, period)
func (s *Session) AnchoredAt(day, period int) bool {
	return s.Placed() && *s.Day == day && *s.StartPeriod == period
}

// MissingFields 列出未填写的必填字段
func MissingFields(s *Session) []Field {
	var missing []Field
	if s.Day == nil {
		missing = append(missing, FieldPlacement)
	}
	if s.StartPeriod == nil || s.EndPeriod == nil {
		missing = append(missing, FieldSpan)
	}
	if s.RoomID == nil || *s.RoomID == "" {
		missing = append(missing, FieldRoom)
	}
	if s.StartDate == nil {
		missing = append(missing, FieldStartDate)
	}
	if s.EndDate == nil {
		missing = append(missing, FieldEndDate)
	}
	return missing
}

// IsComplete 放置、跨度、教室、起止日期五项齐全
func IsComplete(s *Session) bool {
	return len(MissingFields(s)) == 0
}

// Clone 深拷贝
func (s Session) Clone() Session {
	out := s
	out.Day = cloneInt(s.Day)
	out.StartPeriod = cloneInt(s.StartPeriod)
	out.EndPeriod = cloneInt(s.EndPeriod)
	if s.RoomID != nil {
		v := *s.RoomID
		out.RoomID = &v
	}
	out.StartDate = cloneTime(s.StartDate)
	out.EndDate = cloneTime(s.EndDate)
	return out
}

// ── 字段级 setter（不检查跨课次冲突） ──

// SetStartPeriod 设置开始节次；新值大于当前结束节次时清空结束节次
func (s *Session) SetStartPeriod(p int) {
	s.StartPeriod = &p
	if s.EndPeriod != nil && p > *s.EndPeriod {
		s.EndPeriod = nil
	}
}

// SetEndPeriod 设置结束节次，不得早于开始节次
func (s *Session) SetEndPeriod(p int) error {
	if s.StartPeriod != nil && p < *s.StartPeriod {
		return ErrInvalidSpan
	}
	s.EndPeriod = &p
	return nil
}

// SetRoom 设置教室
func (s *Session) SetRoom(id, label string) {
	if id == "" {
		s.RoomID = nil
		s.RoomLabel = ""
		return
	}
	s.RoomID = &id
	s.RoomLabel = label
}

// SetDateRange 设置有效日期范围；任一端可为 nil 表示暂不设置
func (s *Session) SetDateRange(start, end *time.Time) error {
	newStart, newEnd := s.StartDate, s.EndDate
	if start != nil {
		d := dateOnly(*start)
		newStart = &d
	}
	if end != nil {
		d := dateOnly(*end)
		newEnd = &d
	}
	if newStart != nil && newEnd != nil && newEnd.Before(*newStart) {
		return ErrInvalidDateRange
	}
	s.StartDate, s.EndDate = newStart, newEnd
	return nil
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtr(v int) *int { return &v }
