package composer

import (
	"errors"
	"testing"
)

// completeDraft 返回一个五项齐全的草稿
func completeDraft(id string, day, start, end int) Session {
	room := "room-" + id
	sd, ed := date(2025, 8, 4), date(2025, 12, 21)
	return Session{
		ID:          id,
		Class:       ClassRef{ClassID: "class-1", ClassCode: "CS101", InstructorID: "gv-1"},
		Day:         intPtr(day),
		StartPeriod: intPtr(start),
		EndPeriod:   intPtr(end),
		RoomID:      &room,
		StartDate:   &sd,
		EndDate:     &ed,
		Origin:      OriginDraft,
	}
}

func TestIsComplete_AllFieldPermutations(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		s := completeDraft("d", 2, 1, 3)
		if mask&1 == 0 {
			s.Day = nil
		}
		if mask&2 == 0 {
			s.StartPeriod, s.EndPeriod = nil, nil
		}
		if mask&4 == 0 {
			s.RoomID = nil
		}
		if mask&8 == 0 {
			s.StartDate = nil
		}
		if mask&16 == 0 {
			s.EndDate = nil
		}

		want := mask == 31
		if got := IsComplete(&s); got != want {
			t.Errorf("mask=%05b 期望 IsComplete=%v，实际 %v", mask, want, got)
		}

		missing := MissingFields(&s)
		setCount := 0
		for bit := 0; bit < 5; bit++ {
			if mask&(1<<bit) != 0 {
				setCount++
			}
		}
		if len(missing) != 5-setCount {
			t.Errorf("mask=%05b 期望缺少 %d 项，实际 %v", mask, 5-setCount, missing)
		}
	}
}

func TestIsComplete_HalfSpanIsIncomplete(t *testing.T) {
	s := completeDraft("d", 2, 1, 3)
	s.EndPeriod = nil
	if IsComplete(&s) {
		t.Error("仅有开始节次时不应视为完整")
	}
	empty := ""
	s = completeDraft("d", 2, 1, 3)
	s.RoomID = &empty
	if IsComplete(&s) {
		t.Error("空教室 ID 不应视为完整")
	}
}

func TestSetStartPeriod_ClearsEndWhenGreater(t *testing.T) {
	s := completeDraft("d", 2, 2, 4)

	s.SetStartPeriod(3)
	if s.EndPeriod == nil || *s.EndPeriod != 4 {
		t.Fatalf("开始节次不超过结束节次时应保留结束节次，实际 %v", s.EndPeriod)
	}

	s.SetStartPeriod(6)
	if s.EndPeriod != nil {
		t.Fatalf("开始节次大于结束节次时应清空结束节次，实际 %d", *s.EndPeriod)
	}
	if *s.StartPeriod != 6 {
		t.Errorf("期望 StartPeriod=6，实际 %d", *s.StartPeriod)
	}

	// 幂等：再次设置同一值不再产生变化
	before := s.Clone()
	s.SetStartPeriod(6)
	if s.EndPeriod != nil || *s.StartPeriod != *before.StartPeriod {
		t.Error("重复设置同一开始节次不应改变状态")
	}
}

func TestSetEndPeriod_RejectsBeforeStart(t *testing.T) {
	s := completeDraft("d", 2, 4, 5)
	if err := s.SetEndPeriod(3); !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("期望 ErrInvalidSpan，实际 %v", err)
	}
	if *s.EndPeriod != 5 {
		t.Errorf("被拒绝后结束节次应保持 5，实际 %d", *s.EndPeriod)
	}
	if err := s.SetEndPeriod(4); err != nil {
		t.Errorf("结束节次等于开始节次应允许: %v", err)
	}
}

func TestSetDateRange(t *testing.T) {
	s := Session{ID: "d", Origin: OriginDraft}
	start, end := date(2025, 9, 1), date(2025, 8, 1)
	if err := s.SetDateRange(&start, &end); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("期望 ErrInvalidDateRange，实际 %v", err)
	}
	if s.StartDate != nil || s.EndDate != nil {
		t.Error("被拒绝后日期不应被修改")
	}

	if err := s.SetDateRange(&end, nil); err != nil {
		t.Fatalf("仅设置开始日期应成功: %v", err)
	}
	if err := s.SetDateRange(nil, &start); err != nil {
		t.Fatalf("设置结束日期应成功: %v", err)
	}
	if !s.StartDate.Equal(end) || !s.EndDate.Equal(start) {
		t.Errorf("日期范围设置错误: %v - %v", s.StartDate, s.EndDate)
	}
}

func TestSessionCoversAndPeriodCount(t *testing.T) {
	s := completeDraft("d", 2, 1, 3)
	if s.PeriodCount() != 3 {
		t.Errorf("期望 PeriodCount=3，实际 %d", s.PeriodCount())
	}
	for p := 1; p <= 3; p++ {
		if !s.Covers(2, p) {
			t.Errorf("应覆盖 (2,%d)", p)
		}
	}
	if s.Covers(2, 4) || s.Covers(3, 1) {
		t.Error("不应覆盖跨度之外的单元格")
	}

	s.EndPeriod = nil
	if s.PeriodCount() != 1 || !s.Covers(2, 1) || s.Covers(2, 2) {
		t.Error("结束节次未定时应只占 1 节")
	}
}

func TestSessionClone_IsDeep(t *testing.T) {
	s := completeDraft("d", 2, 1, 3)
	c := s.Clone()
	*c.Day = 5
	*c.RoomID = "other"
	*c.StartDate = date(2030, 1, 1)
	if *s.Day != 2 || *s.RoomID != "room-d" || !s.StartDate.Equal(date(2025, 8, 4)) {
		t.Error("修改副本不应影响原课次")
	}
}
