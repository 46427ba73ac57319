package composer

import "time"

// Week 教学周（闭区间 [Start, End]，仅日期）
type Week struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ISOWeekday 返回 ISO 星期：周一=1 … 周日=7
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// dateOnly 截断为 UTC 零点日期，丢弃时区与时刻
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildWeeks 根据学期起止日期生成教学周
//
// 第 1 周从 start 当天或之后的第一个周一开始，此后每周顺延 7 天，
// 直到周一晚于 end 为止。start 晚于 end 时返回空列表。
func BuildWeeks(start, end time.Time) []Week {
	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return []Week{}
	}

	offset := (8 - ISOWeekday(start)) % 7
	weekStart := start.AddDate(0, 0, offset)

	var weeks []Week
	for idx := 1; !weekStart.After(end); idx++ {
		weeks = append(weeks, Week{
			Index: idx,
			Start: weekStart,
			End:   weekStart.AddDate(0, 0, 6),
		})
		weekStart = weekStart.AddDate(0, 0, 7)
	}
	if weeks == nil {
		return []Week{}
	}
	return weeks
}

// WeekOf 查找包含 date 的教学周（两端均包含）
func WeekOf(weeks []Week, date time.Time) (Week, bool) {
	d := dateOnly(date)
	for _, w := range weeks {
		if !d.Before(dateOnly(w.Start)) && !d.After(dateOnly(w.End)) {
			return w, true
		}
	}
	return Week{}, false
}

// CurrentWeekIndex 返回 today 所在周的序号，找不到时返回 1
func CurrentWeekIndex(weeks []Week, today time.Time) int {
	if w, ok := WeekOf(weeks, today); ok {
		return w.Index
	}
	return 1
}
