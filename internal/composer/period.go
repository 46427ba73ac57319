package composer

import (
	"fmt"
	"sort"
	"time"
)

// Period 节次：一天内固定的授课时间段
type Period struct {
	Ordinal int    `json:"ordinal"`
	Start   string `json:"start"` // "06:30"
	End     string `json:"end"`   // "07:20"
	Label   string `json:"label"`
}

// Catalog 节次表，创建后只读
type Catalog struct {
	periods []Period
	index   map[int]int
}

// defaultPeriods 内置节次表（上午 1-6，下午 7-12，晚上 13-15）
var defaultPeriods = []Period{
	{Ordinal: 1, Start: "06:30", End: "07:20", Label: "Tiết 1"},
	{Ordinal: 2, Start: "07:25", End: "08:15", Label: "Tiết 2"},
	{Ordinal: 3, Start: "08:20", End: "09:10", Label: "Tiết 3"},
	{Ordinal: 4, Start: "09:20", End: "10:10", Label: "Tiết 4"},
	{Ordinal: 5, Start: "10:15", End: "11:05", Label: "Tiết 5"},
	{Ordinal: 6, Start: "11:10", End: "12:00", Label: "Tiết 6"},
	{Ordinal: 7, Start: "12:30", End: "13:20", Label: "Tiết 7"},
	{Ordinal: 8, Start: "13:25", End: "14:15", Label: "Tiết 8"},
	{Ordinal: 9, Start: "14:20", End: "15:10", Label: "Tiết 9"},
	{Ordinal: 10, Start: "15:20", End: "16:10", Label: "Tiết 10"},
	{Ordinal: 11, Start: "16:15", End: "17:05", Label: "Tiết 11"},
	{Ordinal: 12, Start: "17:10", End: "18:00", Label: "Tiết 12"},
	{Ordinal: 13, Start: "18:15", End: "19:05", Label: "Tiết 13"},
	{Ordinal: 14, Start: "19:10", End: "20:00", Label: "Tiết 14"},
	{Ordinal: 15, Start: "20:05", End: "20:55", Label: "Tiết 15"},
}

// DefaultCatalog 返回内置节次表
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(defaultPeriods)
	return c
}

// NewCatalog 由配置构造节次表
// 要求：非空、序号从 1 连续递增、时间格式 HH:MM、各节不重叠且 end > start
func NewCatalog(periods []Period) (*Catalog, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: 节次列表为空", ErrInvalidCatalog)
	}

	sorted := make([]Period, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	index := make(map[int]int, len(sorted))
	var prevEnd time.Time
	for i, p := range sorted {
		if p.Ordinal != i+1 {
			return nil, fmt.Errorf("%w: 节次序号必须从 1 连续递增，第 %d 项为 %d", ErrInvalidCatalog, i+1, p.Ordinal)
		}
		start, err := time.Parse("15:04", p.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 节开始时间 %q 无效", ErrInvalidCatalog, p.Ordinal, p.Start)
		}
		end, err := time.Parse("15:04", p.End)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 节结束时间 %q 无效", ErrInvalidCatalog, p.Ordinal, p.End)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: 第 %d 节结束时间必须晚于开始时间", ErrInvalidCatalog, p.Ordinal)
		}
		if i > 0 && start.Before(prevEnd) {
			return nil, fmt.Errorf("%w: 第 %d 节与上一节时间重叠", ErrInvalidCatalog, p.Ordinal)
		}
		prevEnd = end
		if sorted[i].Label == "" {
			sorted[i].Label = fmt.Sprintf("Tiết %d", p.Ordinal)
		}
		index[p.Ordinal] = i
	}

	return &Catalog{periods: sorted, index: index}, nil
}

// ListPeriods 按序号返回全部节次（副本）
func (c *Catalog) ListPeriods() []Period {
	out := make([]Period, len(c.periods))
	copy(out, c.periods)
	return out
}

// Lookup 按序号查找节次
func (c *Catalog) Lookup(ordinal int) (Period, bool) {
	i, ok := c.index[ordinal]
	if !ok {
		return Period{}, false
	}
	return c.periods[i], true
}

// Contains 序号是否在节次表内
func (c *Catalog) Contains(ordinal int) bool {
	_, ok := c.index[ordinal]
	return ok
}

// First 第一节的序号
func (c *Catalog) First() int { return c.periods[0].Ordinal }

// Last 最后一节的序号
func (c *Catalog) Last() int { return c.periods[len(c.periods)-1].Ordinal }

// Len 节次数量
func (c *Catalog) Len() int { return len(c.periods) }
