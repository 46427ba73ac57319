package composer

import "sort"

// AllDays 一周七天（ISO 星期）
var AllDays = []int{1, 2, 3, 4, 5, 6, 7}

// Cell 渲染后的单元格
//
// 跨多节的课次只在锚点（开始节次）渲染一次，RowSpan 为其节次数；
// 被跨度覆盖的后续单元格 Covered=true，不单独渲染。
type Cell struct {
	Day      int      `json:"day"`
	Period   int      `json:"period"`
	Anchor   *Session `json:"anchor,omitempty"`
	RowSpan  int      `json:"row_span"`
	Covered  bool     `json:"covered"`
	Overlaps []string `json:"overlaps,omitempty"` // 同一锚点上的其他课次（草稿间重复占用）
}

// DoubleBooking 同一锚点上的多个课次
type DoubleBooking struct {
	Day        int      `json:"day"`
	Period     int      `json:"period"`
	SessionIDs []string `json:"session_ids"`
}

// Grid 课次集合在 (星期 × 节次) 矩阵上的只读投影
type Grid struct {
	catalog  *Catalog
	days     []int
	sessions []Session
	dayIndex map[int]bool
}

// NewGrid 基于会话快照构建网格；days 为空时使用全周
func NewGrid(catalog *Catalog, days []int, sessions []Session) *Grid {
	if len(days) == 0 {
		days = AllDays
	}
	idx := make(map[int]bool, len(days))
	for _, d := range days {
		idx[d] = true
	}
	return &Grid{catalog: catalog, days: days, sessions: sessions, dayIndex: idx}
}

// InBounds 单元格是否在网格内
func (g *Grid) InBounds(day, period int) bool {
	return g.dayIndex[day] && g.catalog.Contains(period)
}

// CellOccupant 返回占用 (day, period) 的课次
// 优先返回锚点恰好在该节的课次；否则返回跨度覆盖该节的课次
func (g *Grid) CellOccupant(day, period int) (*Session, bool) {
	var covering *Session
	for i := range g.sessions {
		s := &g.sessions[i]
		if !s.Covers(day, period) {
			continue
		}
		if *s.StartPeriod == period {
			return s, true
		}
		if covering == nil {
			covering = s
		}
	}
	if covering != nil {
		return covering, true
	}
	return nil, false
}

// CanPlace 是否允许将课次放到 (day, period)
func (g *Grid) CanPlace(session *Session, day, period int) bool {
	return g.CheckPlacement(session, day, period) == nil
}

// CheckPlacement 放置校验
//
// 仅比较锚点：同一天已有已发布课次的开始节次等于 period 时拒绝。
// 落在已发布课次跨度中间的位置不会被拒绝，草稿之间的重叠也不拦截，
// 二者都会以重复占用的形式留在网格上供人工处理。
func (g *Grid) CheckPlacement(session *Session, day, period int) error {
	if !g.InBounds(day, period) {
		return ErrOutOfGrid
	}
	for i := range g.sessions {
		other := &g.sessions[i]
		if !other.IsPublished() {
			continue
		}
		if session != nil && other.ID == session.ID {
			continue
		}
		if other.AnchoredAt(day, period) {
			return &ConflictError{Day: day, Period: period, ConflictID: other.ID, Label: displayLabel(other)}
		}
	}
	return nil
}

// Render 生成渲染矩阵：rows[节次][星期]
func (g *Grid) Render() [][]Cell {
	periods := g.catalog.ListPeriods()
	rows := make([][]Cell, len(periods))
	for r, p := range periods {
		row := make([]Cell, len(g.days))
		for c, day := range g.days {
			row[c] = g.renderCell(day, p.Ordinal)
		}
		rows[r] = row
	}
	return rows
}

func (g *Grid) renderCell(day, period int) Cell {
	cell := Cell{Day: day, Period: period}
	for _, s := range g.anchoredAt(day, period) {
		if cell.Anchor == nil {
			anchor := s.Clone()
			cell.Anchor = &anchor
			cell.RowSpan = g.clampedSpan(s)
			continue
		}
		cell.Overlaps = append(cell.Overlaps, s.ID)
	}
	if cell.Anchor != nil {
		return cell
	}
	for i := range g.sessions {
		if g.sessions[i].Covers(day, period) {
			cell.Covered = true
			break
		}
	}
	return cell
}

// anchoredAt 锚点在 (day, period) 的课次；已发布优先，其次按 ID 稳定排序
func (g *Grid) anchoredAt(day, period int) []*Session {
	var out []*Session
	for i := range g.sessions {
		if g.sessions[i].AnchoredAt(day, period) {
			out = append(out, &g.sessions[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPublished() != out[j].IsPublished() {
			return out[i].IsPublished()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// clampedSpan 跨度超出节次表末尾时截断
func (g *Grid) clampedSpan(s *Session) int {
	span := s.PeriodCount()
	if limit := g.catalog.Last() - *s.StartPeriod + 1; span > limit {
		span = limit
	}
	if span < 1 {
		span = 1
	}
	return span
}

// DoubleBookings 列出同一锚点上有多个课次的单元格
func (g *Grid) DoubleBookings() []DoubleBooking {
	type key struct{ day, period int }
	seen := make(map[key][]string)
	var order []key
	for i := range g.sessions {
		s := &g.sessions[i]
		if !s.Placed() {
			continue
		}
		k := key{*s.Day, *s.StartPeriod}
		if _, ok := seen[k]; !ok {
			order = append(order, k)
		}
		seen[k] = append(seen[k], s.ID)
	}
	var out []DoubleBooking
	for _, k := range order {
		if ids := seen[k]; len(ids) > 1 {
			out = append(out, DoubleBooking{Day: k.day, Period: k.period, SessionIDs: ids})
		}
	}
	return out
}

func displayLabel(s *Session) string {
	if s.Label != "" {
		return s.Label
	}
	if s.Class.ClassCode != "" {
		return s.Class.ClassCode
	}
	return s.ID
}
