package service

import (
	"time"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/dto"
)

// ── 工作区 → DTO 转换 ──

func (ws *workspace) response() *dto.WorkspaceResponse {
	snap := ws.ctrl.Snapshot()

	resp := &dto.WorkspaceResponse{
		ID:         ws.id,
		SemesterID: ws.semesterID,
		Classes:    make([]dto.ClassResponse, 0, len(ws.classOrder)),
		Rooms:      make([]dto.RoomResponse, 0, len(ws.roomOrder)),
		Sessions:   make([]dto.SessionResponse, 0, len(snap.Sessions)),
		MovingID:   snap.MovingID,
	}
	for _, id := range ws.classOrder {
		resp.Classes = append(resp.Classes, toClassResponse(ws.classes[id]))
	}
	for _, r := range ws.roomOrder {
		resp.Rooms = append(resp.Rooms, toRoomResponse(r))
	}
	for _, s := range snap.Sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s, ws.classes))
		if s.IsPublished() {
			resp.PublishedCount++
		} else {
			resp.DraftCount++
		}
	}
	return resp
}

func toSessionResponse(s composer.Session, classes map[string]composer.ClassInfo) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:           s.ID,
		ClassID:      s.Class.ClassID,
		ClassCode:    s.Class.ClassCode,
		ClassTitle:   s.Class.ClassLabel,
		InstructorID: s.Class.InstructorID,
		Label:        s.Label,
		Day:          s.Day,
		StartPeriod:  s.StartPeriod,
		EndPeriod:    s.EndPeriod,
		RoomID:       s.RoomID,
		RoomLabel:    s.RoomLabel,
		StartDate:    formatDatePtr(s.StartDate),
		EndDate:      formatDatePtr(s.EndDate),
		Origin:       string(s.Origin),
		Complete:     composer.IsComplete(&s),
	}
	if resp.ClassTitle == "" {
		resp.ClassTitle = classes[s.Class.ClassID].Title
	}
	if !s.IsPublished() {
		for _, f := range composer.MissingFields(&s) {
			resp.Missing = append(resp.Missing, string(f))
		}
	}
	return resp
}

func toGridResponse(catalog *composer.Catalog, days []int, grid *composer.Grid, classes map[string]composer.ClassInfo) *dto.GridResponse {
	periods := catalog.ListPeriods()
	resp := &dto.GridResponse{
		Days:           days,
		Periods:        make([]dto.PeriodResponse, 0, len(periods)),
		DoubleBookings: grid.DoubleBookings(),
	}
	for _, p := range periods {
		resp.Periods = append(resp.Periods, toPeriodResponse(p))
	}

	for _, row := range grid.Render() {
		cells := make([]dto.CellResponse, 0, len(row))
		for _, c := range row {
			cell := dto.CellResponse{
				Day:      c.Day,
				Period:   c.Period,
				RowSpan:  c.RowSpan,
				Covered:  c.Covered,
				Overlaps: c.Overlaps,
			}
			if c.Anchor != nil {
				s := toSessionResponse(*c.Anchor, classes)
				cell.Session = &s
			}
			cells = append(cells, cell)
		}
		resp.Rows = append(resp.Rows, cells)
	}
	return resp
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
