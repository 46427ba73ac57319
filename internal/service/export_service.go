package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/model"
	"timetable-composer/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSessions   = errors.New("该开课班暂无已发布课次")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
//   - ExportWorkspaceGrid：工作区当前网格导出为 Excel，跨节课次合并单元格
//   - ExportClassCalendar：开课班已发布课次导出为 iCalendar，每个课次一个按周重复的事件
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写出。
type ExportService interface {
	ExportWorkspaceGrid(ctx context.Context, wsID string) (*bytes.Buffer, string, error)
	ExportClassCalendar(ctx context.Context, semesterID, classCode string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo       *repository.Repository
	workspaces WorkspaceService
	catalog    *composer.Catalog
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, workspaces WorkspaceService, catalog *composer.Catalog, location *time.Location, logger *zap.Logger) ExportService {
	if catalog == nil {
		catalog = composer.DefaultCatalog()
	}
	if location == nil {
		location = time.UTC
	}
	return &exportService{
		repo:       repo,
		workspaces: workspaces,
		catalog:    catalog,
		location:   location,
		now:        time.Now,
		logger:     logger,
	}
}

var dayNames = map[int]string{
	1: "Thứ 2", 2: "Thứ 3", 3: "Thứ 4", 4: "Thứ 5", 5: "Thứ 6", 6: "Thứ 7", 7: "Chủ nhật",
}

// ═══════════════════════════════════════════════════════════
// ExportWorkspaceGrid 网格导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行标题，第 2 行表头：| 节次 | 时间 | 星期… |
//   - 每个节次一行；课次只写在锚点单元格，向下合并 RowSpan 行
//   - 已发布与草稿使用不同底色，同一锚点的重复占用在文本中标注

func (s *exportService) ExportWorkspaceGrid(ctx context.Context, wsID string) (*bytes.Buffer, string, error) {
	view, err := s.workspaces.View(ctx, wsID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "TKB"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 14)
	for i := range view.Days {
		col := colName(2 + i)
		f.SetColWidth(sheet, col, col, 24)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	publishedStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	draftStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("Thời khóa biểu %s", view.SemesterID))
	f.MergeCell(sheet, "A1", cell(colName(1+len(view.Days)), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheet, cell("A", 2), "Tiết")
	f.SetCellValue(sheet, cell("B", 2), "Giờ")
	for i, d := range view.Days {
		f.SetCellValue(sheet, cell(colName(2+i), 2), dayNames[d])
	}
	f.SetCellStyle(sheet, "A2", cell(colName(1+len(view.Days)), 2), headerStyle)

	// 数据行：第 i 个节次位于第 3+i 行
	periods := view.Catalog.ListPeriods()
	for i, p := range periods {
		row := 3 + i
		f.SetCellValue(sheet, cell("A", row), p.Label)
		f.SetCellValue(sheet, cell("B", row), fmt.Sprintf("%s-%s", p.Start, p.End))
	}

	for r, cells := range view.Grid.Render() {
		row := 3 + r
		for c, gc := range cells {
			if gc.Anchor == nil {
				continue
			}
			col := colName(2 + c)
			top := cell(col, row)
			f.SetCellValue(sheet, top, gridCellText(gc))

			bottom := top
			if gc.RowSpan > 1 {
				bottom = cell(col, row+gc.RowSpan-1)
				if err := f.MergeCell(sheet, top, bottom); err != nil {
					s.logger.Warn("合并单元格失败", zap.String("cell", top), zap.Error(err))
				}
			}
			style := draftStyle
			if gc.Anchor.IsPublished() {
				style = publishedStyle
			}
			f.SetCellStyle(sheet, top, bottom, style)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("thoi-khoa-bieu_%s.xlsx", view.SemesterID)
	return buf, filename, nil
}

// gridCellText 锚点单元格文本：名称 / 教室 / 重复占用标注
func gridCellText(c composer.Cell) string {
	s := c.Anchor
	text := s.Label
	if text == "" {
		text = s.Class.ClassCode
	}
	if s.RoomLabel != "" {
		text += "\n" + s.RoomLabel
	}
	if len(c.Overlaps) > 0 {
		text += fmt.Sprintf("\n(+%d trùng)", len(c.Overlaps))
	}
	return text
}

// ═══════════════════════════════════════════════════════════
// ExportClassCalendar 开课班课次导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每个已发布课次生成一个 VEVENT：
//   - DTSTART/DTEND：开始日期后第一个对应星期，开始节次起点至结束节次终点
//   - RRULE：FREQ=WEEKLY，UNTIL 为结束日期当天结束

func (s *exportService) ExportClassCalendar(ctx context.Context, semesterID, classCode string) (*bytes.Buffer, string, error) {
	class, err := s.repo.Class.GetByCode(ctx, semesterID, classCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClassNotFound
		}
		s.logger.Error("查询开课班失败", zap.String("code", classCode), zap.Error(err))
		return nil, "", err
	}

	sessions, err := s.repo.Session.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询已发布课次失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 {
		return nil, "", ErrExportNoSessions
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//timetable-composer//class calendar//VI")
	cal.SetXWRCalName(fmt.Sprintf("%s %s", class.Code, class.Title))
	cal.SetXWRTimezone(s.location.String())

	stamp := s.now().UTC()
	written := 0
	for i := range sessions {
		if s.addSessionEvent(cal, class, &sessions[i], stamp) {
			written++
		}
	}
	if written == 0 {
		return nil, "", ErrExportNoSessions
	}

	buf := new(bytes.Buffer)
	if err := cal.SerializeTo(buf); err != nil {
		s.logger.Error("写入 iCalendar 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s.ics", class.Code)
	return buf, filename, nil
}

// addSessionEvent 写入一个课次事件；节次不在节次表或日期范围内没有对应星期时跳过
func (s *exportService) addSessionEvent(cal *ics.Calendar, class *model.ClassOffering, row *model.ClassSession, stamp time.Time) bool {
	first, ok := s.catalog.Lookup(row.StartPeriod)
	last, ok2 := s.catalog.Lookup(row.EndPeriod)
	if !ok || !ok2 {
		s.logger.Warn("课次节次不在节次表中，跳过导出",
			zap.String("session_id", row.SessionID),
			zap.Int("start_period", row.StartPeriod),
			zap.Int("end_period", row.EndPeriod),
		)
		return false
	}

	day := firstOnOrAfter(row.StartDate, row.DayOfWeek)
	if day.After(calendarDate(row.EndDate)) {
		return false
	}

	start, err := atClock(day, first.Start, s.location)
	if err != nil {
		return false
	}
	end, err := atClock(day, last.End, s.location)
	if err != nil {
		return false
	}
	until := time.Date(row.EndDate.Year(), row.EndDate.Month(), row.EndDate.Day(), 23, 59, 59, 0, s.location)

	event := cal.AddEvent(row.SessionID + "@timetable-composer")
	event.SetDtStampTime(stamp)
	event.SetCreatedTime(row.CreatedAt)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(fmt.Sprintf("%s %s", row.Label, class.Title))
	if row.Room != nil {
		event.SetLocation(row.Room.Code)
	}
	event.SetDescription(fmt.Sprintf("%s, %s-%s", dayNames[row.DayOfWeek], first.Label, last.Label))
	event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;UNTIL=%s", until.UTC().Format("20060102T150405Z")))
	return true
}

// ── 辅助函数 ──

// calendarDate 取日期部分（忽略时区换算）
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// firstOnOrAfter 返回 from 当天或之后第一个 ISO 星期为 weekday 的日期
func firstOnOrAfter(from time.Time, weekday int) time.Time {
	d := calendarDate(from)
	offset := (weekday - composer.ISOWeekday(d) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// atClock 将日期与 "HH:MM" 组合为 loc 时区的时刻
func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
