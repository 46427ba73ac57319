package service

import (
	"context"

	"go.uber.org/zap"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/model"
	"timetable-composer/internal/repository"
)

// ── 数据来源适配器：Repository → 排课引擎契约 ──

// repoClassSource 以开课班表实现 composer.ClassSource
type repoClassSource struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func (s *repoClassSource) ListClassesForScheduling(ctx context.Context, semesterID string) ([]composer.ClassInfo, error) {
	classes, err := s.repo.Class.ListBySemester(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询开课班失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}

	result := make([]composer.ClassInfo, 0, len(classes))
	for i := range classes {
		result = append(result, toClassInfo(&classes[i]))
	}
	return result, nil
}

// repoPublishedSource 以已发布课次表实现 composer.PublishedSource
type repoPublishedSource struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func (s *repoPublishedSource) GetPublishedSessions(ctx context.Context, classCodes []string, semesterID string) (map[string][]composer.PublishedSession, error) {
	rows, err := s.repo.Session.ListPublishedByClassCodes(ctx, semesterID, classCodes)
	if err != nil {
		s.logger.Error("查询已发布课次失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}

	result := make(map[string][]composer.PublishedSession, len(classCodes))
	for i := range rows {
		row := &rows[i]
		if row.Class == nil {
			continue
		}
		result[row.Class.Code] = append(result[row.Class.Code], toPublishedSession(row))
	}
	return result, nil
}

func toClassInfo(c *model.ClassOffering) composer.ClassInfo {
	info := composer.ClassInfo{
		ID:            c.ClassID,
		Code:          c.Code,
		Title:         c.Title,
		EnrolledCount: c.EnrolledCount,
	}
	if c.InstructorID != nil {
		info.InstructorID = *c.InstructorID
	}
	return info
}

func toPublishedSession(row *model.ClassSession) composer.PublishedSession {
	p := composer.PublishedSession{
		SessionID:   row.SessionID,
		Label:       row.Label,
		Day:         row.DayOfWeek,
		StartPeriod: row.StartPeriod,
		EndPeriod:   row.EndPeriod,
		RoomID:      row.RoomID,
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
	}
	if row.Room != nil {
		p.RoomLabel = row.Room.Code
	}
	return p
}
