package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/model"
	"timetable-composer/internal/repository"
)

// ── 提交模块业务错误 ──

var (
	ErrSubmitSemesterMismatch = errors.New("开课班不属于提交的学期")
	ErrSubmitUnknownRoom      = errors.New("提交中包含不存在或已停用的教室")
	ErrSubmitEmptyGroup       = errors.New("提交分组中没有课次")
)

// dbSubmissionSink 将一个 (班级, 教师) 分组在单个事务内写入已发布课次
//
// 任何一步失败整组回滚；不同分组之间互不影响。
type dbSubmissionSink struct {
	repo      *repository.Repository
	officerID string
	logger    *zap.Logger
}

func newSubmissionSink(repo *repository.Repository, officerID string, logger *zap.Logger) composer.SubmissionSink {
	return &dbSubmissionSink{repo: repo, officerID: officerID, logger: logger}
}

func (s *dbSubmissionSink) SubmitSchedule(ctx context.Context, req composer.SubmissionRequest) error {
	if len(req.Sessions) == 0 {
		return ErrSubmitEmptyGroup
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		class, err := tx.Class.GetByID(ctx, req.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		if class.SemesterID != req.SemesterID {
			return ErrSubmitSemesterMismatch
		}

		roomIDs := distinctRoomIDs(req.Sessions)
		n, err := tx.Room.CountByIDs(ctx, roomIDs)
		if err != nil {
			return err
		}
		if int(n) != len(roomIDs) {
			return ErrSubmitUnknownRoom
		}

		rows := make([]model.ClassSession, 0, len(req.Sessions))
		for _, sess := range req.Sessions {
			row := model.ClassSession{
				ClassID:      req.ClassID,
				SemesterID:   req.SemesterID,
				Label:        sess.Label,
				DayOfWeek:    sess.Day,
				StartPeriod:  sess.StartPeriod,
				EndPeriod:    sess.EndPeriod,
				RoomID:       sess.RoomID,
				StartDate:    sess.StartDate,
				EndDate:      sess.EndDate,
				InstructorID: req.InstructorID,
				Status:       model.SessionStatusPublished,
			}
			row.CreatedBy = &s.officerID
			row.UpdatedBy = &s.officerID
			rows = append(rows, row)
		}
		if err := tx.Session.BatchCreate(ctx, rows); err != nil {
			return err
		}

		return tx.Class.MarkScheduled(ctx, class, s.officerID)
	})
	if err != nil {
		s.logger.Warn("提交课次分组失败",
			zap.String("class_code", req.ClassCode),
			zap.Int("sessions", len(req.Sessions)),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("提交课次分组成功",
		zap.String("class_code", req.ClassCode),
		zap.Int("sessions", len(req.Sessions)),
		zap.String("officer_id", s.officerID),
	)
	return nil
}

func distinctRoomIDs(sessions []composer.SubmittedSession) []string {
	seen := make(map[string]bool, len(sessions))
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if !seen[s.RoomID] {
			seen[s.RoomID] = true
			ids = append(ids, s.RoomID)
		}
	}
	return ids
}
