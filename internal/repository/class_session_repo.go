package repository

import (
	"context"

	"gorm.io/gorm"

	"timetable-composer/internal/model"
)

// ClassSessionRepository 已发布课次数据访问接口
type ClassSessionRepository interface {
	ListPublishedByClassCodes(ctx context.Context, semesterID string, codes []string) ([]model.ClassSession, error)
	ListByClass(ctx context.Context, classID string) ([]model.ClassSession, error)
	BatchCreate(ctx context.Context, sessions []model.ClassSession) error
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) ListPublishedByClassCodes(ctx context.Context, semesterID string, codes []string) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	if len(codes) == 0 {
		return sessions, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Room").
		Joins("JOIN class_offerings co ON co.class_id = class_sessions.class_id AND co.deleted_at IS NULL").
		Where("class_sessions.semester_id = ? AND class_sessions.status = ? AND co.code IN ?",
			semesterID, model.SessionStatusPublished, codes).
		Order("class_sessions.day_of_week ASC, class_sessions.start_period ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) ListByClass(ctx context.Context, classID string) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("class_id = ? AND status = ?", classID, model.SessionStatusPublished).
		Order("day_of_week ASC, start_period ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) BatchCreate(ctx context.Context, sessions []model.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sessions).Error
}
