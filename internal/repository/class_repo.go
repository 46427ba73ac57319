package repository

import (
	"context"

	"gorm.io/gorm"

	"timetable-composer/internal/model"
	pkgerrors "timetable-composer/pkg/errors"
)

// ClassRepository 开课班数据访问接口
type ClassRepository interface {
	GetByID(ctx context.Context, id string) (*model.ClassOffering, error)
	GetByCode(ctx context.Context, semesterID, code string) (*model.ClassOffering, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.ClassOffering, error)
	MarkScheduled(ctx context.Context, class *model.ClassOffering, updatedBy string) error
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.ClassOffering, error) {
	var class model.ClassOffering
	err := r.db.WithContext(ctx).
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) GetByCode(ctx context.Context, semesterID, code string) (*model.ClassOffering, error) {
	var class model.ClassOffering
	err := r.db.WithContext(ctx).
		Where("semester_id = ? AND code = ?", semesterID, code).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.ClassOffering, error) {
	var classes []model.ClassOffering
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", semesterID).
		Order("code ASC").
		Find(&classes).Error
	return classes, err
}

// MarkScheduled 以乐观锁将开课班标记为已排课
// 版本号不匹配（并发提交）时返回 ErrOptimisticLock
func (r *classRepo) MarkScheduled(ctx context.Context, class *model.ClassOffering, updatedBy string) error {
	oldVersion := class.Version
	result := r.db.WithContext(ctx).
		Model(&model.ClassOffering{}).
		Where("class_id = ? AND version = ?", class.ClassID, oldVersion).
		Updates(map[string]interface{}{
			"schedule_status": model.ScheduleStatusScheduled,
			"updated_by":      updatedBy,
			"updated_at":      gorm.Expr("NOW()"),
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	class.Version = oldVersion + 1
	class.ScheduleStatus = model.ScheduleStatusScheduled
	return nil
}
