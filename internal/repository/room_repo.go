package repository

import (
	"context"

	"gorm.io/gorm"

	"timetable-composer/internal/model"
)

// RoomRepository 教室数据访问接口
type RoomRepository interface {
	List(ctx context.Context, includeInactive bool) ([]model.Room, error)
	CountByIDs(ctx context.Context, ids []string) (int64, error)
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) List(ctx context.Context, includeInactive bool) ([]model.Room, error) {
	var rooms []model.Room
	db := r.db.WithContext(ctx)

	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}

	err := db.Order("site ASC, code ASC").Find(&rooms).Error
	return rooms, err
}

// CountByIDs 统计给定 ID 中存在且启用的教室数
func (r *roomRepo) CountByIDs(ctx context.Context, ids []string) (int64, error) {
	var n int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id IN ? AND is_active = ?", ids, true).
		Count(&n).Error
	return n, err
}
