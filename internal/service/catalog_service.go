package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/dto"
	"timetable-composer/internal/model"
	"timetable-composer/internal/repository"
	pkgerrors "timetable-composer/pkg/errors"
)

// ── 目录模块业务错误 ──

var (
	ErrSemesterNotFound = errors.New("学期不存在")
	ErrClassNotFound    = errors.New("开课班不存在")
)

const roomCacheKey = "rooms:active"

// RoomCache 教室目录缓存（由 pkg/redis.Client 实现）
type RoomCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CatalogService 排课目录业务接口：节次、周次、开课班、教室
//
// ListRooms 同时满足 composer.RoomSource。
type CatalogService interface {
	ListPeriods(ctx context.Context) []dto.PeriodResponse
	ListSemesters(ctx context.Context) ([]dto.SemesterResponse, error)
	CurrentSemester(ctx context.Context) (*dto.SemesterResponse, error)
	GetWeeks(ctx context.Context, semesterID string) (*dto.WeeksResponse, error)
	ListClasses(ctx context.Context, semesterID string) ([]dto.ClassResponse, error)
	ListRooms(ctx context.Context) ([]composer.Room, error)
	InvalidateRooms(ctx context.Context) error
}

type catalogService struct {
	repo     *repository.Repository
	catalog  *composer.Catalog
	cache    RoomCache
	cacheTTL time.Duration
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// CatalogOptions 目录服务的运行参数
type CatalogOptions struct {
	Catalog  *composer.Catalog
	Cache    RoomCache // 为 nil 时直接查库
	CacheTTL time.Duration
	Location *time.Location // 计算“今天”所用时区
	Now      func() time.Time
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, opts CatalogOptions, logger *zap.Logger) CatalogService {
	if opts.Catalog == nil {
		opts.Catalog = composer.DefaultCatalog()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &catalogService{
		repo:     repo,
		catalog:  opts.Catalog,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		location: opts.Location,
		now:      opts.Now,
		logger:   logger,
	}
}

// ────────────────────── ListPeriods ──────────────────────

func (s *catalogService) ListPeriods(_ context.Context) []dto.PeriodResponse {
	periods := s.catalog.ListPeriods()
	result := make([]dto.PeriodResponse, 0, len(periods))
	for _, p := range periods {
		result = append(result, toPeriodResponse(p))
	}
	return result
}

// ────────────────────── ListSemesters ──────────────────────

func (s *catalogService) ListSemesters(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

// ────────────────────── CurrentSemester ──────────────────────

func (s *catalogService) CurrentSemester(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}

	resp := toSemesterResponse(semester)
	return &resp, nil
}

// ────────────────────── GetWeeks ──────────────────────

func (s *catalogService) GetWeeks(ctx context.Context, semesterID string) (*dto.WeeksResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", semesterID), zap.Error(err))
		return nil, err
	}

	weeks := composer.BuildWeeks(semester.StartDate, semester.EndDate)
	today := s.now().In(s.location)

	resp := &dto.WeeksResponse{
		SemesterID:  semester.SemesterID,
		Weeks:       make([]dto.WeekResponse, 0, len(weeks)),
		CurrentWeek: composer.CurrentWeekIndex(weeks, today),
	}
	for _, w := range weeks {
		resp.Weeks = append(resp.Weeks, dto.WeekResponse{
			Index:     w.Index,
			StartDate: w.Start.Format(dateLayout),
			EndDate:   w.End.Format(dateLayout),
		})
	}
	return resp, nil
}

// ────────────────────── ListClasses ──────────────────────

func (s *catalogService) ListClasses(ctx context.Context, semesterID string) ([]dto.ClassResponse, error) {
	if _, err := s.repo.Semester.GetByID(ctx, semesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", semesterID), zap.Error(err))
		return nil, err
	}

	classes, err := s.repo.Class.ListBySemester(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询开课班失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, toClassResponse(toClassInfo(&classes[i])))
	}
	return result, nil
}

// ────────────────────── ListRooms ──────────────────────

// ListRooms 优先读缓存；缓存不可用时降级查库
func (s *catalogService) ListRooms(ctx context.Context) ([]composer.Room, error) {
	if s.cache != nil {
		var cached []composer.Room
		err := s.cache.GetJSON(ctx, roomCacheKey, &cached)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, pkgerrors.ErrCacheMiss):
			s.logger.Warn("读取教室缓存失败，降级查库", zap.Error(err))
		}
	}

	rows, err := s.repo.Room.List(ctx, false)
	if err != nil {
		s.logger.Error("查询教室失败", zap.Error(err))
		return nil, err
	}

	rooms := make([]composer.Room, 0, len(rows))
	for i := range rows {
		rooms = append(rooms, toRoom(&rows[i]))
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, roomCacheKey, rooms, s.cacheTTL); err != nil {
			s.logger.Warn("写入教室缓存失败", zap.Error(err))
		}
	}
	return rooms, nil
}

// InvalidateRooms 清除教室缓存
func (s *catalogService) InvalidateRooms(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, roomCacheKey)
}

// ── 转换 ──

const dateLayout = "2006-01-02"

func toPeriodResponse(p composer.Period) dto.PeriodResponse {
	return dto.PeriodResponse{Ordinal: p.Ordinal, Start: p.Start, End: p.End, Label: p.Label}
}

func toSemesterResponse(s *model.Semester) dto.SemesterResponse {
	return dto.SemesterResponse{
		ID:        s.SemesterID,
		Code:      s.Code,
		Name:      s.Name,
		StartDate: s.StartDate.Format(dateLayout),
		EndDate:   s.EndDate.Format(dateLayout),
		IsActive:  s.IsActive,
	}
}

func toClassResponse(c composer.ClassInfo) dto.ClassResponse {
	return dto.ClassResponse{
		ID:            c.ID,
		Code:          c.Code,
		Title:         c.Title,
		InstructorID:  c.InstructorID,
		EnrolledCount: c.EnrolledCount,
	}
}

func toRoom(r *model.Room) composer.Room {
	return composer.Room{ID: r.RoomID, Code: r.Code, Site: r.Site, Capacity: r.Capacity}
}

func toRoomResponse(r composer.Room) dto.RoomResponse {
	return dto.RoomResponse{ID: r.ID, Code: r.Code, Site: r.Site, Capacity: r.Capacity}
}
