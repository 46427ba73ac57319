package service

import (
	"fmt"

	"go.uber.org/zap"

	"timetable-composer/config"
	"timetable-composer/internal/composer"
	"timetable-composer/internal/repository"
	"timetable-composer/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog   CatalogService
	Workspace WorkspaceService
	Export    ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时教室目录直接查库
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) (*Service, error) {
	catalog, err := buildCatalog(cfg.Timetable.Periods)
	if err != nil {
		return nil, err
	}
	loc := cfg.Timetable.Location()

	catalogOpts := CatalogOptions{
		Catalog:  catalog,
		CacheTTL: cfg.Timetable.RoomCacheTTL,
		Location: loc,
	}
	if rdb != nil {
		catalogOpts.Cache = rdb
	}
	catalogSvc := NewCatalogService(repo, catalogOpts, logger)

	workspaceSvc := NewWorkspaceService(repo, catalogSvc, WorkspaceOptions{
		Catalog: catalog,
		Days:    cfg.Timetable.Days,
		IdleTTL: cfg.Timetable.WorkspaceIdleTTL,
	}, logger)

	return &Service{
		Catalog:   catalogSvc,
		Workspace: workspaceSvc,
		Export:    NewExportService(repo, workspaceSvc, catalog, loc, logger),
	}, nil
}

// buildCatalog 由配置构建节次表，未配置时使用内置节次表
func buildCatalog(periods []config.PeriodConfig) (*composer.Catalog, error) {
	if len(periods) == 0 {
		return composer.DefaultCatalog(), nil
	}
	list := make([]composer.Period, 0, len(periods))
	for _, p := range periods {
		list = append(list, composer.Period{Ordinal: p.Ordinal, Start: p.Start, End: p.End, Label: p.Label})
	}
	catalog, err := composer.NewCatalog(list)
	if err != nil {
		return nil, fmt.Errorf("节次表配置无效: %w", err)
	}
	return catalog, nil
}
