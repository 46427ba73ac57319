package handler

import "timetable-composer/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Catalog   *CatalogHandler
	Workspace *WorkspaceHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Catalog:   NewCatalogHandler(svc.Catalog),
		Workspace: NewWorkspaceHandler(svc.Workspace),
		Export:    NewExportHandler(svc.Export),
	}
}
