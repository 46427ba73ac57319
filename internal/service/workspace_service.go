package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"timetable-composer/internal/composer"
	"timetable-composer/internal/dto"
	"timetable-composer/internal/repository"
)

// ── 排课工作区业务错误 ──

var (
	ErrWorkspaceNotFound   = errors.New("排课工作区不存在或已过期")
	ErrNoClasses           = errors.New("学期内没有可排课的开课班")
	ErrClassNotInWorkspace = errors.New("开课班不在当前工作区中")
	ErrRoomNotFound        = errors.New("教室不存在或已停用")
	ErrDateFormat          = errors.New("日期格式无效，应为 YYYY-MM-DD")
)

// WorkspaceService 排课工作区业务接口
//
// 一个工作区对应一名排课人员在某学期对一组开课班的编辑会话：
// 已发布课次只读，草稿在内存中编辑，提交后写入已发布课次。
// 工作区只存在于进程内存，闲置超时后丢弃。
type WorkspaceService interface {
	Open(ctx context.Context, req *dto.OpenWorkspaceRequest, officerID string) (*dto.WorkspaceResponse, error)
	Get(ctx context.Context, wsID string) (*dto.WorkspaceResponse, error)
	Refresh(ctx context.Context, wsID string) (*dto.WorkspaceResponse, error)
	Close(ctx context.Context, wsID string) error

	AddDraft(ctx context.Context, wsID string, req *dto.AddDraftRequest) (*dto.SessionResponse, error)
	UpdateDraft(ctx context.Context, wsID, sessionID string, req *dto.UpdateDraftRequest) (*dto.SessionResponse, error)
	DeleteDraft(ctx context.Context, wsID, sessionID string) (*dto.WorkspaceResponse, error)

	BeginMove(ctx context.Context, wsID string, req *dto.BeginMoveRequest) (*dto.WorkspaceResponse, error)
	CompleteMove(ctx context.Context, wsID string, req *dto.CompleteMoveRequest) (*dto.WorkspaceResponse, error)
	CancelMove(ctx context.Context, wsID string) (*dto.WorkspaceResponse, error)

	Grid(ctx context.Context, wsID string) (*dto.GridResponse, error)
	Validate(ctx context.Context, wsID string) (*dto.ValidationResponse, error)
	Submit(ctx context.Context, wsID, officerID string) (*dto.SubmitResponse, error)
	Notices(ctx context.Context, wsID string) ([]composer.Notice, error)

	// View 只读视图，供导出使用
	View(ctx context.Context, wsID string) (*WorkspaceView, error)
	// EvictIdle 丢弃闲置超时的工作区，返回丢弃数量
	EvictIdle() int
}

// WorkspaceView 工作区只读视图
type WorkspaceView struct {
	ID         string
	SemesterID string
	Catalog    *composer.Catalog
	Days       []int
	Grid       *composer.Grid
	Snapshot   composer.Snapshot
	Classes    map[string]composer.ClassInfo
}

// WorkspaceOptions 工作区服务运行参数
type WorkspaceOptions struct {
	Catalog *composer.Catalog
	Days    []int
	IdleTTL time.Duration
	Now     func() time.Time
	NewID   func() string // 工作区 ID 生成器
}

type workspace struct {
	mu sync.Mutex

	id         string
	semesterID string
	officerID  string
	ctrl       *composer.Controller
	notifier   *workspaceNotifier
	classes    map[string]composer.ClassInfo // class_id → info
	classOrder []string
	rooms      map[string]composer.Room
	roomOrder  []composer.Room
	lastUsed   time.Time
}

type workspaceService struct {
	repo      *repository.Repository
	classes   composer.ClassSource
	published composer.PublishedSource
	rooms     composer.RoomSource
	catalog   *composer.Catalog
	days      []int
	idleTTL   time.Duration
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger

	mu         sync.RWMutex
	workspaces map[string]*workspace
}

// NewWorkspaceService 创建 WorkspaceService 实例
func NewWorkspaceService(repo *repository.Repository, rooms composer.RoomSource, opts WorkspaceOptions, logger *zap.Logger) WorkspaceService {
	if opts.Catalog == nil {
		opts.Catalog = composer.DefaultCatalog()
	}
	if len(opts.Days) == 0 {
		opts.Days = composer.AllDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &workspaceService{
		repo:       repo,
		classes:    &repoClassSource{repo: repo, logger: logger},
		published:  &repoPublishedSource{repo: repo, logger: logger},
		rooms:      rooms,
		catalog:    opts.Catalog,
		days:       opts.Days,
		idleTTL:    opts.IdleTTL,
		now:        opts.Now,
		newID:      opts.NewID,
		logger:     logger,
		workspaces: make(map[string]*workspace),
	}
}

// ────────────────────── Open ──────────────────────

func (s *workspaceService) Open(ctx context.Context, req *dto.OpenWorkspaceRequest, officerID string) (*dto.WorkspaceResponse, error) {
	if _, err := s.repo.Semester.GetByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", req.SemesterID), zap.Error(err))
		return nil, err
	}

	// 开课班与教室互不依赖，并发拉取
	var (
		classes []composer.ClassInfo
		rooms   []composer.Room
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classes, err = s.classes.ListClassesForScheduling(gctx, req.SemesterID)
		return err
	})
	g.Go(func() error {
		var err error
		rooms, err = s.rooms.ListRooms(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	selected, err := selectClasses(classes, req.ClassIDs)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoClasses
	}

	id := s.newID()
	ws := &workspace{
		id:         id,
		semesterID: req.SemesterID,
		officerID:  officerID,
		classes:    make(map[string]composer.ClassInfo, len(selected)),
		rooms:      make(map[string]composer.Room, len(rooms)),
		roomOrder:  rooms,
		lastUsed:   s.now(),
	}
	for _, c := range selected {
		ws.classes[c.ID] = c
		ws.classOrder = append(ws.classOrder, c.ID)
	}
	for _, r := range rooms {
		ws.rooms[r.ID] = r
	}
	ws.notifier = newWorkspaceNotifier(s.logger.With(zap.String("workspace_id", id)))
	ws.ctrl = composer.NewController(s.catalog,
		composer.WithDays(s.days),
		composer.WithNotifier(ws.notifier),
	)

	if err := s.seed(ctx, ws); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.workspaces[id] = ws
	s.mu.Unlock()

	s.logger.Info("排课工作区已打开",
		zap.String("workspace_id", id),
		zap.String("semester_id", req.SemesterID),
		zap.Int("classes", len(selected)),
		zap.String("officer_id", officerID),
	)
	return ws.response(), nil
}

// selectClasses 按请求过滤开课班；未指定时返回全部
func selectClasses(all []composer.ClassInfo, ids []string) ([]composer.ClassInfo, error) {
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]composer.ClassInfo, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	seen := make(map[string]bool, len(ids))
	selected := make([]composer.ClassInfo, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, ErrClassNotFound
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, c)
	}
	return selected, nil
}

// seed 拉取工作区开课班的已发布课次并替换本地已发布集合
func (s *workspaceService) seed(ctx context.Context, ws *workspace) error {
	codes := make([]string, 0, len(ws.classOrder))
	byCode := make(map[string]composer.ClassInfo, len(ws.classOrder))
	for _, id := range ws.classOrder {
		c := ws.classes[id]
		codes = append(codes, c.Code)
		byCode[c.Code] = c
	}

	published, err := s.published.GetPublishedSessions(ctx, codes, ws.semesterID)
	if err != nil {
		return err
	}

	sessions := make([]composer.Session, 0)
	for _, code := range codes {
		ref := byCode[code].Ref()
		for _, p := range published[code] {
			sessions = append(sessions, p.ToSession(ref))
		}
	}
	ws.ctrl.Seed(sessions)
	return nil
}

// ────────────────────── 工作区生命周期 ──────────────────────

func (s *workspaceService) Get(ctx context.Context, wsID string) (*dto.WorkspaceResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()
	return ws.response(), nil
}

func (s *workspaceService) Refresh(ctx context.Context, wsID string) (*dto.WorkspaceResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	if err := s.seed(ctx, ws); err != nil {
		return nil, err
	}
	return ws.response(), nil
}

func (s *workspaceService) Close(ctx context.Context, wsID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[wsID]
	if !ok {
		return ErrWorkspaceNotFound
	}
	if officerID, ok := OfficerFromContext(ctx); ok && officerID != ws.officerID {
		return ErrWorkspaceNotFound
	}
	delete(s.workspaces, wsID)
	s.logger.Info("排课工作区已关闭", zap.String("workspace_id", wsID))
	return nil
}

func (s *workspaceService) EvictIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, ws := range s.workspaces {
		// 正在使用中的工作区不算闲置
		if !ws.mu.TryLock() {
			continue
		}
		idle := now.Sub(ws.lastUsed) > s.idleTTL
		ws.mu.Unlock()
		if idle {
			delete(s.workspaces, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info("已丢弃闲置排课工作区", zap.Int("count", evicted))
	}
	return evicted
}

// ────────────────────── 草稿编辑 ──────────────────────

func (s *workspaceService) AddDraft(ctx context.Context, wsID string, req *dto.AddDraftRequest) (*dto.SessionResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	class, ok := ws.classes[req.ClassID]
	if !ok {
		return nil, ErrClassNotInWorkspace
	}
	draft, _ := ws.ctrl.AddDraft(class.Ref())
	resp := toSessionResponse(draft, ws.classes)
	return &resp, nil
}

func (s *workspaceService) UpdateDraft(ctx context.Context, wsID, sessionID string, req *dto.UpdateDraftRequest) (*dto.SessionResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	patch, err := ws.buildPatch(req)
	if err != nil {
		return nil, err
	}
	snap, err := ws.ctrl.UpdateField(sessionID, patch)
	if err != nil {
		return nil, err
	}
	updated, _ := snap.Find(sessionID)
	resp := toSessionResponse(updated, ws.classes)
	return &resp, nil
}

// buildPatch 将请求转换为引擎补丁：解析日期、补全教室名称
func (ws *workspace) buildPatch(req *dto.UpdateDraftRequest) (composer.SessionPatch, error) {
	patch := composer.SessionPatch{
		StartPeriod:  req.StartPeriod,
		EndPeriod:    req.EndPeriod,
		InstructorID: req.InstructorID,
	}

	if req.RoomID != nil {
		if *req.RoomID == "" {
			empty := ""
			patch.RoomID, patch.RoomLabel = &empty, &empty
		} else {
			room, ok := ws.rooms[*req.RoomID]
			if !ok {
				return patch, ErrRoomNotFound
			}
			patch.RoomID, patch.RoomLabel = &room.ID, &room.Code
		}
	}

	var err error
	if patch.StartDate, err = parseDatePtr(req.StartDate); err != nil {
		return patch, err
	}
	if patch.EndDate, err = parseDatePtr(req.EndDate); err != nil {
		return patch, err
	}
	return patch, nil
}

func parseDatePtr(v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *v)
	if err != nil {
		return nil, ErrDateFormat
	}
	return &t, nil
}

func (s *workspaceService) DeleteDraft(ctx context.Context, wsID, sessionID string) (*dto.WorkspaceResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	if _, err := ws.ctrl.DeleteSession(sessionID); err != nil {
		return nil, err
	}
	return ws.response(), nil
}

// ────────────────────── 拖放 ──────────────────────

func (s *workspaceService) BeginMove(ctx context.Context, wsID string, req *dto.BeginMoveRequest) (*dto.WorkspaceResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	if _, err := ws.ctrl.BeginMove(req.SessionID); err != nil {
		return nil, err
	}
	return ws.response(), nil
}

func (s *workspaceService) CompleteMove(ctx context.Context, wsID string, req *dto.CompleteMoveRequest) (*dto.WorkspaceResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	if _, err := ws.ctrl.CompleteMove(req.SessionID, req.Day, req.Period); err != nil {
		return nil, err
	}
	return ws.response(), nil
}

func (s *workspaceService) CancelMove(ctx context.Context, wsID string) (*dto.WorkspaceResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	ws.ctrl.CancelMove()
	return ws.response(), nil
}

// ────────────────────── 网格 / 校验 / 提交 ──────────────────────

func (s *workspaceService) Grid(ctx context.Context, wsID string) (*dto.GridResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	return toGridResponse(ws.ctrl.Catalog(), ws.ctrl.Days(), ws.ctrl.Grid(), ws.classes), nil
}

func (s *workspaceService) Validate(ctx context.Context, wsID string) (*dto.ValidationResponse, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	violations := ws.ctrl.Validate()
	if violations == nil {
		violations = []composer.Violation{}
	}
	return &dto.ValidationResponse{Valid: len(violations) == 0, Violations: violations}, nil
}

func (s *workspaceService) Submit(ctx context.Context, wsID, officerID string) (*dto.SubmitResponse, error) {
	ws, err := s.acquire(WithOfficer(ctx, officerID), wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	sink := newSubmissionSink(s.repo, officerID, s.logger)
	outcome, err := ws.ctrl.Submit(ctx, sink, ws.classes, ws.semesterID)
	if err != nil {
		return nil, err
	}

	// 刷新已发布课次，使刚提交的课次以只读形式出现
	if outcome.SuccessCount > 0 {
		if err := s.seed(ctx, ws); err != nil {
			s.logger.Warn("提交后刷新已发布课次失败", zap.String("workspace_id", wsID), zap.Error(err))
		}
	}

	s.logger.Info("排课提交完成",
		zap.String("workspace_id", wsID),
		zap.Int("success", outcome.SuccessCount),
		zap.Int("failure", outcome.FailureCount),
	)
	return &dto.SubmitResponse{
		SubmissionOutcome: outcome,
		Summary:           outcome.Summary(),
		Workspace:         ws.response(),
	}, nil
}

func (s *workspaceService) Notices(ctx context.Context, wsID string) ([]composer.Notice, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()
	return ws.notifier.Drain(), nil
}

func (s *workspaceService) View(ctx context.Context, wsID string) (*WorkspaceView, error) {
	ws, err := s.acquire(ctx, wsID)
	if err != nil {
		return nil, err
	}
	defer ws.mu.Unlock()

	classes := make(map[string]composer.ClassInfo, len(ws.classes))
	for k, v := range ws.classes {
		classes[k] = v
	}
	return &WorkspaceView{
		ID:         ws.id,
		SemesterID: ws.semesterID,
		Catalog:    ws.ctrl.Catalog(),
		Days:       ws.ctrl.Days(),
		Grid:       ws.ctrl.Grid(),
		Snapshot:   ws.ctrl.Snapshot(),
		Classes:    classes,
	}, nil
}

// ── 内部辅助 ──

// acquire 取得工作区并加锁，调用方负责解锁
// ctx 携带排课人员时只允许工作区的创建者访问，其他人视为不存在
// 闲置超时的工作区视为不存在
func (s *workspaceService) acquire(ctx context.Context, wsID string) (*workspace, error) {
	s.mu.RLock()
	ws, ok := s.workspaces[wsID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	if officerID, ok := OfficerFromContext(ctx); ok && officerID != ws.officerID {
		s.logger.Warn("拒绝访问他人的排课工作区",
			zap.String("workspace_id", wsID),
			zap.String("officer_id", officerID),
		)
		return nil, ErrWorkspaceNotFound
	}

	now := s.now()
	ws.mu.Lock()
	if s.idleTTL > 0 && now.Sub(ws.lastUsed) > s.idleTTL {
		ws.mu.Unlock()
		s.mu.Lock()
		delete(s.workspaces, wsID)
		s.mu.Unlock()
		return nil, ErrWorkspaceNotFound
	}
	ws.lastUsed = now
	return ws, nil
}

// ── 排课人员身份 ──

type officerCtxKey struct{}

// WithOfficer 在 ctx 中记录当前排课人员
func WithOfficer(ctx context.Context, officerID string) context.Context {
	return context.WithValue(ctx, officerCtxKey{}, officerID)
}

// OfficerFromContext 取出 WithOfficer 写入的排课人员
func OfficerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(officerCtxKey{}).(string)
	return id, ok && id != ""
}

// RunJanitor 周期性丢弃闲置工作区，ctx 取消时退出
func RunJanitor(ctx context.Context, svc WorkspaceService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.EvictIdle()
		}
	}
}
