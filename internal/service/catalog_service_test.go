package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"timetable-composer/internal/composer"
)

// ── 测试辅助 ──

func setupTestCatalogService(cache RoomCache, now time.Time) (CatalogService, *testRepos) {
	repos := newTestRepos()
	svc := NewCatalogService(repos.aggregate(), CatalogOptions{
		Catalog:  composer.DefaultCatalog(),
		Cache:    cache,
		CacheTTL: time.Minute,
		Location: time.FixedZone("ICT", 7*3600),
		Now:      func() time.Time { return now },
	}, zap.NewNop())
	return svc, repos
}

// ── ListPeriods ──

func TestCatalogService_ListPeriods(t *testing.T) {
	svc, _ := setupTestCatalogService(nil, time.Now())

	periods := svc.ListPeriods(context.Background())
	if len(periods) != 15 {
		t.Fatalf("期望 15 个节次，实际 %d", len(periods))
	}
	if periods[0].Ordinal != 1 || periods[0].Start != "06:30" {
		t.Errorf("第1节信息错误: %+v", periods[0])
	}
}

// ── GetWeeks ──

func TestCatalogService_GetWeeks(t *testing.T) {
	// UTC 9月13日(周日) 20:00 即本地时间 9月14日(周一) 03:00
	now := time.Date(2026, time.September, 13, 20, 0, 0, 0, time.UTC)
	svc, _ := setupTestCatalogService(nil, now)

	resp, err := svc.GetWeeks(context.Background(), "sem-1")
	if err != nil {
		t.Fatalf("GetWeeks 应成功: %v", err)
	}
	if len(resp.Weeks) != 16 {
		t.Fatalf("期望 16 个教学周，实际 %d", len(resp.Weeks))
	}
	if resp.Weeks[0].StartDate != "2026-09-07" || resp.Weeks[0].EndDate != "2026-09-13" {
		t.Errorf("第1周期望 2026-09-07~2026-09-13，实际 %s~%s", resp.Weeks[0].StartDate, resp.Weeks[0].EndDate)
	}
	if resp.CurrentWeek != 2 {
		t.Errorf("按本地时区计算期望第 2 周，实际 %d", resp.CurrentWeek)
	}
}

func TestCatalogService_GetWeeks_OutsideSemesterFallsBackToFirst(t *testing.T) {
	svc, _ := setupTestCatalogService(nil, time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC))

	resp, err := svc.GetWeeks(context.Background(), "sem-1")
	if err != nil {
		t.Fatalf("GetWeeks 应成功: %v", err)
	}
	if resp.CurrentWeek != 1 {
		t.Errorf("学期外期望回退到第 1 周，实际 %d", resp.CurrentWeek)
	}
}

func TestCatalogService_GetWeeks_SemesterNotFound(t *testing.T) {
	svc, _ := setupTestCatalogService(nil, time.Now())

	_, err := svc.GetWeeks(context.Background(), "missing")
	if !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}

// ── ListSemesters / ListClasses ──

func TestCatalogService_ListSemesters(t *testing.T) {
	svc, _ := setupTestCatalogService(nil, time.Now())

	list, err := svc.ListSemesters(context.Background())
	if err != nil {
		t.Fatalf("ListSemesters 应成功: %v", err)
	}
	if len(list) != 1 || list[0].StartDate != "2026-09-07" || !list[0].IsActive {
		t.Errorf("学期列表错误: %+v", list)
	}
}

func TestCatalogService_CurrentSemester(t *testing.T) {
	svc, repos := setupTestCatalogService(nil, time.Now())

	sem, err := svc.CurrentSemester(context.Background())
	if err != nil {
		t.Fatalf("CurrentSemester 应成功: %v", err)
	}
	if sem.ID != "sem-1" {
		t.Errorf("期望 sem-1，实际 %s", sem.ID)
	}

	repos.semesters.semesters["sem-1"].IsActive = false
	if _, err := svc.CurrentSemester(context.Background()); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("无启用学期时期望 ErrSemesterNotFound，实际: %v", err)
	}
}

func TestCatalogService_ListClasses(t *testing.T) {
	svc, _ := setupTestCatalogService(nil, time.Now())

	classes, err := svc.ListClasses(context.Background(), "sem-1")
	if err != nil {
		t.Fatalf("ListClasses 应成功: %v", err)
	}
	if len(classes) != 3 {
		t.Fatalf("期望 3 个开课班，实际 %d", len(classes))
	}
	if classes[0].Code != "CS101" || classes[0].InstructorID != "gv-1" {
		t.Errorf("第1个开课班错误: %+v", classes[0])
	}
	if classes[2].InstructorID != "" {
		t.Errorf("未分配教师时 InstructorID 应为空，实际 %q", classes[2].InstructorID)
	}
}

func TestCatalogService_ListClasses_SemesterNotFound(t *testing.T) {
	svc, _ := setupTestCatalogService(nil, time.Now())

	if _, err := svc.ListClasses(context.Background(), "missing"); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}

// ── ListRooms 缓存 ──

func TestCatalogService_ListRooms_NoCache(t *testing.T) {
	svc, repos := setupTestCatalogService(nil, time.Now())

	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms 应成功: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("期望仅返回 2 间启用教室，实际 %d", len(rooms))
	}
	if repos.rooms.listCalls != 1 {
		t.Errorf("期望查库 1 次，实际 %d", repos.rooms.listCalls)
	}
}

func TestCatalogService_ListRooms_MissThenHit(t *testing.T) {
	cache := newMockCache()
	svc, repos := setupTestCatalogService(cache, time.Now())
	ctx := context.Background()

	first, err := svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("首次 ListRooms 应成功: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("未命中后应回填缓存，实际写入 %d 次", cache.sets)
	}

	second, err := svc.ListRooms(ctx)
	if err != nil {
		t.Fatalf("再次 ListRooms 应成功: %v", err)
	}
	if repos.rooms.listCalls != 1 {
		t.Errorf("命中缓存时不应查库，实际查库 %d 次", repos.rooms.listCalls)
	}
	if len(second) != len(first) || second[0].Code != first[0].Code {
		t.Errorf("缓存结果与数据库结果不一致: %+v vs %+v", second, first)
	}
}

func TestCatalogService_ListRooms_CacheErrorFallsBack(t *testing.T) {
	cache := newMockCache()
	cache.getErr = errors.New("connection refused")
	svc, repos := setupTestCatalogService(cache, time.Now())

	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("缓存不可用时应降级查库: %v", err)
	}
	if len(rooms) != 2 || repos.rooms.listCalls != 1 {
		t.Errorf("降级结果错误: rooms=%d listCalls=%d", len(rooms), repos.rooms.listCalls)
	}
}

func TestCatalogService_ListRooms_DBError(t *testing.T) {
	svc, repos := setupTestCatalogService(newMockCache(), time.Now())
	repos.rooms.listErr = errors.New("db down")

	if _, err := svc.ListRooms(context.Background()); err == nil {
		t.Error("数据库失败时应返回错误")
	}
}

func TestCatalogService_InvalidateRooms(t *testing.T) {
	cache := newMockCache()
	svc, repos := setupTestCatalogService(cache, time.Now())
	ctx := context.Background()

	_, _ = svc.ListRooms(ctx)
	if err := svc.InvalidateRooms(ctx); err != nil {
		t.Fatalf("InvalidateRooms 应成功: %v", err)
	}
	_, _ = svc.ListRooms(ctx)
	if repos.rooms.listCalls != 2 {
		t.Errorf("清除缓存后应重新查库，实际查库 %d 次", repos.rooms.listCalls)
	}
}
