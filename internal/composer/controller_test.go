package composer

import (
	"errors"
	"fmt"
	"testing"
)

// ── 测试辅助 ──

type recordingNotifier struct {
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) { r.notices = append(r.notices, n) }

func (r *recordingNotifier) last() Notice {
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("draft-%d", n)
	}
}

func setupController() (*Controller, *recordingNotifier) {
	notifier := &recordingNotifier{}
	c := NewController(DefaultCatalog(), WithNotifier(notifier), WithIDGenerator(sequentialIDs()))
	// 已发布：周二第1-3节
	c.Seed([]Session{publishedAt("pub-1", 2, 1, 3)})
	return c, notifier
}

var cs101 = ClassRef{ClassID: "class-1", ClassCode: "CS101", ClassLabel: "Nhập môn lập trình", InstructorID: "gv-1"}

// ── 场景 B：锚点冲突 ──

func TestController_ScenarioB_AnchorConflict(t *testing.T) {
	c, notifier := setupController()
	draft, _ := c.AddDraft(cs101)

	if _, err := c.BeginMove(draft.ID); err != nil {
		t.Fatalf("BeginMove 应成功: %v", err)
	}
	snap, err := c.CompleteMove(draft.ID, 2, 1)
	if !errors.Is(err, ErrPlacementConflict) {
		t.Fatalf("期望 ErrPlacementConflict，实际 %v", err)
	}
	got, _ := snap.Find(draft.ID)
	if got.Placed() {
		t.Error("被拒绝的拖动不应修改放置位置")
	}
	if snap.MovingID != "" {
		t.Error("被拒绝后拖动应结束")
	}
	if notifier.last().Level != LevelWarning {
		t.Errorf("期望 warning 通知，实际 %+v", notifier.last())
	}

	// 落在已发布跨度中间：仅锚点比较，允许
	c.BeginMove(draft.ID)
	snap, err = c.CompleteMove(draft.ID, 2, 2)
	if err != nil {
		t.Fatalf("(2,2) 期望允许，实际 %v", err)
	}
	got, _ = snap.Find(draft.ID)
	if *got.Day != 2 || *got.StartPeriod != 2 {
		t.Errorf("期望放置于 (2,2)，实际 (%d,%d)", *got.Day, *got.StartPeriod)
	}
}

func TestController_RejectedMoveKeepsPriorPlacement(t *testing.T) {
	c, _ := setupController()
	draft, _ := c.AddDraft(cs101)
	c.UpdateField(draft.ID, SessionPatch{StartPeriod: intPtr(4), EndPeriod: intPtr(5)})
	c.BeginMove(draft.ID)
	if _, err := c.CompleteMove(draft.ID, 3, 4); err != nil {
		t.Fatalf("首次放置应成功: %v", err)
	}

	c.BeginMove(draft.ID)
	snap, err := c.CompleteMove(draft.ID, 2, 1)
	if err == nil {
		t.Fatal("期望冲突")
	}
	got, _ := snap.Find(draft.ID)
	if *got.Day != 3 || *got.StartPeriod != 4 || *got.EndPeriod != 5 {
		t.Errorf("期望回弹到 (3,4-5)，实际 (%d,%d-%d)", *got.Day, *got.StartPeriod, *got.EndPeriod)
	}
}

func TestController_CompleteMoveCarriesSpanLength(t *testing.T) {
	c, _ := setupController()
	draft, _ := c.AddDraft(cs101)
	c.UpdateField(draft.ID, SessionPatch{StartPeriod: intPtr(1), EndPeriod: intPtr(3)})

	c.BeginMove(draft.ID)
	snap, err := c.CompleteMove(draft.ID, 5, 7)
	if err != nil {
		t.Fatalf("CompleteMove 应成功: %v", err)
	}
	got, _ := snap.Find(draft.ID)
	if *got.StartPeriod != 7 || *got.EndPeriod != 9 {
		t.Errorf("期望跨度 7-9，实际 %d-%d", *got.StartPeriod, *got.EndPeriod)
	}

	// 跨度超出节次表末尾
	c.BeginMove(draft.ID)
	snap, err = c.CompleteMove(draft.ID, 5, 14)
	if !errors.Is(err, ErrOutOfGrid) {
		t.Fatalf("期望 ErrOutOfGrid，实际 %v", err)
	}
	got, _ = snap.Find(draft.ID)
	if *got.StartPeriod != 7 {
		t.Error("越界拖动不应修改位置")
	}
}

func TestController_CompleteMoveUnplacedWithoutSpan(t *testing.T) {
	c, _ := setupController()
	draft, _ := c.AddDraft(cs101)
	c.BeginMove(draft.ID)
	snap, err := c.CompleteMove(draft.ID, 1, 6)
	if err != nil {
		t.Fatalf("CompleteMove 应成功: %v", err)
	}
	got, _ := snap.Find(draft.ID)
	if *got.Day != 1 || *got.StartPeriod != 6 || got.EndPeriod != nil {
		t.Errorf("期望 (1,6) 且结束节次待定，实际 %+v", got)
	}
}

func TestController_PublishedSessionsAreFrozen(t *testing.T) {
	c, notifier := setupController()
	before := c.Snapshot()

	if _, err := c.BeginMove("pub-1"); !errors.Is(err, ErrIllegalMutation) {
		t.Errorf("BeginMove 期望 ErrIllegalMutation，实际 %v", err)
	}
	if _, err := c.UpdateField("pub-1", SessionPatch{StartPeriod: intPtr(5)}); !errors.Is(err, ErrIllegalMutation) {
		t.Errorf("UpdateField 期望 ErrIllegalMutation，实际 %v", err)
	}
	if _, err := c.DeleteSession("pub-1"); !errors.Is(err, ErrIllegalMutation) {
		t.Errorf("DeleteSession 期望 ErrIllegalMutation，实际 %v", err)
	}
	if _, err := c.CompleteMove("pub-1", 3, 3); !errors.Is(err, ErrNoActiveMove) {
		t.Errorf("CompleteMove 期望 ErrNoActiveMove，实际 %v", err)
	}

	after := c.Snapshot()
	pubBefore, _ := before.Find("pub-1")
	pubAfter, ok := after.Find("pub-1")
	if !ok || *pubAfter.StartPeriod != *pubBefore.StartPeriod || *pubAfter.Day != *pubBefore.Day {
		t.Error("已发布课次不应被修改或删除")
	}
	if len(notifier.notices) != 4 {
		t.Errorf("期望 4 条通知，实际 %d", len(notifier.notices))
	}
	if notifier.notices[0].Level != LevelError {
		t.Errorf("非法修改应以 error 级别通知，实际 %s", notifier.notices[0].Level)
	}
}

func TestController_MoveProtocol(t *testing.T) {
	c, _ := setupController()
	a, _ := c.AddDraft(cs101)
	b, _ := c.AddDraft(cs101)

	if _, err := c.CompleteMove(a.ID, 1, 1); !errors.Is(err, ErrNoActiveMove) {
		t.Errorf("未开始拖动时期望 ErrNoActiveMove，实际 %v", err)
	}

	c.BeginMove(a.ID)
	if _, err := c.BeginMove(b.ID); !errors.Is(err, ErrMoveInProgress) {
		t.Errorf("期望 ErrMoveInProgress，实际 %v", err)
	}
	if _, err := c.CompleteMove(b.ID, 1, 1); !errors.Is(err, ErrNoActiveMove) {
		t.Errorf("放下非拖动中的课次期望 ErrNoActiveMove，实际 %v", err)
	}

	c.BeginMove(a.ID)
	before := c.Snapshot()
	snap := c.CancelMove()
	if snap.MovingID != "" {
		t.Error("CancelMove 后不应有拖动")
	}
	if len(snap.Sessions) != len(before.Sessions) {
		t.Error("CancelMove 不应修改课次")
	}
	got, _ := snap.Find(a.ID)
	if got.Placed() {
		t.Error("CancelMove 不应放置课次")
	}
}

func TestController_UpdateField(t *testing.T) {
	c, _ := setupController()
	d, _ := c.AddDraft(cs101)

	snap, err := c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(2), EndPeriod: intPtr(4)})
	if err != nil {
		t.Fatalf("UpdateField 应成功: %v", err)
	}
	got, _ := snap.Find(d.ID)
	if *got.StartPeriod != 2 || *got.EndPeriod != 4 {
		t.Fatalf("期望 2-4，实际 %d-%d", *got.StartPeriod, *got.EndPeriod)
	}

	snap, _ = c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(6)})
	got, _ = snap.Find(d.ID)
	if got.EndPeriod != nil {
		t.Error("开始节次大于结束节次时应清空结束节次")
	}

	if _, err := c.UpdateField(d.ID, SessionPatch{EndPeriod: intPtr(5)}); !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("期望 ErrInvalidSpan，实际 %v", err)
	}
	if _, err := c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(99)}); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("期望 ErrUnknownPeriod，实际 %v", err)
	}

	// patch 原子性：日期非法时教室也不应被写入
	room := "A1-101"
	sd, ed := date(2025, 12, 1), date(2025, 9, 1)
	if _, err := c.UpdateField(d.ID, SessionPatch{RoomID: &room, StartDate: &sd, EndDate: &ed}); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("期望 ErrInvalidDateRange，实际 %v", err)
	}
	got, _ = c.Snapshot().Find(d.ID)
	if got.RoomID != nil {
		t.Error("被拒绝的 patch 不应部分生效")
	}

	if _, err := c.UpdateField("missing", SessionPatch{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际 %v", err)
	}
}

func TestController_UpdateStartPeriodOfPlacedDraftChecksConflict(t *testing.T) {
	c, notifier := setupController()
	d, _ := c.AddDraft(cs101)
	c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(4), EndPeriod: intPtr(5)})
	c.BeginMove(d.ID)
	if _, err := c.CompleteMove(d.ID, 2, 4); err != nil {
		t.Fatalf("放置到周二第4节应成功: %v", err)
	}

	// 周二第1节是已发布课次的锚点
	snap, err := c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(1)})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.ConflictID != "pub-1" {
		t.Fatalf("期望与 pub-1 冲突，实际 %v", err)
	}
	got, _ := snap.Find(d.ID)
	if *got.Day != 2 || *got.StartPeriod != 4 || *got.EndPeriod != 5 {
		t.Errorf("被拒绝的修改不应改变位置，实际 周%d 第%d-%d节", *got.Day, *got.StartPeriod, *got.EndPeriod)
	}
	if notifier.last().Level != LevelWarning {
		t.Errorf("期望 warning 通知，实际 %+v", notifier.last())
	}
	if !c.Grid().CanPlace(&got, 2, 4) {
		t.Error("草稿当前位置应仍可放置")
	}

	// 跨度中间不是锚点，允许
	snap, err = c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(2)})
	if err != nil {
		t.Fatalf("移到已发布跨度中间应被接受: %v", err)
	}
	got, _ = snap.Find(d.ID)
	if *got.StartPeriod != 2 || *got.EndPeriod != 5 {
		t.Errorf("期望 第2-5节，实际 第%d-%d节", *got.StartPeriod, *got.EndPeriod)
	}
}

func TestController_UpdateFieldNeverPlacesDraft(t *testing.T) {
	c, _ := setupController()
	d, _ := c.AddDraft(cs101)

	snap, err := c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(1), EndPeriod: intPtr(2)})
	if err != nil {
		t.Fatalf("未放置草稿设置节次应成功: %v", err)
	}
	got, _ := snap.Find(d.ID)
	if got.Placed() || got.Day != nil {
		t.Error("字段更新不应产生放置，放置只能来自拖动")
	}
}

func TestController_DeleteDraft(t *testing.T) {
	c, _ := setupController()
	d, _ := c.AddDraft(cs101)
	c.BeginMove(d.ID)

	snap, err := c.DeleteSession(d.ID)
	if err != nil {
		t.Fatalf("DeleteSession 应成功: %v", err)
	}
	if _, ok := snap.Find(d.ID); ok {
		t.Error("草稿应被删除")
	}
	if snap.MovingID != "" {
		t.Error("删除拖动中的草稿后拖动应结束")
	}
	if len(snap.Published()) != 1 {
		t.Error("已发布课次不应受影响")
	}
}

func TestController_SnapshotIsImmutable(t *testing.T) {
	c, _ := setupController()
	d, _ := c.AddDraft(cs101)
	snap, _ := c.UpdateField(d.ID, SessionPatch{StartPeriod: intPtr(2)})

	got, _ := snap.Find(d.ID)
	*got.StartPeriod = 9
	snap.Sessions[0].Label = "changed"

	again, _ := c.Snapshot().Find(d.ID)
	if *again.StartPeriod != 2 {
		t.Error("修改快照不应影响控制器状态")
	}
	if pub, _ := c.Snapshot().Find("pub-1"); pub.Label == "changed" {
		t.Error("修改快照不应影响已发布课次")
	}
}

func TestController_SeedKeepsDrafts(t *testing.T) {
	c, _ := setupController()
	d, _ := c.AddDraft(cs101)

	snap := c.Seed([]Session{publishedAt("pub-2", 4, 1, 2)})
	if _, ok := snap.Find("pub-1"); ok {
		t.Error("旧的已发布课次应被替换")
	}
	if _, ok := snap.Find("pub-2"); !ok {
		t.Error("新的已发布课次应存在")
	}
	if _, ok := snap.Find(d.ID); !ok {
		t.Error("草稿应保留")
	}
}
