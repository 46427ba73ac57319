package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"timetable-composer/internal/model"
	"timetable-composer/internal/repository"
	pkgerrors "timetable-composer/pkg/errors"
)

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) add(s *model.Semester) {
	m.semesters[s.SemesterID] = s
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetCurrent(_ context.Context) (*model.Semester, error) {
	for _, s := range m.semesters {
		if s.IsActive {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

// ── Mock ClassRepository ──

type mockClassRepo struct {
	classes map[string]*model.ClassOffering
	listErr error
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*model.ClassOffering)}
}

func (m *mockClassRepo) add(c *model.ClassOffering) {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.ScheduleStatus == "" {
		c.ScheduleStatus = model.ScheduleStatusPending
	}
	m.classes[c.ClassID] = c
}

func (m *mockClassRepo) GetByID(_ context.Context, id string) (*model.ClassOffering, error) {
	if c, ok := m.classes[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) GetByCode(_ context.Context, semesterID, code string) (*model.ClassOffering, error) {
	for _, c := range m.classes {
		if c.SemesterID == semesterID && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassRepo) ListBySemester(_ context.Context, semesterID string) ([]model.ClassOffering, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.ClassOffering
	for _, c := range m.classes {
		if c.SemesterID == semesterID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockClassRepo) MarkScheduled(_ context.Context, class *model.ClassOffering, updatedBy string) error {
	stored, ok := m.classes[class.ClassID]
	if !ok || stored.Version != class.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Version++
	stored.ScheduleStatus = model.ScheduleStatusScheduled
	stored.UpdatedBy = &updatedBy
	class.Version = stored.Version
	class.ScheduleStatus = stored.ScheduleStatus
	return nil
}

// ── Mock ClassSessionRepository ──

type mockSessionRepo struct {
	sessions  []model.ClassSession
	classes   *mockClassRepo
	rooms     *mockRoomRepo
	nextID    int
	createErr error
	listErr   error
}

func newMockSessionRepo(classes *mockClassRepo, rooms *mockRoomRepo) *mockSessionRepo {
	return &mockSessionRepo{classes: classes, rooms: rooms}
}

// attach 模拟 Preload("Class")/Preload("Room")
func (m *mockSessionRepo) attach(s model.ClassSession) model.ClassSession {
	if c, ok := m.classes.classes[s.ClassID]; ok {
		cp := *c
		s.Class = &cp
	}
	for i := range m.rooms.rooms {
		if m.rooms.rooms[i].RoomID == s.RoomID {
			r := m.rooms.rooms[i]
			s.Room = &r
		}
	}
	return s
}

func (m *mockSessionRepo) ListPublishedByClassCodes(_ context.Context, semesterID string, codes []string) ([]model.ClassSession, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var result []model.ClassSession
	for _, s := range m.sessions {
		s = m.attach(s)
		if s.SemesterID != semesterID || s.Status != model.SessionStatusPublished || s.Class == nil || !want[s.Class.Code] {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (m *mockSessionRepo) ListByClass(_ context.Context, classID string) ([]model.ClassSession, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.ClassSession
	for _, s := range m.sessions {
		if s.ClassID == classID && s.Status == model.SessionStatusPublished {
			result = append(result, m.attach(s))
		}
	}
	return result, nil
}

func (m *mockSessionRepo) BatchCreate(_ context.Context, sessions []model.ClassSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, s := range sessions {
		m.nextID++
		if s.SessionID == "" {
			s.SessionID = fmt.Sprintf("pub-%d", m.nextID)
		}
		m.sessions = append(m.sessions, s)
	}
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	rooms     []model.Room
	listCalls int
	listErr   error
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{}
}

func (m *mockRoomRepo) List(_ context.Context, includeInactive bool) ([]model.Room, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Room
	for _, r := range m.rooms {
		if includeInactive || r.IsActive {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRoomRepo) CountByIDs(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		for _, r := range m.rooms {
			if r.RoomID == id && r.IsActive {
				n++
				break
			}
		}
	}
	return n, nil
}

// ── Mock RoomCache ──

type mockCache struct {
	data    map[string][]byte
	getErr  error
	sets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return pkgerrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.data[key] = raw
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deletes++
	}
	return nil
}

// ── 测试夹具 ──

type testRepos struct {
	semesters *mockSemesterRepo
	classes   *mockClassRepo
	sessions  *mockSessionRepo
	rooms     *mockRoomRepo
}

func (r *testRepos) aggregate() *repository.Repository {
	return &repository.Repository{
		Semester: r.semesters,
		Class:    r.classes,
		Session:  r.sessions,
		Room:     r.rooms,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

// newTestRepos 预置一个学期、三个开课班、三间教室（其中一间停用）
// 以及 CS101 在周一第 1-3 节的一个已发布课次
func newTestRepos() *testRepos {
	semesters := newMockSemesterRepo()
	semesters.add(&model.Semester{
		SemesterID: "sem-1",
		Code:       "HK1-2026",
		Name:       "Học kỳ 1 năm 2026-2027",
		StartDate:  date(2026, time.September, 7),
		EndDate:    date(2026, time.December, 27),
		IsActive:   true,
	})

	classes := newMockClassRepo()
	classes.add(&model.ClassOffering{ClassID: "class-1", SemesterID: "sem-1", Code: "CS101", Title: "Nhập môn lập trình", InstructorID: strPtr("gv-1"), EnrolledCount: 60})
	classes.add(&model.ClassOffering{ClassID: "class-2", SemesterID: "sem-1", Code: "MA201", Title: "Giải tích 2", InstructorID: strPtr("gv-2"), EnrolledCount: 45})
	classes.add(&model.ClassOffering{ClassID: "class-3", SemesterID: "sem-1", Code: "PH110", Title: "Vật lý đại cương", EnrolledCount: 80})

	rooms := newMockRoomRepo()
	rooms.rooms = []model.Room{
		{RoomID: "room-a", Code: "A1.101", Site: "Cơ sở 1", Capacity: 80, IsActive: true},
		{RoomID: "room-b", Code: "B2.204", Site: "Cơ sở 2", Capacity: 50, IsActive: true},
		{RoomID: "room-x", Code: "X0.000", Site: "Cơ sở 1", Capacity: 10, IsActive: false},
	}

	sessions := newMockSessionRepo(classes, rooms)
	sessions.sessions = []model.ClassSession{{
		SessionID:   "pub-cs101",
		ClassID:     "class-1",
		SemesterID:  "sem-1",
		Label:       "CS101_1",
		DayOfWeek:   1,
		StartPeriod: 1,
		EndPeriod:   3,
		RoomID:      "room-a",
		StartDate:   date(2026, time.September, 7),
		EndDate:     date(2026, time.December, 27),
		Status:      model.SessionStatusPublished,
	}}

	return &testRepos{semesters: semesters, classes: classes, sessions: sessions, rooms: rooms}
}
