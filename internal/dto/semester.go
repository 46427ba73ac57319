package dto

// ── 学期 / 目录 DTO ──

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

// PeriodResponse 节次
type PeriodResponse struct {
	Ordinal int    `json:"ordinal"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Label   string `json:"label"`
}

// WeekResponse 教学周
type WeekResponse struct {
	Index     int    `json:"index"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// WeeksResponse 学期周次及当前周
type WeeksResponse struct {
	SemesterID  string         `json:"semester_id"`
	Weeks       []WeekResponse `json:"weeks"`
	CurrentWeek int            `json:"current_week"`
}

// ClassResponse 可排课的开课班
type ClassResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Title         string `json:"title"`
	InstructorID  string `json:"instructor_id,omitempty"`
	EnrolledCount int    `json:"enrolled_count"`
}

// RoomResponse 教室
type RoomResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Site     string `json:"site"`
	Capacity int    `json:"capacity"`
}
