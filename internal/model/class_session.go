package model

import "time"

// SessionStatusPublished 已发布课次
const SessionStatusPublished = "published"

// ClassSession 已发布课次表，对应 class_sessions
type ClassSession struct {
	SessionID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ClassID      string    `gorm:"type:uuid;not null;index"                       json:"class_id"`
	SemesterID   string    `gorm:"type:uuid;not null;index"                       json:"semester_id"`
	Label        string    `gorm:"type:varchar(64);not null"                      json:"label"`
	DayOfWeek    int       `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1=周一 … 7=周日
	StartPeriod  int       `gorm:"type:smallint;not null"                         json:"start_period"`
	EndPeriod    int       `gorm:"type:smallint;not null"                         json:"end_period"`
	RoomID       string    `gorm:"type:uuid;not null"                             json:"room_id"`
	StartDate    time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate      time.Time `gorm:"type:date;not null"                             json:"end_date"`
	InstructorID *string   `gorm:"type:varchar(64)"                               json:"instructor_id,omitempty"`
	Status       string    `gorm:"type:varchar(20);not null;default:'published'"  json:"status"`
	SoftDeleteModel

	Class *ClassOffering `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
	Room  *Room          `gorm:"foreignKey:RoomID;references:RoomID"   json:"room,omitempty"`
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }
